package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jpalmerr/pollkit"
)

const baseURL = "http://localhost:9999"

func main() {
	// start mock server (see mock_server.go)
	go StartMockJobServer(":9999")
	time.Sleep(100 * time.Millisecond)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	sender, err := pollkit.NewSender(pollkit.WithLogger(logger))
	if err != nil {
		slog.Error("failed to create sender", "error", err)
		os.Exit(1)
	}
	defer sender.Close()

	// set up context with signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. log in with a form post; the response text is the token
	login, err := sender.PostForm(ctx, baseURL+"/login", url.Values{"user": {"demo"}},
		func(text string) { fmt.Println("logged in, token:", text) },
		func(resp *pollkit.Response) { fmt.Println("login failed:", resp.StatusCode) },
	)
	if err != nil {
		slog.Error("failed to build login request", "error", err)
		os.Exit(1)
	}
	token, err := login.Wait().Text()
	if err != nil {
		slog.Error("login failed", "error", err)
		os.Exit(1)
	}
	token = strings.TrimSpace(token)

	// 2. submit a job with a JSON post
	req, err := pollkit.NewRequest("POST", baseURL+"/jobs",
		pollkit.WithBearerToken(token),
		pollkit.WithBody([]byte(`{"name":"nightly-build"}`), pollkit.ContentTypeJSON),
	)
	if err != nil {
		slog.Error("failed to build job request", "error", err)
		os.Exit(1)
	}
	created := sender.Do(ctx, req)
	if created.Err != nil {
		slog.Error("job submission failed", "error", created.Err)
		os.Exit(1)
	}
	fmt.Println("job submitted:", created.Response.Text())

	// 3. poll the job until it reports done
	p, err := sender.PollUntil(ctx, baseURL+"/jobs/1",
		pollkit.WithAuthToken(token),
		pollkit.WithPredicate(pollkit.JSONField("status", "done")),
		pollkit.WithFrequency(2),
		pollkit.WithTimeout(30*time.Second),
		pollkit.WithDoneEvent("buildReady", "nightly-build"),
		pollkit.WithListener(func(ev pollkit.Event) {
			fmt.Printf("  %-12s attempt=%d remaining=%s\n", ev.Name, ev.Attempt, ev.Remaining)
		}),
	)
	if err != nil {
		slog.Error("failed to start poll", "error", err)
		os.Exit(1)
	}

	res := p.Wait()
	fmt.Printf("poll %s finished: %s after %d attempts\n", res.ID, res.Outcome, res.Attempts)
	if res.Response != nil {
		fmt.Println("final response:", res.Response.Text())
	}
}
