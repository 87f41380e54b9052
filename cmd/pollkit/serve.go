package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jpalmerr/pollkit"
	"github.com/jpalmerr/pollkit/config"
	"github.com/jpalmerr/pollkit/internal/metrics"
	"github.com/jpalmerr/pollkit/internal/server"
	"github.com/jpalmerr/pollkit/internal/store"
)

const (
	shutdownTimeout = 10 * time.Second
)

// serveCmd runs every configured poll behind the HTTP API.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run configured polls and serve their state over HTTP",
	Long: `Run every poll in a config file and serve their state over HTTP.

The server will:
  - Load configuration from the specified YAML file
  - Start one poll chain per configured poll
  - Serve poll records on /api/polls, live events on /api/sse
    and Prometheus metrics on /metrics

The server runs until interrupted (Ctrl+C) or receives SIGTERM. With
--exit-when-done it stops once every poll has ended.

Example:
  pollkit serve -c config.yaml
  pollkit serve -c config.yaml --exit-when-done --max-concurrency 4`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	f := serveCmd.Flags()
	f.StringP("config", "c", "", "path to config file (required)")
	f.Int("port", 0, "override the configured port (0 picks a free port)")
	f.Int("max-concurrency", 0, "maximum polls running at once (0 means unlimited)")
	f.Bool("exit-when-done", false, "stop the server once every poll has ended")
	f.BoolP("verbose", "v", false, "enable debug logging")
	_ = serveCmd.MarkFlagRequired("config")
}

func runServe(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	verbose, _ := flags.GetBool("verbose")
	logger := newLogger(verbose)

	configFile, _ := flags.GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if flags.Changed("port") {
		cfg.Port, _ = flags.GetInt("port")
	}
	maxConcurrency, _ := flags.GetInt("max-concurrency")
	exitWhenDone, _ := flags.GetBool("exit-when-done")

	defs, err := config.BuildPolls(cfg)
	if err != nil {
		return fmt.Errorf("failed to build polls: %w", err)
	}
	if len(defs) == 0 {
		return errors.New("no polls configured")
	}

	cmd.SilenceUsage = true
	logger.Info("config loaded", "polls", len(defs), "port", cfg.Port)

	sender, err := pollkit.NewSender(pollkit.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to create sender: %w", err)
	}
	defer sender.Close()

	st := store.NewMemoryStore()
	collector := metrics.New()

	// set up context with signal handling - cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(cmdContext(cmd), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := server.NewServer(st, cfg.Port, collector.Handler(), logger)
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	if maxConcurrency > 0 {
		g.SetLimit(maxConcurrency)
	}
	for _, def := range defs {
		g.Go(func() error {
			return runConfiguredPoll(gctx, sender, def, st, collector, logger)
		})
	}
	pollErr := g.Wait()

	switch {
	case pollErr != nil:
		logger.Error("poll setup failed", "error", pollErr)
		stop()
	case ctx.Err() == nil:
		logger.Info("all polls finished")
		if exitWhenDone {
			stop()
		}
	}

	<-ctx.Done()
	select {
	case <-srv.Done():
		logger.Info("shutdown complete")
	case <-time.After(shutdownTimeout):
		logger.Warn("shutdown timed out",
			"timeout", shutdownTimeout.String(),
			"action", "forcing exit",
		)
	}
	return pollErr
}

// runConfiguredPoll runs one poll chain to completion, mirroring its events
// into the store and every response into metrics. The final outcome amends
// the stored record without being broadcast, so subscribers see each event
// exactly once.
func runConfiguredPoll(ctx context.Context, sender *pollkit.Sender, def config.PollDefinition, st store.Store, m *metrics.Collector, logger *slog.Logger) error {
	var last store.Record

	opts := append([]pollkit.PollOption{}, def.Options...)
	opts = append(opts,
		pollkit.WithListener(func(ev pollkit.Event) {
			last = recordFromEvent(def.Name, def.URL, ev)
			st.Update(last)
			m.ObserveEvent(def.Name, string(ev.Kind))
		}),
		pollkit.WithResultListener(func(r pollkit.Result) {
			if r.Response != nil {
				m.ObserveResponse(def.Name, r.Response.StatusCode, r.Response.Latency)
			}
		}),
	)

	m.PollStarted()
	defer m.PollFinished()

	p, err := sender.PollUntil(ctx, def.URL, opts...)
	if err != nil {
		return fmt.Errorf("poll %q: %w", def.Name, err)
	}
	res := p.Wait()

	if last.ID == "" {
		last = store.Record{Name: def.Name, URL: def.URL, At: time.Now()}
	}
	st.Amend(finishRecord(last, res))

	logger.Info("poll finished",
		"poll", def.Name,
		"outcome", res.Outcome.String(),
		"attempts", res.Attempts,
	)
	if res.Err != nil && res.Outcome != pollkit.PollCancelled {
		logger.Warn("poll ended without completing", "poll", def.Name, "error", res.Err)
	}
	return nil
}
