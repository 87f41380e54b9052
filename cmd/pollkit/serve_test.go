package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/jpalmerr/pollkit"
	"github.com/jpalmerr/pollkit/config"
	"github.com/jpalmerr/pollkit/internal/metrics"
	"github.com/jpalmerr/pollkit/internal/store"
)

func TestRunServe_ExitWhenDone(t *testing.T) {
	build, buildHits := statusServer(t, 2)

	var deployHits atomic.Int32
	deploy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		deployHits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer deploy.Close()

	configPath := writeConfig(t, fmt.Sprintf(`
polls:
  - name: build
    url: %s
    until: json:status=done
    frequency: 20
    timeout: 5s
  - name: deploy
    url: %s
    frequency: 20
`, build.URL, deploy.URL))

	_, _, err := executeCmd(t, "serve", "-c", configPath, "--port", "0", "--exit-when-done", "--max-concurrency", "1")
	if err != nil {
		t.Fatalf("serve error = %v", err)
	}
	if buildHits.Load() != 2 {
		t.Errorf("build hits = %d, want 2", buildHits.Load())
	}
	if deployHits.Load() != 1 {
		t.Errorf("deploy hits = %d, want 1", deployHits.Load())
	}
}

func TestRunServe_InvalidConfig(t *testing.T) {
	configPath := writeConfig(t, `
polls: []
`)
	if _, _, err := executeCmd(t, "serve", "-c", configPath, "--port", "0"); err == nil {
		t.Fatal("serve expected error for config without polls")
	}
}

func TestRunServe_MissingConfigFlag(t *testing.T) {
	if _, _, err := executeCmd(t, "serve"); err == nil {
		t.Fatal("serve expected error without --config")
	}
}

// collectEvents subscribes to st and returns a function that drains the
// event names received so far.
func collectEvents(t *testing.T, st *store.MemoryStore) func() []string {
	t.Helper()
	ch := st.Subscribe()
	t.Cleanup(func() { st.Unsubscribe(ch) })
	return func() []string {
		var names []string
		for {
			select {
			case rec := <-ch:
				names = append(names, rec.Event)
			default:
				return names
			}
		}
	}
}

func testSender(t *testing.T) *pollkit.Sender {
	t.Helper()
	s, err := pollkit.NewSender(pollkit.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	if err != nil {
		t.Fatalf("NewSender() error = %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func TestRunConfiguredPoll_EachEventBroadcastOnce(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		wantEvents  []string
		wantOutcome string
	}{
		{"done", http.StatusOK, []string{"pollSent", "pollDone"}, "done"},
		{"error", http.StatusNotFound, []string{"pollSent", "pollError"}, "error"},
		{"abandoned", http.StatusNoContent, []string{"pollSent"}, "abandoned"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			st := store.NewMemoryStore()
			drain := collectEvents(t, st)
			def := config.PollDefinition{
				Name:    "build",
				URL:     server.URL,
				Options: []pollkit.PollOption{pollkit.WithPollID("build")},
			}

			err := runConfiguredPoll(context.Background(), testSender(t), def, st, metrics.New(), slog.New(slog.NewTextHandler(io.Discard, nil)))
			if err != nil {
				t.Fatalf("runConfiguredPoll() error = %v", err)
			}

			if got := drain(); strings.Join(got, ",") != strings.Join(tt.wantEvents, ",") {
				t.Errorf("broadcast events = %v, want %v", got, tt.wantEvents)
			}

			rec, ok := st.Get("build")
			if !ok {
				t.Fatal("no stored record for build")
			}
			if !rec.Terminal || rec.Outcome != tt.wantOutcome {
				t.Errorf("stored record = %+v, want terminal with outcome %s", rec, tt.wantOutcome)
			}
		})
	}
}

func TestRunConfiguredPoll_MetricsCountEveryResponse(t *testing.T) {
	server, _ := statusServer(t, 3)

	def := config.PollDefinition{
		Name: "build",
		URL:  server.URL,
		Options: []pollkit.PollOption{
			pollkit.WithPollID("build"),
			pollkit.WithFrequency(50),
			pollkit.WithPredicate(pollkit.JSONField("status", "done")),
		},
	}
	collector := metrics.New()

	err := runConfiguredPoll(context.Background(), testSender(t), def, store.NewMemoryStore(), collector, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("runConfiguredPoll() error = %v", err)
	}

	rec := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()

	for _, want := range []string{
		`pollkit_responses_total{class="2xx",poll="build"} 3`,
		`pollkit_response_latency_seconds_count{poll="build"} 3`,
		`pollkit_events_total{kind="pollSent",poll="build"} 3`,
		`pollkit_events_total{kind="pollDone",poll="build"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}
