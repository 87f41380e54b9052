package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func scrape(t *testing.T, c *Collector) string {
	t.Helper()
	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(body)
}

func TestStatusClass(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{100, "1xx"},
		{200, "2xx"},
		{204, "2xx"},
		{304, "3xx"},
		{404, "4xx"},
		{503, "5xx"},
		{0, "other"},
		{99, "other"},
		{600, "other"},
	}
	for _, tt := range tests {
		if got := StatusClass(tt.code); got != tt.want {
			t.Errorf("StatusClass(%d) = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestCollector_Exposition(t *testing.T) {
	c := New()
	c.ObserveEvent("build", "pollSent")
	c.ObserveEvent("build", "pollSent")
	c.ObserveEvent("build", "pollDone")
	c.ObserveResponse("build", 200, 120*time.Millisecond)
	c.ObserveResponse("deploy", 404, 30*time.Millisecond)
	c.PollStarted()
	c.PollStarted()
	c.PollFinished()

	body := scrape(t, c)

	wants := []string{
		`pollkit_events_total{kind="pollSent",poll="build"} 2`,
		`pollkit_events_total{kind="pollDone",poll="build"} 1`,
		`pollkit_responses_total{class="2xx",poll="build"} 1`,
		`pollkit_responses_total{class="4xx",poll="deploy"} 1`,
		`pollkit_response_latency_seconds_count{poll="build"} 1`,
		`pollkit_active_polls 1`,
		`go_goroutines`,
	}
	for _, want := range wants {
		if !strings.Contains(body, want) {
			t.Errorf("exposition missing %q", want)
		}
	}
}

func TestCollector_Independent(t *testing.T) {
	a, b := New(), New()
	a.ObserveEvent("x", "pollSent")

	if strings.Contains(scrape(t, b), `pollkit_events_total{kind="pollSent",poll="x"}`) {
		t.Error("collectors should not share registries")
	}
}
