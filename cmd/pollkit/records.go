package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/jpalmerr/pollkit"
	"github.com/jpalmerr/pollkit/internal/store"
)

// newLogger creates a JSON logger for CLI use.
func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// recordFromEvent converts a poll event into its stored representation.
func recordFromEvent(name, url string, ev pollkit.Event) store.Record {
	rec := store.Record{
		ID:          ev.PollID,
		Name:        name,
		URL:         url,
		Event:       ev.Name,
		Attempt:     ev.Attempt,
		RemainingMs: ev.Remaining.Milliseconds(),
		Terminal:    ev.Kind.Terminal(),
		At:          ev.At,
	}
	if ev.Response != nil {
		rec.StatusCode = ev.Response.StatusCode
		rec.ResponseTimeMs = ev.Response.Latency.Milliseconds()
	}
	if ev.Kind.Terminal() {
		rec.Outcome = outcomeForKind(ev.Kind).String()
	}
	return rec
}

// finishRecord marks a record as ended with the chain's final result. Event
// keeps the name of the last event actually emitted.
func finishRecord(rec store.Record, res pollkit.PollResult) store.Record {
	rec.ID = res.ID
	rec.Terminal = true
	rec.Outcome = res.Outcome.String()
	if res.Response != nil {
		rec.StatusCode = res.Response.StatusCode
		rec.ResponseTimeMs = res.Response.Latency.Milliseconds()
	}
	if res.Err != nil {
		rec.Error = res.Err.Error()
	}
	if rec.Attempt < res.Attempts {
		rec.Attempt = res.Attempts
	}
	return rec
}

func outcomeForKind(k pollkit.EventKind) pollkit.PollOutcome {
	switch k {
	case pollkit.EventDone:
		return pollkit.PollDone
	case pollkit.EventError:
		return pollkit.PollError
	case pollkit.EventTimeout:
		return pollkit.PollTimeout
	default:
		return ""
	}
}

// parseHeaderFlags converts "Key: Value" (or "Key=Value") flag values to
// alternating key/value pairs.
func parseHeaderFlags(values []string) ([]string, error) {
	pairs := make([]string, 0, len(values)*2)
	for _, v := range values {
		key, value, ok := strings.Cut(v, ":")
		if !ok {
			key, value, ok = strings.Cut(v, "=")
		}
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid header %q, expected \"Key: Value\"", v)
		}
		pairs = append(pairs, key, strings.TrimSpace(value))
	}
	return pairs, nil
}
