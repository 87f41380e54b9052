package config

import (
	"sort"

	"github.com/jpalmerr/pollkit"
)

// PollDefinition is a configured poll ready to be started with
// [pollkit.Sender.PollUntil].
type PollDefinition struct {
	Name    string
	URL     string
	Options []pollkit.PollOption
}

// BuildPolls converts parsed configuration into poll definitions.
//
// Each definition carries its name as the poll ID, so events, API records and
// metrics can be correlated back to the configuration entry.
func BuildPolls(cfg *Config) ([]PollDefinition, error) {
	defs := make([]PollDefinition, 0, len(cfg.Polls))
	for _, pc := range cfg.Polls {
		def, err := buildPoll(pc)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}

// buildPoll converts a single PollConfig to a PollDefinition.
func buildPoll(pc PollConfig) (PollDefinition, error) {
	opts := []pollkit.PollOption{pollkit.WithPollID(pc.Name)}

	if pc.Token != "" {
		opts = append(opts, pollkit.WithAuthToken(pc.Token))
	}

	if len(pc.Headers) > 0 {
		opts = append(opts, pollkit.WithPollHeaders(mapToKeyValuePairs(pc.Headers)...))
	}

	if pc.Timeout != nil {
		opts = append(opts, pollkit.WithTimeout(pc.Timeout.Duration()))
	}

	if pc.Frequency != 0 {
		opts = append(opts, pollkit.WithFrequency(pc.Frequency))
	}

	predicate, err := BuildPredicate(pc.Until)
	if err != nil {
		return PollDefinition{}, err
	}
	if predicate != nil {
		opts = append(opts, pollkit.WithPredicate(predicate))
	}

	if pc.DoneEvent != "" || pc.DoneDetail != nil {
		name := pc.DoneEvent
		if name == "" {
			name = string(pollkit.EventDone)
		}
		opts = append(opts, pollkit.WithDoneEvent(name, pc.DoneDetail))
	}

	return PollDefinition{Name: pc.Name, URL: pc.URL, Options: opts}, nil
}

// BuildPredicate converts an UntilConfig to a predicate.
// Returns nil for always/empty configurations (the SDK default).
func BuildPredicate(u UntilConfig) (pollkit.Predicate, error) {
	switch u.Type {
	case "", "always":
		// nil signals the SDK default
		return nil, nil
	case "contains":
		return pollkit.Contains(u.Text), nil
	case "regex":
		return pollkit.Matches(u.Pattern)
	case "json":
		if u.HasValue {
			return pollkit.JSONField(u.Path, u.Value), nil
		}
		return pollkit.JSONFieldExists(u.Path), nil
	default:
		// validation should catch this, but return nil as fallback
		return nil, nil
	}
}

// mapToKeyValuePairs converts a map to a sorted slice of key-value pairs.
func mapToKeyValuePairs(m map[string]string) []string {
	// sort keys for deterministic ordering
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(m)*2)
	for _, k := range keys {
		pairs = append(pairs, k, m[k])
	}
	return pairs
}
