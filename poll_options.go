package pollkit

import (
	"errors"
	"math"
	"strings"
	"time"
)

const (
	defaultPollTimeout   = 60 * time.Second
	defaultPollFrequency = 2.0 // polls per second
)

// pollConfig holds mutable state during poll construction.
type pollConfig struct {
	id         string
	predicate  Predicate
	timeout    time.Duration
	frequency  float64
	doneName   string
	doneDetail any
	listeners  []func(Event)
	onResult   []func(Result)
	headers    map[string]string
}

// PollOption configures a poll chain started by [Sender.PollUntil].
//
// Built-in options: [WithPredicate], [WithTimeout], [WithFrequency],
// [WithDoneEvent], [WithListener], [WithResultListener], [WithPollID],
// [WithAuthToken], [WithPollHeaders].
type PollOption func(*pollConfig) error

// WithPredicate sets the completion predicate evaluated against the text of
// every 200 response. Defaults to [Always], so the first 200 response wins.
//
// Returns an error if the predicate is nil.
func WithPredicate(p Predicate) PollOption {
	return func(cfg *pollConfig) error {
		if p == nil {
			return errors.New("predicate cannot be nil")
		}
		cfg.predicate = p
		return nil
	}
}

// WithTimeout sets the total timeout budget of the chain. Defaults to 60 seconds.
//
// The budget is reduced by the inter-poll delay after every unsatisfied
// response; request latency does not count against it. A zero budget emits
// [EventTimeout] without issuing any request.
//
// Returns an error if the duration is negative.
func WithTimeout(d time.Duration) PollOption {
	return func(cfg *pollConfig) error {
		if d < 0 {
			return errors.New("timeout cannot be negative")
		}
		cfg.timeout = d
		return nil
	}
}

// WithFrequency sets how many polls per second are issued. Defaults to 2.
// The delay between a response and the next request is one second divided
// by the frequency.
//
// Returns an error if the frequency is not a finite positive number.
func WithFrequency(pollsPerSecond float64) PollOption {
	return func(cfg *pollConfig) error {
		if math.IsNaN(pollsPerSecond) || math.IsInf(pollsPerSecond, 0) || pollsPerSecond <= 0 {
			return errors.New("frequency must be a finite positive number")
		}
		if time.Duration(float64(time.Second)/pollsPerSecond) <= 0 {
			return errors.New("frequency is too high")
		}
		cfg.frequency = pollsPerSecond
		return nil
	}
}

// WithDoneEvent customises the completion event. Listeners receive it with
// Kind [EventDone], the given name, and detail attached unchanged.
// Defaults to the name "pollDone" and no detail.
//
// Returns an error if the name is empty.
func WithDoneEvent(name string, detail any) PollOption {
	return func(cfg *pollConfig) error {
		if strings.TrimSpace(name) == "" {
			return errors.New("done event name cannot be empty")
		}
		cfg.doneName = name
		cfg.doneDetail = detail
		return nil
	}
}

// WithListener registers a function that receives every [Event] of the chain.
//
// Multiple listeners may be registered; they run in registration order,
// synchronously on the chain goroutine, so they must not block. Panics are
// recovered and logged. Nil listeners are silently ignored.
func WithListener(fn func(Event)) PollOption {
	return func(cfg *pollConfig) error {
		if fn == nil {
			return nil
		}
		cfg.listeners = append(cfg.listeners, fn)
		return nil
	}
}

// WithResultListener registers a function that receives the [Result] of
// every request the chain issues, whether or not it ends the chain. Use it
// for per-request accounting; events only carry the terminal response.
//
// Listeners run synchronously on the chain goroutine after each response and
// before any event for it. Panics are recovered and logged. Nil listeners
// are silently ignored.
func WithResultListener(fn func(Result)) PollOption {
	return func(cfg *pollConfig) error {
		if fn == nil {
			return nil
		}
		cfg.onResult = append(cfg.onResult, fn)
		return nil
	}
}

// WithPollID sets the identifier carried by every event of the chain.
// Defaults to a random UUID.
//
// Returns an error if the ID is empty.
func WithPollID(id string) PollOption {
	return func(cfg *pollConfig) error {
		if strings.TrimSpace(id) == "" {
			return errors.New("poll ID cannot be empty")
		}
		cfg.id = id
		return nil
	}
}

// WithAuthToken sends "Authorization: Bearer <token>" with every poll request.
func WithAuthToken(token string) PollOption {
	return func(cfg *pollConfig) error {
		cfg.headers["Authorization"] = "Bearer " + token
		return nil
	}
}

// WithPollHeaders adds headers sent with every poll request.
//
// Accepts variadic key-value pairs. The number of arguments must be even.
func WithPollHeaders(keyValues ...string) PollOption {
	return func(cfg *pollConfig) error {
		if len(keyValues)%2 != 0 {
			return errors.New("WithPollHeaders requires an even number of arguments (key-value pairs)")
		}
		for i := 0; i < len(keyValues); i += 2 {
			if strings.TrimSpace(keyValues[i]) == "" {
				return errors.New("header name cannot be empty")
			}
			cfg.headers[keyValues[i]] = keyValues[i+1]
		}
		return nil
	}
}
