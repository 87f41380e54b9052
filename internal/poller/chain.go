package poller

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event kinds emitted by a [Chain].
const (
	KindSent    = "pollSent"
	KindDone    = "pollDone"
	KindError   = "pollError"
	KindTimeout = "pollTimeout"
)

// Termination describes how a [Chain] ended.
type Termination string

const (
	TerminatedDone      Termination = "done"
	TerminatedError     Termination = "error"
	TerminatedTimeout   Termination = "timeout"
	TerminatedAbandoned Termination = "abandoned"
	TerminatedCancelled Termination = "cancelled"
)

// ChainInfo contains the configuration of one poll chain.
//
// This is the poller-internal representation, decoupled from the public
// pollkit options to avoid circular dependencies. Every field is used on
// every iteration.
type ChainInfo struct {
	// ID identifies the chain in emitted events.
	ID string

	// URL is polled with GET.
	URL string

	// Headers are sent with every request of the chain.
	Headers map[string]string

	// Predicate decides from the response text whether polling is complete.
	// Nil means the first successful response completes the chain.
	Predicate func(text string) bool

	// Timeout is the total budget, reduced by Delay after every unsatisfied poll.
	Timeout time.Duration

	// Delay is the wait between a response and the next request.
	Delay time.Duration

	// DoneName is the name of the completion event. Empty means KindDone.
	DoneName string

	// DoneDetail is attached to the completion event unchanged.
	DoneDetail any

	// OnResponse, if set, receives the outcome of every request before it is
	// classified, including unsatisfied 200s and transport errors.
	OnResponse func(Response)
}

// EventInfo is one notification emitted by a [Chain].
type EventInfo struct {
	ChainID   string
	Kind      string
	Name      string
	Attempt   int
	Remaining time.Duration
	Response  *Response
	Detail    any
	At        time.Time
}

// ChainResult is the final state of a [Chain], available once it is done.
type ChainResult struct {
	Termination Termination
	Attempts    int
	Response    *Response
	Err         error
}

// Chain repeatedly GETs one URL until its predicate is satisfied, the server
// answers with an error status, or the timeout budget runs out.
//
// Requests are strictly sequential: the next one is not scheduled until the
// previous outcome is known. Independent chains share nothing but the Client.
type Chain struct {
	info   ChainInfo
	client *Client
	emit   func(EventInfo)
	logger *slog.Logger

	mu      sync.Mutex
	started bool
	done    chan struct{}
	result  ChainResult
}

// NewChain creates a [Chain]. emit receives every event synchronously on the
// chain goroutine and may be nil.
func NewChain(info ChainInfo, client *Client, emit func(EventInfo), logger *slog.Logger) *Chain {
	if logger == nil {
		logger = slog.Default()
	}
	if emit == nil {
		emit = func(EventInfo) {}
	}
	return &Chain{
		info:   info,
		client: client,
		emit:   emit,
		logger: logger.With("poll_id", info.ID, "url", info.URL),
		done:   make(chan struct{}),
	}
}

// Start runs the chain in a background goroutine.
//
// Start is idempotent; subsequent calls after the first are no-ops. If ctx
// is nil, context.Background() is used. Cancelling ctx ends the chain
// without emitting an event.
func (c *Chain) Start(ctx context.Context) {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.mu.Unlock()

	if ctx == nil {
		ctx = context.Background()
	}

	go func() {
		defer close(c.done)
		c.result = c.run(ctx)
		c.logger.Debug("poll chain finished",
			"termination", string(c.result.Termination),
			"attempts", c.result.Attempts,
		)
	}()
}

// Done returns a channel that is closed when the chain has ended.
func (c *Chain) Done() <-chan struct{} {
	return c.done
}

// Wait blocks until the chain has ended and returns its result.
func (c *Chain) Wait() ChainResult {
	<-c.done
	return c.result
}

// run is the chain body. Each loop iteration is one poll step.
func (c *Chain) run(ctx context.Context) ChainResult {
	remaining := c.info.Timeout
	attempts := 0
	request := RequestInfo{
		Method:  http.MethodGet,
		URL:     c.info.URL,
		Headers: c.info.Headers,
	}

	for {
		if remaining <= 0 {
			c.emitEvent(KindTimeout, KindTimeout, attempts, remaining, nil, nil)
			return ChainResult{Termination: TerminatedTimeout, Attempts: attempts}
		}

		attempts++
		call := c.client.Send(ctx, request, nil)
		c.emitEvent(KindSent, KindSent, attempts, remaining, nil, nil)

		resp := call.Response()
		if c.info.OnResponse != nil {
			c.info.OnResponse(resp)
		}
		switch Classify(resp) {
		case OutcomeFailure:
			c.emitEvent(KindError, KindError, attempts, remaining, &resp, nil)
			return ChainResult{
				Termination: TerminatedError,
				Attempts:    attempts,
				Response:    &resp,
				Err:         fmt.Errorf("poll request failed with status %d", resp.StatusCode),
			}

		case OutcomeUnhandled:
			c.logger.Warn("poll chain abandoned on unhandled status", "status_code", resp.StatusCode)
			return ChainResult{
				Termination: TerminatedAbandoned,
				Attempts:    attempts,
				Response:    &resp,
				Err:         fmt.Errorf("unhandled response status %d", resp.StatusCode),
			}

		case OutcomeTransportError:
			if IsCanceled(resp) && ctx.Err() != nil {
				return ChainResult{Termination: TerminatedCancelled, Attempts: attempts, Err: ctx.Err()}
			}
			c.logger.Warn("poll chain abandoned on transport error", "error", resp.Error)
			return ChainResult{Termination: TerminatedAbandoned, Attempts: attempts, Err: resp.Error}
		}

		satisfied, err := c.safePredicate(string(resp.Body))
		if err != nil {
			return ChainResult{Termination: TerminatedAbandoned, Attempts: attempts, Response: &resp, Err: err}
		}
		if satisfied {
			name := c.info.DoneName
			if name == "" {
				name = KindDone
			}
			c.emitEvent(KindDone, name, attempts, remaining, &resp, c.info.DoneDetail)
			return ChainResult{Termination: TerminatedDone, Attempts: attempts, Response: &resp}
		}

		if !c.sleep(ctx, c.info.Delay) {
			return ChainResult{Termination: TerminatedCancelled, Attempts: attempts, Response: &resp, Err: ctx.Err()}
		}
		remaining -= c.info.Delay
	}
}

// sleep waits for d or until ctx is done. It reports whether the full delay elapsed.
func (c *Chain) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (c *Chain) emitEvent(kind, name string, attempt int, remaining time.Duration, resp *Response, detail any) {
	c.emit(EventInfo{
		ChainID:   c.info.ID,
		Kind:      kind,
		Name:      name,
		Attempt:   attempt,
		Remaining: remaining,
		Response:  resp,
		Detail:    detail,
		At:        time.Now(),
	})
}

// safePredicate calls the predicate with panic recovery.
// If the predicate panics, it logs the full stack trace with a correlation ID
// and returns an error containing the ID.
func (c *Chain) safePredicate(text string) (satisfied bool, err error) {
	if c.info.Predicate == nil {
		return true, nil
	}
	defer func() {
		if r := recover(); r != nil {
			correlationID := uuid.NewString()
			stack := debug.Stack()

			c.logger.Error("predicate panic",
				"correlation_id", correlationID,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(stack),
			)

			satisfied = false
			err = fmt.Errorf("predicate panic (correlation_id: %s)", correlationID)
		}
	}()
	return c.info.Predicate(text), nil
}
