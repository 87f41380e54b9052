package pollkit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jpalmerr/pollkit/internal/poller"
)

// PollOutcome describes how a poll chain ended.
type PollOutcome string

const (
	// PollDone means the predicate was satisfied and the completion event emitted.
	PollDone PollOutcome = "done"

	// PollError means a request got a status of 400 or above and pollError was emitted.
	PollError PollOutcome = "error"

	// PollTimeout means the budget ran out and pollTimeout was emitted.
	PollTimeout PollOutcome = "timeout"

	// PollAbandoned means the chain stopped without emitting a terminal event:
	// an unhandled status, a transport error, or a panicking predicate.
	PollAbandoned PollOutcome = "abandoned"

	// PollCancelled means the context passed to [Sender.PollUntil] was cancelled.
	PollCancelled PollOutcome = "cancelled"
)

// String returns the string representation of the outcome.
func (o PollOutcome) String() string {
	return string(o)
}

// PollResult is the final state of a poll chain.
type PollResult struct {
	ID       string
	Outcome  PollOutcome
	Attempts int

	// Response is the last response received, if any.
	Response *Response

	// Err explains every outcome except [PollDone] and [PollTimeout].
	Err error
}

// Poll is a handle to a running poll chain started by [Sender.PollUntil].
type Poll struct {
	id    string
	url   string
	chain *poller.Chain
}

// ID returns the identifier carried by every event of the chain.
func (p *Poll) ID() string {
	return p.id
}

// URL returns the polled URL.
func (p *Poll) URL() string {
	return p.url
}

// Done returns a channel that is closed when the chain has ended and its
// final event, if any, has been delivered to every listener.
func (p *Poll) Done() <-chan struct{} {
	return p.chain.Done()
}

// Wait blocks until the chain has ended and returns its [PollResult].
func (p *Poll) Wait() PollResult {
	cr := p.chain.Wait()
	res := PollResult{
		ID:       p.id,
		Outcome:  PollOutcome(cr.Termination),
		Attempts: cr.Attempts,
		Err:      cr.Err,
	}
	if cr.Response != nil {
		res.Response = toPublicResponse(*cr.Response)
	}
	return res
}

// PollUntil repeatedly GETs rawURL until the predicate is satisfied by a 200
// response, the server answers with an error status, or the timeout budget
// runs out. It returns immediately; the chain runs in the background.
//
// Every request emits [EventSent]. The chain ends with exactly one of
// [EventDone], [EventError] or [EventTimeout], or with no terminal event if a
// response has an unhandled status or no response arrives at all.
// Cancelling ctx stops the chain without an event.
//
// Example:
//
//	poll, err := sender.PollUntil(ctx, "https://ci.example.com/jobs/42",
//	    pollkit.WithPredicate(pollkit.JSONField("state", "finished")),
//	    pollkit.WithTimeout(2*time.Minute),
//	    pollkit.WithFrequency(1),
//	    pollkit.WithListener(func(ev pollkit.Event) {
//	        log.Println(ev.Name, ev.Attempt)
//	    }),
//	)
func (s *Sender) PollUntil(ctx context.Context, rawURL string, opts ...PollOption) (*Poll, error) {
	if err := validateURL(rawURL); err != nil {
		return nil, err
	}

	cfg := &pollConfig{
		predicate: Always,
		timeout:   defaultPollTimeout,
		frequency: defaultPollFrequency,
		doneName:  string(EventDone),
		headers:   make(map[string]string),
	}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}
	if cfg.id == "" {
		cfg.id = uuid.NewString()
	}

	info := poller.ChainInfo{
		ID:         cfg.id,
		URL:        rawURL,
		Headers:    copyMap(cfg.headers),
		Predicate:  cfg.predicate,
		Timeout:    cfg.timeout,
		Delay:      time.Duration(float64(time.Second) / cfg.frequency),
		DoneName:   cfg.doneName,
		DoneDetail: cfg.doneDetail,
	}

	listeners := append([]func(Event){}, cfg.listeners...)
	emit := func(ev poller.EventInfo) {
		if len(listeners) == 0 {
			return
		}
		pub := toPublicEvent(ev)
		for _, fn := range listeners {
			s.invokeSafe("poll listener", func() { fn(pub) })
		}
	}

	if len(cfg.onResult) > 0 {
		resultListeners := append([]func(Result){}, cfg.onResult...)
		info.OnResponse = func(pr poller.Response) {
			r := newResult(pr)
			for _, fn := range resultListeners {
				s.invokeSafe("poll result listener", func() { fn(r) })
			}
		}
	}

	s.logger.Debug("starting poll chain",
		"poll_id", info.ID,
		"url", info.URL,
		"timeout", info.Timeout,
		"delay", info.Delay,
	)

	chain := poller.NewChain(info, s.client, emit, s.logger)
	chain.Start(ctx)

	return &Poll{id: info.ID, url: rawURL, chain: chain}, nil
}
