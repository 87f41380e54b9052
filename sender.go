package pollkit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"runtime/debug"

	"github.com/google/uuid"

	"github.com/jpalmerr/pollkit/internal/poller"
)

// Sender issues HTTP requests and drives poll chains.
//
// A Sender is safe for concurrent use. It holds a pooled HTTP client and a
// logger and nothing else: requests and polls never share state through it.
// Create one with [NewSender] and release idle connections with
// [Sender.Close] when done.
type Sender struct {
	client *poller.Client
	logger *slog.Logger
}

// senderConfig holds mutable state during Sender construction.
type senderConfig struct {
	logger     *slog.Logger
	httpClient *http.Client
}

// SenderOption configures a [Sender] during construction.
type SenderOption func(*senderConfig) error

// WithLogger sets a custom [slog.Logger]. If not specified, [slog.Default] is used.
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) SenderOption {
	return func(cfg *senderConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithHTTPClient replaces the default pooled client, for custom transports,
// proxies or TLS settings. The client's own Timeout, if any, applies.
//
// Returns an error if the client is nil.
func WithHTTPClient(hc *http.Client) SenderOption {
	return func(cfg *senderConfig) error {
		if hc == nil {
			return errors.New("http client cannot be nil")
		}
		cfg.httpClient = hc
		return nil
	}
}

// NewSender creates a [Sender].
//
// Example:
//
//	sender, err := pollkit.NewSender(pollkit.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	defer sender.Close()
func NewSender(opts ...SenderOption) (*Sender, error) {
	cfg := &senderConfig{}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	var client *poller.Client
	if cfg.httpClient != nil {
		client = poller.NewClientWith(cfg.httpClient)
	} else {
		client = poller.NewClient()
	}

	return &Sender{client: client, logger: logger}, nil
}

// Close releases idle pooled connections. Safe to call multiple times.
func (s *Sender) Close() {
	s.client.Close()
}

// Call is the pending result of one request issued by a [Sender].
type Call struct {
	inner  *poller.Call
	result Result
}

// Done returns a channel that is closed once the request has completed and
// any callbacks have returned.
func (c *Call) Done() <-chan struct{} {
	return c.inner.Done()
}

// Wait blocks until the request has completed and returns its [Result].
func (c *Call) Wait() Result {
	<-c.inner.Done()
	return c.result
}

// Send issues exactly one asynchronous request and returns immediately.
//
// The request runs until it completes or ctx is done; no other timeout is
// applied. Use [Call.Wait] or [Call.Done] to observe the [Result].
func (s *Sender) Send(ctx context.Context, req Request) *Call {
	return s.dispatch(ctx, req, nil, nil)
}

// Do issues one request and blocks until its [Result] is available.
func (s *Sender) Do(ctx context.Context, req Request) Result {
	return s.Send(ctx, req).Wait()
}

// SendFunc issues one asynchronous request and reports its outcome through
// callbacks:
//
//   - status 200: onSuccess is called once with the exact response text
//   - status 400 or above: onError, if non-nil, is called once with the response
//   - any other status, or no status at all: neither callback is called
//
// Callbacks run on the request goroutine before [Call.Done] is closed.
// Panics inside a callback are recovered and logged.
func (s *Sender) SendFunc(ctx context.Context, req Request, onSuccess func(text string), onError func(*Response)) *Call {
	return s.dispatch(ctx, req, onSuccess, onError)
}

// Get issues an unauthenticated GET. See [Sender.SendFunc] for callback semantics.
func (s *Sender) Get(ctx context.Context, rawURL string, onSuccess func(string), onError func(*Response)) (*Call, error) {
	req, err := NewRequest(http.MethodGet, rawURL)
	if err != nil {
		return nil, err
	}
	return s.SendFunc(ctx, req, onSuccess, onError), nil
}

// GetAuth issues a GET with an "Authorization: Bearer <token>" header.
func (s *Sender) GetAuth(ctx context.Context, rawURL, token string, onSuccess func(string), onError func(*Response)) (*Call, error) {
	req, err := NewRequest(http.MethodGet, rawURL, WithBearerToken(token))
	if err != nil {
		return nil, err
	}
	return s.SendFunc(ctx, req, onSuccess, onError), nil
}

// PostForm issues a POST with a URL-encoded form body. Empty form values
// produce a request without body or Content-type header.
func (s *Sender) PostForm(ctx context.Context, rawURL string, form url.Values, onSuccess func(string), onError func(*Response)) (*Call, error) {
	req, err := NewRequest(http.MethodPost, rawURL, WithBody([]byte(form.Encode()), ContentTypeForm))
	if err != nil {
		return nil, err
	}
	return s.SendFunc(ctx, req, onSuccess, onError), nil
}

// PostJSON issues a POST with a JSON body. The body is sent verbatim.
func (s *Sender) PostJSON(ctx context.Context, rawURL string, body []byte, onSuccess func(string), onError func(*Response)) (*Call, error) {
	req, err := NewRequest(http.MethodPost, rawURL, WithBody(body, ContentTypeJSON))
	if err != nil {
		return nil, err
	}
	return s.SendFunc(ctx, req, onSuccess, onError), nil
}

// dispatch hands the request to the transport and wires the completion hook.
func (s *Sender) dispatch(ctx context.Context, req Request, onSuccess func(string), onError func(*Response)) *Call {
	if ctx == nil {
		ctx = context.Background()
	}

	s.logger.Debug("sending request", "method", req.method, "url", req.url, "has_body", req.hasBody)

	call := &Call{}
	call.inner = s.client.Send(ctx, req.toRequestInfo(), func(pr poller.Response) {
		call.result = newResult(pr)
		s.logResult(call.result, pr)
		s.invokeCallbacks(call.result, onSuccess, onError)
	})
	return call
}

// logResult logs one completed request. Normal traffic is logged at DEBUG level.
func (s *Sender) logResult(r Result, pr poller.Response) {
	attrs := []any{
		"method", pr.Method,
		"url", pr.URL,
		"outcome", r.Outcome.String(),
		"status_code", pr.StatusCode,
		"latency_ms", pr.Latency.Milliseconds(),
	}
	switch r.Outcome {
	case OutcomeSuccess, OutcomeFailure:
		s.logger.Debug("request completed", attrs...)
	case OutcomeUnhandled:
		s.logger.Warn("response status not handled, no callback invoked", attrs...)
	default:
		s.logger.Warn("request failed", append(attrs, "error", r.Err.Error())...)
	}
}

// invokeCallbacks routes a result to the matching callback.
func (s *Sender) invokeCallbacks(r Result, onSuccess func(string), onError func(*Response)) {
	switch r.Outcome {
	case OutcomeSuccess:
		if onSuccess != nil {
			text := r.Response.Text()
			s.invokeSafe("success callback", func() { onSuccess(text) })
		}
	case OutcomeFailure:
		if onError != nil {
			resp := r.Response
			s.invokeSafe("error callback", func() { onError(resp) })
		}
	}
}

// invokeSafe calls fn with panic recovery.
// A panic is logged with a correlation ID and full stack trace.
func (s *Sender) invokeSafe(what string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error(what+" panic",
				"correlation_id", uuid.NewString(),
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
		}
	}()
	fn()
}
