package poller

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// maxResponseBodySize caps how much of a response body is read. Bodies larger
// than this are reported as a transport error, never truncated.
const maxResponseBodySize = 10 << 20 // 10MB

// connection pooling limits to prevent resource exhaustion when many poll chains run at once
const (
	defaultMaxIdleConns        = 100
	defaultMaxIdleConnsPerHost = 10
	defaultMaxConnsPerHost     = 10
	defaultIdleConnTimeout     = 60 * time.Second // conservative: matches common ALB defaults
)

// contentTypeHeader is written after the caller's header mapping so it always wins.
const contentTypeHeader = "Content-type"

// errBodyTooLarge is returned when a response body exceeds maxResponseBodySize.
var errBodyTooLarge = fmt.Errorf("response body exceeds %d bytes", maxResponseBodySize)

// RequestInfo describes a single request to be sent by [Client].
//
// This is the poller-internal representation of a request, decoupled from the
// public pollkit.Request type to avoid circular dependencies.
type RequestInfo struct {
	// Method is the HTTP method. Empty defaults to GET.
	Method string

	// URL is the target URL.
	URL string

	// Headers are applied one key at a time before the content type.
	Headers map[string]string

	// HasBody reports whether Body and ContentType should be sent.
	HasBody bool

	// Body is the request payload. Ignored unless HasBody is set.
	Body []byte

	// ContentType is written as the Content-type header when HasBody is set,
	// even when empty.
	ContentType string
}

// Response holds the result of an HTTP request made by [Client].
type Response struct {
	// Method and URL identify the request that produced this response.
	Method string
	URL    string

	// Body contains the full HTTP response body.
	Body []byte

	// StatusCode is the HTTP status code (e.g., 200, 404, 500).
	// Zero if the request failed before receiving a response.
	StatusCode int

	// Header holds the response headers. Nil if no response was received.
	Header http.Header

	// Latency is the total time taken for the request.
	Latency time.Duration

	// Error contains any error that occurred during the request.
	// nil indicates the request completed (though status may indicate an error).
	Error error
}

// Outcome classifies a completed [Response].
type Outcome int

const (
	// OutcomeSuccess is a response with status exactly 200.
	OutcomeSuccess Outcome = iota
	// OutcomeFailure is a response with status 400 or above.
	OutcomeFailure
	// OutcomeUnhandled is any other status. No callback or event fires for it.
	OutcomeUnhandled
	// OutcomeTransportError means no status was received at all.
	OutcomeTransportError
)

// Classify maps a response to its [Outcome].
//
// Only 200 counts as success; other 2xx and 3xx codes are unhandled.
func Classify(resp Response) Outcome {
	switch {
	case resp.Error != nil:
		return OutcomeTransportError
	case resp.StatusCode == http.StatusOK:
		return OutcomeSuccess
	case resp.StatusCode >= http.StatusBadRequest:
		return OutcomeFailure
	default:
		return OutcomeUnhandled
	}
}

// Client is an HTTP client wrapper used by both single requests and poll chains.
//
// Client applies no per-request timeout of its own; the caller's context is
// the only way to abandon a request.
type Client struct {
	httpClient *http.Client
}

// NewClient creates a new [Client] with a pooled transport.
//
// Connection pooling configuration:
//   - MaxIdleConns: 100 total idle connections
//   - MaxIdleConnsPerHost: 10 idle connections per host
//   - MaxConnsPerHost: 10 concurrent connections per host
//   - IdleConnTimeout: 60 seconds before closing idle connections
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{
			// no default timeout - requests run until ctx is done
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        defaultMaxIdleConns,
				MaxIdleConnsPerHost: defaultMaxIdleConnsPerHost,
				MaxConnsPerHost:     defaultMaxConnsPerHost,
				IdleConnTimeout:     defaultIdleConnTimeout,
				DisableKeepAlives:   false, // explicitly enable connection reuse
			},
		},
	}
}

// NewClientWith wraps an existing *http.Client. A nil client falls back to [NewClient].
func NewClientWith(hc *http.Client) *Client {
	if hc == nil {
		return NewClient()
	}
	return &Client{httpClient: hc}
}

// Fetch performs an HTTP request and returns a structured [Response].
//
// Headers from the mapping are set first, then the Content-type header when
// the request carries a body. Fetch always returns a Response; errors are
// captured in the Error field rather than returned separately.
func (c *Client) Fetch(ctx context.Context, info RequestInfo) Response {
	start := time.Now()

	method := info.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if info.HasBody {
		body = bytes.NewReader(info.Body)
	}

	req, err := http.NewRequestWithContext(ctx, method, info.URL, body)
	if err != nil {
		return Response{
			Method:  method,
			URL:     info.URL,
			Latency: time.Since(start),
			Error:   fmt.Errorf("failed to create request: %w", err),
		}
	}

	for key, value := range info.Headers {
		req.Header.Set(key, value)
	}
	if info.HasBody {
		req.Header.Set(contentTypeHeader, info.ContentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Response{
			Method:  method,
			URL:     info.URL,
			Latency: time.Since(start),
			Error:   fmt.Errorf("request failed: %w", err),
		}
	}
	defer func() { _ = resp.Body.Close() }()

	// read one byte past the limit so oversized bodies are detectable
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize+1))
	if err == nil && len(data) > maxResponseBodySize {
		err = errBodyTooLarge
	}
	if err != nil {
		return Response{
			Method:     method,
			URL:        info.URL,
			StatusCode: resp.StatusCode,
			Header:     resp.Header,
			Latency:    time.Since(start),
			Error:      fmt.Errorf("failed to read response body: %w", err),
		}
	}

	return Response{
		Method:     method,
		URL:        info.URL,
		Body:       data,
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Latency:    time.Since(start),
	}
}

// Call is the pending result of [Client.Send].
type Call struct {
	done chan struct{}
	resp Response
}

// Done returns a channel that is closed once the response is available and
// the completion hook has returned.
func (c *Call) Done() <-chan struct{} {
	return c.done
}

// Response blocks until the call completes and returns its [Response].
func (c *Call) Response() Response {
	<-c.done
	return c.resp
}

// Send dispatches the request on its own goroutine and returns immediately.
//
// If then is non-nil it is invoked with the response before [Call.Done] is
// closed, so anyone waiting on the call observes its side effects.
func (c *Client) Send(ctx context.Context, info RequestInfo, then func(Response)) *Call {
	call := &Call{done: make(chan struct{})}
	go func() {
		defer close(call.done)
		call.resp = c.Fetch(ctx, info)
		if then != nil {
			then(call.resp)
		}
	}()
	return call
}

// Close closes all idle connections in the client's connection pool.
//
// Safe to call multiple times. After Close, the client remains usable but
// new connections will be established as needed.
func (c *Client) Close() {
	if c == nil || c.httpClient == nil {
		return
	}
	c.httpClient.CloseIdleConnections()
}

// IsCanceled reports whether a transport error was caused by ctx cancellation.
func IsCanceled(resp Response) bool {
	return resp.Error != nil && (errors.Is(resp.Error, context.Canceled) || errors.Is(resp.Error, context.DeadlineExceeded))
}
