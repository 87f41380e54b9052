package pollkit

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jpalmerr/pollkit/internal/poller"
)

// ErrUnhandledStatus is wrapped by the error of a [Result] whose status is
// neither 200 nor 400 or above. Such responses trigger no callback and no
// poll event.
var ErrUnhandledStatus = errors.New("unhandled response status")

// Outcome classifies how a request completed.
type Outcome string

const (
	// OutcomeSuccess is a response with status exactly 200.
	OutcomeSuccess Outcome = "success"

	// OutcomeFailure is a response with status 400 or above.
	OutcomeFailure Outcome = "failure"

	// OutcomeUnhandled is a response with any other status (1xx, 201-399).
	OutcomeUnhandled Outcome = "unhandled"

	// OutcomeTransportError means no response status was received.
	OutcomeTransportError Outcome = "transport_error"
)

// String returns the string representation of the outcome.
func (o Outcome) String() string {
	return string(o)
}

// Response is a completed HTTP response together with the request that
// produced it.
type Response struct {
	// Method and URL identify the request.
	Method string
	URL    string

	// StatusCode is the HTTP status code.
	StatusCode int

	// Header holds the response headers.
	Header http.Header

	// Body is the full response body.
	Body []byte

	// Latency is the time between dispatch and the body being fully read.
	Latency time.Duration
}

// Text returns the raw response text.
func (r *Response) Text() string {
	if r == nil {
		return ""
	}
	return string(r.Body)
}

// StatusError is the error of a [Result] whose status is 400 or above.
type StatusError struct {
	Response *Response
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d", e.Response.Method, e.Response.URL, e.Response.StatusCode)
}

// Result is the outcome of one request issued by a [Sender].
//
// Response is set whenever a status was received. Err is nil only for
// [OutcomeSuccess]; it is a *[StatusError] for [OutcomeFailure], wraps
// [ErrUnhandledStatus] for [OutcomeUnhandled], and wraps the underlying
// network or context error for [OutcomeTransportError].
type Result struct {
	Outcome  Outcome
	Response *Response
	Err      error
}

// Text returns the response text of a successful result, or the result's error.
func (r Result) Text() (string, error) {
	if r.Outcome != OutcomeSuccess {
		return "", r.Err
	}
	return r.Response.Text(), nil
}

// newResult converts a poller response into a public [Result].
func newResult(pr poller.Response) Result {
	switch poller.Classify(pr) {
	case poller.OutcomeSuccess:
		return Result{Outcome: OutcomeSuccess, Response: toPublicResponse(pr)}
	case poller.OutcomeFailure:
		resp := toPublicResponse(pr)
		return Result{Outcome: OutcomeFailure, Response: resp, Err: &StatusError{Response: resp}}
	case poller.OutcomeUnhandled:
		return Result{
			Outcome:  OutcomeUnhandled,
			Response: toPublicResponse(pr),
			Err:      fmt.Errorf("%w: %d", ErrUnhandledStatus, pr.StatusCode),
		}
	default:
		var resp *Response
		if pr.StatusCode != 0 {
			resp = toPublicResponse(pr)
		}
		return Result{Outcome: OutcomeTransportError, Response: resp, Err: pr.Error}
	}
}

// toPublicResponse copies a poller response into a public [Response].
func toPublicResponse(pr poller.Response) *Response {
	return &Response{
		Method:     pr.Method,
		URL:        pr.URL,
		StatusCode: pr.StatusCode,
		Header:     pr.Header.Clone(),
		Body:       append([]byte(nil), pr.Body...),
		Latency:    pr.Latency,
	}
}
