package pollkit

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/jpalmerr/pollkit/internal/poller"
)

// Content types used by the convenience entry points.
const (
	ContentTypeForm = "application/x-www-form-urlencoded"
	ContentTypeJSON = "application/json"
)

// Request describes a single HTTP request to be issued by a [Sender].
//
// Request is immutable after creation via [NewRequest]. All fields are
// private with getter methods that return copies of mutable data, so a
// Request can be sent any number of times, from any goroutine.
//
// The body is an explicit optional: [Request.HasBody] distinguishes "no body"
// from everything else, and a body always travels with its content type.
type Request struct {
	method      string
	url         string
	headers     map[string]string
	hasBody     bool
	body        []byte
	contentType string
}

// Method returns the HTTP method.
func (r Request) Method() string {
	return r.method
}

// URL returns the target URL as a string.
func (r Request) URL() string {
	return r.url
}

// Headers returns a copy of the header mapping.
// The Content-type header derived from the body is not included.
func (r Request) Headers() map[string]string {
	return copyMap(r.headers)
}

// HasBody reports whether the request carries a body.
func (r Request) HasBody() bool {
	return r.hasBody
}

// Body returns a copy of the request body, or nil if there is none.
func (r Request) Body() []byte {
	if !r.hasBody {
		return nil
	}
	return append([]byte(nil), r.body...)
}

// ContentType returns the content type that accompanies the body and
// whether one will be sent. It is only sent when the request has a body.
func (r Request) ContentType() (string, bool) {
	return r.contentType, r.hasBody
}

// NewRequest creates a [Request] with the given method, URL and options.
//
// The method must be GET, HEAD or POST. The rawURL must be a valid URL with
// an http or https scheme.
//
// Options are applied in order. See [WithHeaders], [WithHeader],
// [WithBearerToken] and [WithBody].
//
// Example:
//
//	req, err := pollkit.NewRequest(http.MethodPost, "https://api.example.com/jobs",
//	    pollkit.WithBearerToken(token),
//	    pollkit.WithBody([]byte(`{"name":"nightly"}`), pollkit.ContentTypeJSON),
//	)
func NewRequest(method, rawURL string, opts ...RequestOption) (Request, error) {
	if err := validateMethod(method); err != nil {
		return Request{}, err
	}
	if err := validateURL(rawURL); err != nil {
		return Request{}, err
	}

	cfg := &requestConfig{
		headers: make(map[string]string),
	}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return Request{}, err
		}
	}

	return Request{
		method:      method,
		url:         rawURL,
		headers:     cfg.headers,
		hasBody:     cfg.hasBody,
		body:        cfg.body,
		contentType: cfg.contentType,
	}, nil
}

// validateMethod accepts the small fixed set of verbs the sender supports.
func validateMethod(method string) error {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodPost:
		return nil
	default:
		return errors.New("method must be GET, HEAD, or POST")
	}
}

// validateURL checks that rawURL is non-empty, parseable and http(s).
func validateURL(rawURL string) error {
	if rawURL == "" {
		return errors.New("URL cannot be empty")
	}
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL: " + err.Error())
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return errors.New("URL must have an http:// or https:// scheme")
	}
	return nil
}

// toRequestInfo converts the request to the poller-internal representation.
func (r Request) toRequestInfo() poller.RequestInfo {
	return poller.RequestInfo{
		Method:      r.method,
		URL:         r.url,
		Headers:     copyMap(r.headers),
		HasBody:     r.hasBody,
		Body:        r.body,
		ContentType: r.contentType,
	}
}

// copyMap returns a shallow copy of the map.
func copyMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	cp := make(map[string]string, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}
