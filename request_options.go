package pollkit

import (
	"errors"
	"strings"
)

// requestConfig holds mutable state during request construction.
type requestConfig struct {
	headers     map[string]string
	hasBody     bool
	body        []byte
	contentType string
}

// RequestOption is a function that configures a [Request] during construction.
//
// Built-in options: [WithHeaders], [WithHeader], [WithBearerToken], [WithBody].
type RequestOption func(*requestConfig) error

// WithHeaders adds HTTP headers to the request.
//
// Accepts variadic key-value pairs. The number of arguments must be even.
// Keys are unique; a later value for the same key replaces the earlier one.
//
// A Content-type given here is overridden by the content type passed to
// [WithBody], which is always written last.
//
// Returns an error if an odd number of arguments is provided or a key is empty.
func WithHeaders(keyValues ...string) RequestOption {
	return func(cfg *requestConfig) error {
		if len(keyValues)%2 != 0 {
			return errors.New("WithHeaders requires an even number of arguments (key-value pairs)")
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

// WithHeader adds a single HTTP header to the request.
func WithHeader(key, value string) RequestOption {
	return WithHeaders(key, value)
}

// WithBearerToken adds an "Authorization: Bearer <token>" header.
//
// The token is passed through verbatim; it is neither validated nor refreshed.
func WithBearerToken(token string) RequestOption {
	return WithHeaders("Authorization", "Bearer "+token)
}

// WithBody attaches a payload and the content type that describes it.
//
// The content type is written as the Content-type header after all other
// headers, even when it is empty. An empty payload means "no body": nothing
// is sent and no Content-type header is written.
func WithBody(payload []byte, contentType string) RequestOption {
	return func(cfg *requestConfig) error {
		if len(payload) == 0 {
			cfg.hasBody = false
			cfg.body = nil
			cfg.contentType = ""
			return nil
		}
		cfg.hasBody = true
		cfg.body = append([]byte(nil), payload...)
		cfg.contentType = contentType
		return nil
	}
}
