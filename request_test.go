package pollkit

import (
	"net/http"
	"testing"
)

func TestNewRequest_Valid(t *testing.T) {
	req, err := NewRequest(http.MethodGet, "https://api.example.com/jobs")
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}

	if req.Method() != http.MethodGet {
		t.Errorf("Method() = %v, want %v", req.Method(), http.MethodGet)
	}
	if req.URL() != "https://api.example.com/jobs" {
		t.Errorf("URL() = %v, want %v", req.URL(), "https://api.example.com/jobs")
	}
	if req.HasBody() {
		t.Error("HasBody() = true, want false")
	}
	if req.Body() != nil {
		t.Errorf("Body() = %q, want nil", req.Body())
	}
	if len(req.Headers()) != 0 {
		t.Errorf("Headers() = %v, want empty", req.Headers())
	}
}

func TestNewRequest_Methods(t *testing.T) {
	tests := []struct {
		method  string
		wantErr bool
	}{
		{http.MethodGet, false},
		{http.MethodHead, false},
		{http.MethodPost, false},
		{http.MethodPut, true},
		{http.MethodDelete, true},
		{"get", true},
		{"", true},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			_, err := NewRequest(tt.method, "https://api.example.com")
			if (err != nil) != tt.wantErr {
				t.Errorf("NewRequest(%q) error = %v, wantErr %v", tt.method, err, tt.wantErr)
			}
		})
	}
}

func TestNewRequest_InvalidURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{"no scheme", "api.example.com/jobs"},
		{"empty url", ""},
		{"just path", "/jobs"},
		{"ftp scheme", "ftp://files.example.com"},
		{"bad escape", "http://example.com/%zz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRequest(http.MethodGet, tt.url)
			if err == nil {
				t.Errorf("NewRequest() expected error for URL %q, got nil", tt.url)
			}
		})
	}
}

func TestWithHeaders(t *testing.T) {
	req, err := NewRequest(http.MethodGet, "https://api.example.com",
		WithHeaders("X-One", "1", "X-Two", "2"),
		WithHeader("X-One", "override"),
	)
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}

	headers := req.Headers()
	if headers["X-One"] != "override" {
		t.Errorf("X-One = %q, want %q", headers["X-One"], "override")
	}
	if headers["X-Two"] != "2" {
		t.Errorf("X-Two = %q, want %q", headers["X-Two"], "2")
	}
}

func TestWithHeaders_Errors(t *testing.T) {
	tests := []struct {
		name string
		opt  RequestOption
	}{
		{"odd count", WithHeaders("X-One")},
		{"empty key", WithHeaders("", "value")},
		{"blank key", WithHeader("  ", "value")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRequest(http.MethodGet, "https://api.example.com", tt.opt)
			if err == nil {
				t.Error("NewRequest() expected error, got nil")
			}
		})
	}
}

func TestWithBearerToken(t *testing.T) {
	req, err := NewRequest(http.MethodGet, "https://api.example.com", WithBearerToken("abc"))
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	if got := req.Headers()["Authorization"]; got != "Bearer abc" {
		t.Errorf("Authorization = %q, want %q", got, "Bearer abc")
	}
}

func TestWithBody(t *testing.T) {
	tests := []struct {
		name            string
		payload         []byte
		contentType     string
		wantBody        bool
		wantContentType string
	}{
		{"json", []byte(`{"a":1}`), ContentTypeJSON, true, ContentTypeJSON},
		{"empty content type kept", []byte("x"), "", true, ""},
		{"empty payload is no body", []byte{}, ContentTypeJSON, false, ""},
		{"nil payload is no body", nil, ContentTypeForm, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := NewRequest(http.MethodPost, "https://api.example.com", WithBody(tt.payload, tt.contentType))
			if err != nil {
				t.Fatalf("NewRequest() error = %v", err)
			}
			if req.HasBody() != tt.wantBody {
				t.Errorf("HasBody() = %v, want %v", req.HasBody(), tt.wantBody)
			}
			ct, sent := req.ContentType()
			if sent != tt.wantBody {
				t.Errorf("ContentType() sent = %v, want %v", sent, tt.wantBody)
			}
			if ct != tt.wantContentType {
				t.Errorf("ContentType() = %q, want %q", ct, tt.wantContentType)
			}
		})
	}
}

func TestRequest_Immutable(t *testing.T) {
	payload := []byte("payload")
	req, err := NewRequest(http.MethodPost, "https://api.example.com",
		WithHeader("X-Key", "v1"),
		WithBody(payload, "text/plain"),
	)
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}

	payload[0] = 'X'
	headers := req.Headers()
	headers["X-Key"] = "mutated"
	body := req.Body()
	body[0] = 'Y'

	if string(req.Body()) != "payload" {
		t.Errorf("Body() = %q, want %q", req.Body(), "payload")
	}
	if req.Headers()["X-Key"] != "v1" {
		t.Errorf("Headers()[X-Key] = %q, want %q", req.Headers()["X-Key"], "v1")
	}
}
