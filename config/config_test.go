package config

import (
	"strings"
	"testing"
	"time"
)

func TestParse_MinimalConfig(t *testing.T) {
	yaml := `
polls:
  - name: build
    url: https://example.com/jobs/1
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	// check defaults applied
	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if len(cfg.Polls) != 1 {
		t.Fatalf("len(Polls) = %d, want 1", len(cfg.Polls))
	}
	p := cfg.Polls[0]
	if p.Timeout != nil {
		t.Errorf("Timeout = %v, want nil", *p.Timeout)
	}
	if p.Frequency != 0 {
		t.Errorf("Frequency = %v, want 0", p.Frequency)
	}
	if p.Until.Type != "" {
		t.Errorf("Until.Type = %q, want empty", p.Until.Type)
	}
}

func TestParse_FullPollConfig(t *testing.T) {
	yaml := `
port: 9090

polls:
  - name: build
    url: https://ci.example.com/jobs/42
    token: abc123
    timeout: 2m
    frequency: 0.5
    until: json:status=done
    done_event: buildReady
    done_detail:
      job: 42
    headers:
      X-Team: platform
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Port)
	}

	p := cfg.Polls[0]
	if p.Name != "build" {
		t.Errorf("Name = %q, want build", p.Name)
	}
	if p.Token != "abc123" {
		t.Errorf("Token = %q, want abc123", p.Token)
	}
	if p.Timeout == nil || p.Timeout.Duration() != 2*time.Minute {
		t.Errorf("Timeout = %v, want 2m", p.Timeout)
	}
	if p.Frequency != 0.5 {
		t.Errorf("Frequency = %v, want 0.5", p.Frequency)
	}
	if p.Until.Type != "json" || p.Until.Path != "status" || p.Until.Value != "done" || !p.Until.HasValue {
		t.Errorf("Until = %+v", p.Until)
	}
	if p.DoneEvent != "buildReady" {
		t.Errorf("DoneEvent = %q, want buildReady", p.DoneEvent)
	}
	detail, ok := p.DoneDetail.(map[string]any)
	if !ok || detail["job"] != 42 {
		t.Errorf("DoneDetail = %#v, want map with job 42", p.DoneDetail)
	}
	if p.Headers["X-Team"] != "platform" {
		t.Errorf("Headers[X-Team] = %q, want platform", p.Headers["X-Team"])
	}
}

func TestParse_ZeroTimeoutIsExplicit(t *testing.T) {
	yaml := `
polls:
  - name: instant
    url: https://example.com
    timeout: 0s
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cfg.Polls[0].Timeout == nil || cfg.Polls[0].Timeout.Duration() != 0 {
		t.Errorf("Timeout = %v, want explicit 0", cfg.Polls[0].Timeout)
	}
}

func TestParseUntil(t *testing.T) {
	tests := []struct {
		input   string
		want    UntilConfig
		wantErr bool
	}{
		{"", UntilConfig{}, false},
		{"always", UntilConfig{Type: "always"}, false},
		{"contains:READY", UntilConfig{Type: "contains", Text: "READY"}, false},
		{"contains:a:b", UntilConfig{Type: "contains", Text: "a:b"}, false},
		{`regex:"progress":\s*100`, UntilConfig{Type: "regex", Pattern: `"progress":\s*100`}, false},
		{"json:status=done", UntilConfig{Type: "json", Path: "status", Value: "done", HasValue: true}, false},
		{"json:job.state=", UntilConfig{Type: "json", Path: "job.state", Value: "", HasValue: true}, false},
		{"json:result.url", UntilConfig{Type: "json", Path: "result.url"}, false},
		{`json:steps.#(name=="build").state=ok`, UntilConfig{Type: "json", Path: `steps.#(name=="build").state`, Value: "ok", HasValue: true}, false},
		{`json:steps.#(name=="build")`, UntilConfig{Type: "json", Path: `steps.#(name=="build")`}, false},
		{"xml:status", UntilConfig{}, true},
		{"sometimes", UntilConfig{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseUntil(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatal("ParseUntil() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseUntil() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseUntil() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParse_UntilStructured(t *testing.T) {
	yaml := `
polls:
  - name: structured
    url: https://example.com
    until:
      type: json
      path: job.state
      value: finished
  - name: exists
    url: https://example.com
    until:
      type: json
      path: result.url
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	u := cfg.Polls[0].Until
	if u.Type != "json" || u.Path != "job.state" || u.Value != "finished" || !u.HasValue {
		t.Errorf("Until = %+v", u)
	}
	if cfg.Polls[1].Until.HasValue {
		t.Errorf("Until without value should not have HasValue: %+v", cfg.Polls[1].Until)
	}
}

func TestParse_EnvVarSubstitution(t *testing.T) {
	t.Setenv("CI_HOST", "ci.internal")
	t.Setenv("CI_TOKEN", "s3cret")
	t.Setenv("TEAM", "platform")

	yaml := `
polls:
  - name: build
    url: https://${CI_HOST}/jobs/${JOB:-7}
    token: ${CI_TOKEN}
    headers:
      X-Team: ${TEAM}
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	p := cfg.Polls[0]
	if p.URL != "https://ci.internal/jobs/7" {
		t.Errorf("URL = %q, want https://ci.internal/jobs/7", p.URL)
	}
	if p.Token != "s3cret" {
		t.Errorf("Token = %q, want s3cret", p.Token)
	}
	if p.Headers["X-Team"] != "platform" {
		t.Errorf("Headers[X-Team] = %q, want platform", p.Headers["X-Team"])
	}
}

func TestParse_EnvVarMissing(t *testing.T) {
	yaml := `
polls:
  - name: build
    url: https://example.com
    token: ${POLLKIT_TEST_MISSING_TOKEN}
`
	_, err := Parse([]byte(yaml))
	if err == nil {
		t.Fatal("Parse() expected error for missing env var")
	}
	if !strings.Contains(err.Error(), "POLLKIT_TEST_MISSING_TOKEN") {
		t.Errorf("error should name the variable, got: %v", err)
	}
}

func TestParse_ValidationErrors(t *testing.T) {
	tests := []struct {
		name        string
		yaml        string
		wantErrLike string
	}{
		{
			name:        "no polls",
			yaml:        `port: 8080`,
			wantErrLike: "at least one poll",
		},
		{
			name: "missing name",
			yaml: `
polls:
  - url: https://example.com
`,
			wantErrLike: "name is required",
		},
		{
			name: "duplicate name",
			yaml: `
polls:
  - name: a
    url: https://example.com
  - name: a
    url: https://example.org
`,
			wantErrLike: "name already used by polls[0]",
		},
		{
			name: "missing url",
			yaml: `
polls:
  - name: a
`,
			wantErrLike: "url is required",
		},
		{
			name: "url without scheme",
			yaml: `
polls:
  - name: a
    url: example.com/health
`,
			wantErrLike: "url must have a scheme",
		},
		{
			name: "url with ftp scheme",
			yaml: `
polls:
  - name: a
    url: ftp://example.com
`,
			wantErrLike: "url scheme must be http or https",
		},
		{
			name: "negative timeout",
			yaml: `
polls:
  - name: a
    url: https://example.com
    timeout: -1s
`,
			wantErrLike: "timeout cannot be negative",
		},
		{
			name: "negative frequency",
			yaml: `
polls:
  - name: a
    url: https://example.com
    frequency: -2
`,
			wantErrLike: "frequency must be a positive number",
		},
		{
			name: "frequency too high",
			yaml: `
polls:
  - name: a
    url: https://example.com
    frequency: 1e12
`,
			wantErrLike: "frequency 1e+12 is too high",
		},
		{
			name: "blank header name",
			yaml: `
polls:
  - name: a
    url: https://example.com
    headers:
      " ": value
`,
			wantErrLike: "header name cannot be empty",
		},
		{
			name: "unknown until",
			yaml: `
polls:
  - name: a
    url: https://example.com
    until: xml:status
`,
			wantErrLike: "unknown until type",
		},
		{
			name: "invalid regex",
			yaml: `
polls:
  - name: a
    url: https://example.com
    until: regex:([
`,
			wantErrLike: "invalid until pattern",
		},
		{
			name: "json without path",
			yaml: `
polls:
  - name: a
    url: https://example.com
    until:
      type: json
`,
			wantErrLike: "requires a path",
		},
		{
			name: "contains without text",
			yaml: `
polls:
  - name: a
    url: https://example.com
    until: "contains:"
`,
			wantErrLike: "requires text",
		},
		{
			name: "invalid port",
			yaml: `
port: 70000
polls:
  - name: a
    url: https://example.com
`,
			wantErrLike: "port must be between",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("Parse() expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErrLike) {
				t.Errorf("error = %q, want it to contain %q", err.Error(), tt.wantErrLike)
			}
		})
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte("polls: [unclosed"))
	if err == nil {
		t.Fatal("Parse() expected error for invalid YAML")
	}
	if !strings.Contains(err.Error(), "failed to parse YAML") {
		t.Errorf("error = %q, want parse error", err.Error())
	}
}

func TestParse_InvalidDuration(t *testing.T) {
	yaml := `
polls:
  - name: a
    url: https://example.com
    timeout: soon
`
	_, err := Parse([]byte(yaml))
	if err == nil {
		t.Fatal("Parse() expected error for invalid duration")
	}
	if !strings.Contains(err.Error(), "invalid duration") {
		t.Errorf("error = %q, want invalid duration", err.Error())
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/pollkit.yaml")
	if err == nil {
		t.Fatal("Load() expected error for missing file")
	}
	if !strings.Contains(err.Error(), "failed to read config file") {
		t.Errorf("error = %q, want read error", err.Error())
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("TEST_VAR", "value")
	t.Setenv("EMPTY_VAR", "") // set but empty

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"no vars", "plain text", "plain text", false},
		{"simple var", "${TEST_VAR}", "value", false},
		{"var in text", "prefix ${TEST_VAR} suffix", "prefix value suffix", false},
		{"multiple vars", "${TEST_VAR}-${TEST_VAR}", "value-value", false},
		{"with default (var set)", "${TEST_VAR:-default}", "value", false},
		{"with default (var unset)", "${UNSET:-default}", "default", false},
		{"missing required", "${MISSING}", "", true},
		{"empty default (var unset)", "${UNSET:-}", "", false},
		{"set but empty var", "${EMPTY_VAR}", "", false},
		{"set but empty with default", "${EMPTY_VAR:-fallback}", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// UNSET and MISSING are expected to not exist in environment
			got, err := expandEnvVars(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expandEnvVars() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("expandEnvVars() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("expandEnvVars() = %q, want %q", got, tt.want)
			}
		})
	}
}
