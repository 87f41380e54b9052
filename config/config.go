// Package config provides YAML configuration parsing for pollkit.
//
// This package enables running poll chains from the pollkit binary with a
// configuration file, as an alternative to the programmatic SDK approach.
//
// Example configuration:
//
//	port: 8080
//
//	polls:
//	  - name: build
//	    url: https://ci.example.com/jobs/42
//	    token: ${CI_TOKEN}
//	    timeout: 2m
//	    frequency: 1
//	    until: json:status=done
//	    done_event: buildReady
//	    headers:
//	      X-Team: platform
package config

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// defaultPort is used when the configuration does not set one.
const defaultPort = 8080

// Config is the root configuration structure for the pollkit command.
//
// It maps directly to the YAML configuration file structure.
// Use [Load] or [Parse] to create a Config from YAML.
type Config struct {
	// Port is the HTTP API port. Defaults to 8080.
	Port int `yaml:"port"`

	// Polls defines the poll chains to run.
	Polls []PollConfig `yaml:"polls"`
}

// PollConfig defines a single poll chain.
type PollConfig struct {
	// Name identifies the poll in events, the API and metrics. Must be unique.
	Name string `yaml:"name"`

	// URL is polled with GET.
	// Supports environment variable substitution: ${VAR} or ${VAR:-default}
	URL string `yaml:"url"`

	// Token is sent as a bearer token with every request, if set.
	// Supports environment variable substitution.
	Token string `yaml:"token"`

	// Timeout is the total polling budget. Nil means the SDK default (60s);
	// an explicit 0s times out without sending a request.
	Timeout *Duration `yaml:"timeout"`

	// Frequency is the number of polls per second. Zero means the SDK default (2).
	Frequency float64 `yaml:"frequency"`

	// Until determines when polling is complete.
	// Can be shorthand ("json:status=done", "contains:READY") or structured.
	Until UntilConfig `yaml:"until"`

	// DoneEvent is the name of the completion event. Defaults to "pollDone".
	DoneEvent string `yaml:"done_event"`

	// DoneDetail is attached to the completion event unchanged.
	DoneDetail any `yaml:"done_detail"`

	// Headers are custom HTTP headers sent with every request.
	// Values support environment variable substitution.
	Headers map[string]string `yaml:"headers"`
}

// UntilConfig specifies the completion predicate of a poll.
//
// It supports two formats in YAML:
//
// Shorthand string:
//
//	until: always
//	until: contains:READY
//	until: regex:"progress":\s*100
//	until: json:job.state=finished
//	until: json:result.url
//
// Structured object:
//
//	until:
//	  type: json
//	  path: job.state
//	  value: finished
type UntilConfig struct {
	// Type is the predicate type: "always", "contains", "regex", "json".
	Type string

	// Path is the gjson path (for type: json).
	Path string

	// Value is the expected value at Path (for type: json). When HasValue is
	// false the predicate only requires Path to exist.
	Value    string
	HasValue bool

	// Text is the substring to search for (for type: contains).
	Text string

	// Pattern is the regular expression (for type: regex).
	Pattern string
}

// Duration wraps time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// UnmarshalYAML implements yaml.Unmarshaler for UntilConfig.
func (u *UntilConfig) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		parsed, err := ParseUntil(s)
		if err != nil {
			return err
		}
		*u = parsed
		return nil
	}

	if node.Kind == yaml.MappingNode {
		// temporary struct to avoid infinite recursion
		var raw struct {
			Type    string  `yaml:"type"`
			Path    string  `yaml:"path"`
			Value   *string `yaml:"value"`
			Text    string  `yaml:"text"`
			Pattern string  `yaml:"pattern"`
		}
		if err := node.Decode(&raw); err != nil {
			return err
		}
		u.Type = raw.Type
		u.Path = raw.Path
		u.Text = raw.Text
		u.Pattern = raw.Pattern
		if raw.Value != nil {
			u.Value = *raw.Value
			u.HasValue = true
		}
		return nil
	}

	return fmt.Errorf("until must be a string or object, got %v", node.Kind)
}

// ParseUntil parses predicate shorthand syntax.
//
// Supported formats:
//   - "" or "always" → first 200 response completes the poll
//   - "contains:text" → response contains text
//   - "regex:pattern" → response matches pattern
//   - "json:path=value" → value at gjson path equals value
//   - "json:path" → gjson path exists
func ParseUntil(s string) (UntilConfig, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return UntilConfig{}, nil
	}

	if idx := strings.Index(s, ":"); idx != -1 {
		u := UntilConfig{Type: s[:idx]}
		value := s[idx+1:]

		switch u.Type {
		case "contains":
			u.Text = value
		case "regex":
			u.Pattern = value
		case "json":
			u.Path, u.Value, u.HasValue = splitJSONUntil(value)
		default:
			return UntilConfig{}, fmt.Errorf("unknown until type %q", u.Type)
		}
		return u, nil
	}

	if s == "always" {
		return UntilConfig{Type: s}, nil
	}
	return UntilConfig{}, fmt.Errorf("unknown until %q (expected 'always', 'contains:text', 'regex:pattern', or 'json:path[=value]')", s)
}

// splitJSONUntil splits "path=value" at the last lone '=' outside
// parentheses, so gjson queries such as `#(name=="x")` stay in the path.
func splitJSONUntil(s string) (path, value string, hasValue bool) {
	depth := 0
	split := -1
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		case '=':
			if depth != 0 {
				continue
			}
			if (i > 0 && (s[i-1] == '=' || s[i-1] == '!' || s[i-1] == '<' || s[i-1] == '>')) ||
				(i+1 < len(s) && s[i+1] == '=') {
				continue
			}
			split = i
		}
	}
	if split == -1 {
		return s, "", false
	}
	return s[:split], s[split+1:], true
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part (if present, indicates a default was specified)
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		hasDefault := len(submatches) > 2 && submatches[2] != ""
		defaultVal := ""
		if hasDefault && len(submatches) > 3 {
			defaultVal = submatches[3]
		}

		value, exists := os.LookupEnv(varName)
		if !exists {
			if hasDefault {
				return defaultVal
			}
			firstErr = fmt.Errorf("environment variable %q is not set", varName)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// Load reads and parses a YAML configuration file.
//
// Environment variables in the file are expanded before parsing.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration data.
//
// Environment variables are expanded in URL, Token and Header values.
// Port defaults to 8080.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if cfg.Port == 0 {
		cfg.Port = defaultPort
	}

	if err := cfg.expandAndValidate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// expandAndValidate expands environment variables and validates the config.
func (c *Config) expandAndValidate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}

	if len(c.Polls) == 0 {
		return errors.New("at least one poll must be defined")
	}

	seen := make(map[string]int, len(c.Polls))
	for i := range c.Polls {
		p := &c.Polls[i]

		if strings.TrimSpace(p.Name) == "" {
			return fmt.Errorf("polls[%d]: name is required", i)
		}
		if prev, dup := seen[p.Name]; dup {
			return fmt.Errorf("polls[%d] (%s): name already used by polls[%d]", i, p.Name, prev)
		}
		seen[p.Name] = i

		if p.URL == "" {
			return fmt.Errorf("polls[%d] (%s): url is required", i, p.Name)
		}
		expanded, err := expandEnvVars(p.URL)
		if err != nil {
			return fmt.Errorf("polls[%d] (%s): url: %w", i, p.Name, err)
		}
		p.URL = expanded

		parsedURL, err := url.Parse(p.URL)
		if err != nil {
			return fmt.Errorf("polls[%d] (%s): invalid url: %w", i, p.Name, err)
		}
		if parsedURL.Scheme == "" {
			return fmt.Errorf("polls[%d] (%s): url must have a scheme (http:// or https://)", i, p.Name)
		}
		if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
			return fmt.Errorf("polls[%d] (%s): url scheme must be http or https, got %q", i, p.Name, parsedURL.Scheme)
		}

		if p.Token != "" {
			expanded, err := expandEnvVars(p.Token)
			if err != nil {
				return fmt.Errorf("polls[%d] (%s): token: %w", i, p.Name, err)
			}
			p.Token = expanded
		}

		for k, v := range p.Headers {
			if strings.TrimSpace(k) == "" {
				return fmt.Errorf("polls[%d] (%s): header name cannot be empty", i, p.Name)
			}
			expanded, err := expandEnvVars(v)
			if err != nil {
				return fmt.Errorf("polls[%d] (%s): headers[%s]: %w", i, p.Name, k, err)
			}
			p.Headers[k] = expanded
		}

		if p.Timeout != nil && p.Timeout.Duration() < 0 {
			return fmt.Errorf("polls[%d] (%s): timeout cannot be negative, got %s",
				i, p.Name, p.Timeout.Duration())
		}

		if math.IsNaN(p.Frequency) || math.IsInf(p.Frequency, 0) || p.Frequency < 0 {
			return fmt.Errorf("polls[%d] (%s): frequency must be a positive number, got %v",
				i, p.Name, p.Frequency)
		}
		if p.Frequency > 0 && time.Duration(float64(time.Second)/p.Frequency) <= 0 {
			return fmt.Errorf("polls[%d] (%s): frequency %v is too high, the delay between polls rounds to zero",
				i, p.Name, p.Frequency)
		}

		if p.DoneEvent != "" && strings.TrimSpace(p.DoneEvent) == "" {
			return fmt.Errorf("polls[%d] (%s): done_event cannot be blank", i, p.Name)
		}

		if err := validateUntil(&p.Until, fmt.Sprintf("polls[%d] (%s)", i, p.Name)); err != nil {
			return err
		}
	}

	return nil
}

// validateUntil validates a predicate configuration.
func validateUntil(u *UntilConfig, context string) error {
	switch u.Type {
	case "", "always":
		// no additional validation needed
	case "json":
		if u.Path == "" {
			return fmt.Errorf("%s: until type 'json' requires a path", context)
		}
	case "contains":
		if u.Text == "" {
			return fmt.Errorf("%s: until type 'contains' requires text", context)
		}
	case "regex":
		if u.Pattern == "" {
			return fmt.Errorf("%s: until type 'regex' requires a pattern", context)
		}
		if _, err := regexp.Compile(u.Pattern); err != nil {
			return fmt.Errorf("%s: invalid until pattern: %w", context, err)
		}
	default:
		return fmt.Errorf("%s: unknown until type %q", context, u.Type)
	}

	return nil
}
