package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeConfig writes content to a config file in a temp dir and returns its path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return configPath
}

func TestRunValidate_ValidConfig(t *testing.T) {
	configPath := writeConfig(t, `
port: 9090
polls:
  - name: build
    url: https://ci.example.com/jobs/42
    until: json:status=done
  - name: deploy
    url: https://cd.example.com/releases/7
`)

	output, _, err := executeCmd(t, "validate", "-c", configPath)
	if err != nil {
		t.Fatalf("validate command error = %v", err)
	}

	expectedPhrases := []string{
		"Config is valid!",
		"Port:  9090",
		"Polls: 2",
		"build (https://ci.example.com/jobs/42, until json)",
		"deploy (https://cd.example.com/releases/7, until always)",
	}

	for _, phrase := range expectedPhrases {
		if !strings.Contains(output, phrase) {
			t.Errorf("output missing %q\nGot: %s", phrase, output)
		}
	}
}

func TestRunValidate_InvalidConfig(t *testing.T) {
	configPath := writeConfig(t, `
polls:
  - name: ""
    url: https://example.com
`)

	_, _, err := executeCmd(t, "validate", "-c", configPath)
	if err == nil {
		t.Fatal("validate command expected error for invalid config, got nil")
	}

	if !strings.Contains(err.Error(), "name is required") {
		t.Errorf("error should mention 'name is required', got: %v", err)
	}
}

func TestRunValidate_InvalidUntil(t *testing.T) {
	configPath := writeConfig(t, `
polls:
  - name: build
    url: https://example.com
    until: "regex:(["
`)

	_, _, err := executeCmd(t, "validate", "-c", configPath)
	if err == nil {
		t.Fatal("validate command expected error for invalid regex, got nil")
	}
	if !strings.Contains(err.Error(), "until") {
		t.Errorf("error should mention 'until', got: %v", err)
	}
}

func TestRunValidate_MissingFile(t *testing.T) {
	_, _, err := executeCmd(t, "validate", "-c", "/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("validate command expected error for missing file, got nil")
	}

	if !strings.Contains(err.Error(), "failed to read") {
		t.Errorf("error should mention 'failed to read', got: %v", err)
	}
}

func TestRunValidate_FrequencyTooHigh(t *testing.T) {
	configPath := writeConfig(t, `
polls:
  - name: build
    url: https://example.com
    frequency: 1e12
`)

	_, _, err := executeCmd(t, "validate", "-c", configPath)
	if err == nil {
		t.Fatal("validate command expected error for a frequency serve would reject")
	}
	if !strings.Contains(err.Error(), "too high") {
		t.Errorf("error should mention 'too high', got: %v", err)
	}
}
