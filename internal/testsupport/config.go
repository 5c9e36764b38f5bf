// Package testsupport provides shared helpers for package tests.
package testsupport

import (
	"path/filepath"
	"testing"

	"downsort/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.DataDir = filepath.Join(base, "data")
	cfg.LogDir = filepath.Join(base, "logs")
	cfg.Downloads.Dir = filepath.Join(base, "downloads")
	cfg.API.Bind = "127.0.0.1:0"
	cfg.Notifications.Routed = false
	cfg.Notifications.Prompts = false
	cfg.Notifications.Errors = false

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithNtfyTopic points notifications at a test server topic URL.
func WithNtfyTopic(topic string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Notifications.NtfyTopic = topic
		cfg.Notifications.Routed = true
		cfg.Notifications.Prompts = true
		cfg.Notifications.Errors = true
	}
}

// WithOracle enables the decision oracle against the given endpoint.
func WithOracle(baseURL, model string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Oracle.Enabled = true
		cfg.Oracle.APIKey = "test"
		cfg.Oracle.BaseURL = baseURL
		cfg.Oracle.Model = model
	}
}

// WithPromptTimeout overrides the prompt timeout for tests that exercise
// expiry.
func WithPromptTimeout(seconds int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Matching.PromptTimeoutSeconds = seconds
	}
}
