package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "config.toml")

	cfg, path, exists, err := Load(missing)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if exists {
		t.Error("expected exists=false for missing config")
	}
	if path != missing {
		t.Errorf("resolved path = %q, want %q", path, missing)
	}
	if cfg.Matching.FilenameThreshold != defaultFilenameThreshold {
		t.Errorf("filename threshold = %v, want default", cfg.Matching.FilenameThreshold)
	}
	if cfg.API.Bind != defaultAPIBind {
		t.Errorf("api bind = %q, want default", cfg.API.Bind)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
log_level = "debug"

[matching]
title_threshold = 55.0
prompt_timeout_seconds = 30

[notifications]
ntfy_topic = "https://ntfy.sh/example"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, _, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists {
		t.Fatal("expected exists=true")
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("log level = %q", cfg.LogLevel)
	}
	if cfg.Matching.TitleThreshold != 55 {
		t.Errorf("title threshold = %v", cfg.Matching.TitleThreshold)
	}
	if cfg.Matching.PromptTimeoutSeconds != 30 {
		t.Errorf("prompt timeout = %v", cfg.Matching.PromptTimeoutSeconds)
	}
	if cfg.Matching.FilenameThreshold != defaultFilenameThreshold {
		t.Errorf("filename threshold should keep default, got %v", cfg.Matching.FilenameThreshold)
	}
	if cfg.Notifications.NtfyTopic != "https://ntfy.sh/example" {
		t.Errorf("ntfy topic = %q", cfg.Notifications.NtfyTopic)
	}
}

func TestValidateRejectsBadLogFormat(t *testing.T) {
	cfg := Default()
	if err := cfg.normalize(); err != nil {
		t.Fatal(err)
	}
	cfg.LogFormat = "yaml"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for log format")
	}
}

func TestValidateOracleRequiresKey(t *testing.T) {
	cfg := Default()
	if err := cfg.normalize(); err != nil {
		t.Fatal(err)
	}
	cfg.Oracle.Enabled = true
	cfg.Oracle.APIKey = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error for missing oracle key")
	}
	if !strings.Contains(err.Error(), "oracle.api_key") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidateContentThresholdMayExceed100(t *testing.T) {
	cfg := Default()
	if err := cfg.normalize(); err != nil {
		t.Fatal(err)
	}
	cfg.Matching.ContentThreshold = 140
	if err := cfg.Validate(); err != nil {
		t.Fatalf("content threshold above 100 should validate: %v", err)
	}
}

func TestCallbackBaseDefaultsToBind(t *testing.T) {
	cfg := Default()
	if err := cfg.normalize(); err != nil {
		t.Fatal(err)
	}
	if got := cfg.CallbackBase(); got != "http://"+defaultAPIBind {
		t.Errorf("CallbackBase() = %q", got)
	}
	cfg.Notifications.CallbackBase = "https://downsort.example.com/"
	if got := cfg.CallbackBase(); got != "https://downsort.example.com" {
		t.Errorf("CallbackBase() = %q", got)
	}
}

func TestCreateSampleRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	if err := CreateSample(path); err == nil {
		t.Fatal("expected error when sample already exists")
	}
}
