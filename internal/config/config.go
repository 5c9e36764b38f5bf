package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// API contains the daemon HTTP surface configuration. The extension, the
// prompt callbacks, and the CLI all talk to this listener.
type API struct {
	Bind  string `toml:"bind"`
	Token string `toml:"token"`
}

// Downloads describes the browser's downloads tree.
type Downloads struct {
	// Dir is the browser's downloads root. Relative destinations are resolved
	// inside it by the browser itself; the mover watches it for deferred
	// placements.
	Dir string `toml:"dir"`
}

// Matching contains the scoring thresholds and bounds of the decision engine.
// Thresholds are per signal on purpose: title and content evidence are weaker
// signals and carry their own bars.
type Matching struct {
	FilenameThreshold    float64 `toml:"filename_threshold"`
	URLThreshold         float64 `toml:"url_threshold"`
	TitleThreshold       float64 `toml:"title_threshold"`
	ContentThreshold     float64 `toml:"content_threshold"`
	MaxContextItems      int     `toml:"max_context_items"`
	PromptTimeoutSeconds int     `toml:"prompt_timeout_seconds"`
	TabCacheEntries      int     `toml:"tab_cache_entries"`
	TabCacheTTLHours     int     `toml:"tab_cache_ttl_hours"`
	// OraclePairConfidence is the display-only confidence assigned to the two
	// options when the oracle returns an ambiguous pair.
	OraclePairConfidence float64 `toml:"oracle_pair_confidence"`
}

// Oracle contains connection settings for the external decision oracle.
type Oracle struct {
	Enabled        bool   `toml:"enabled"`
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	Referer        string `toml:"referer"`
	Title          string `toml:"title"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Notifications contains configuration for ntfy push notifications and
// placement prompts.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	// CallbackBase is the externally reachable base URL of the daemon API,
	// embedded in prompt action buttons. Defaults to http://<api bind>.
	CallbackBase string `toml:"callback_base"`
	Routed       bool   `toml:"routed"`
	Prompts      bool   `toml:"prompts"`
	Errors       bool   `toml:"errors"`
}

// Mover contains configuration for deferred placement of completed downloads.
type Mover struct {
	Enabled       bool `toml:"enabled"`
	SettleSeconds int  `toml:"settle_seconds"`
}

// Config encapsulates all configuration values for downsort.
//
// Configuration sections by subsystem:
//   - top level: data/log directories and log output
//   - API: HTTP bind address and optional bearer token
//   - Downloads: browser downloads root
//   - Matching: scoring thresholds, context bounds, cache sizing
//   - Oracle: external decision oracle connection
//   - Notifications: ntfy topic and prompt callback base
//   - Mover: deferred placement of completed files
type Config struct {
	DataDir   string `toml:"data_dir"`
	LogDir    string `toml:"log_dir"`
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`

	API           API           `toml:"api"`
	Downloads     Downloads     `toml:"downloads"`
	Matching      Matching      `toml:"matching"`
	Oracle        Oracle        `toml:"oracle"`
	Notifications Notifications `toml:"notifications"`
	Mover         Mover         `toml:"mover"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/downsort/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. The boolean reports
// whether a config file was found.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("downsort.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation. The
// downloads dir is created on a best-effort basis so the daemon can start
// before the browser has downloaded anything.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.DataDir, c.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Downloads.Dir) != "" {
		_ = os.MkdirAll(c.Downloads.Dir, 0o755)
	}
	return nil
}

// RulesDBPath returns the on-disk location of the rules database.
func (c *Config) RulesDBPath() string {
	return filepath.Join(c.DataDir, "rules.db")
}

// LockFilePath returns the daemon single-instance lock location.
func (c *Config) LockFilePath() string {
	return filepath.Join(c.DataDir, "downsortd.lock")
}

// CallbackBase returns the base URL embedded in prompt action buttons.
func (c *Config) CallbackBase() string {
	base := strings.TrimSpace(c.Notifications.CallbackBase)
	if base == "" {
		base = "http://" + strings.TrimSpace(c.API.Bind)
	}
	return strings.TrimRight(base, "/")
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config file already exists at %s", expanded)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat config: %w", err)
	}
	if err := os.WriteFile(expanded, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}
