package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateMatching(); err != nil {
		return err
	}
	if err := c.validateOracle(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateMatching() error {
	m := c.Matching
	for name, value := range map[string]float64{
		"matching.filename_threshold": m.FilenameThreshold,
		"matching.url_threshold":      m.URLThreshold,
		"matching.title_threshold":    m.TitleThreshold,
	} {
		if value > 100 {
			return fmt.Errorf("%s must not exceed 100", name)
		}
	}
	// Content scores are deliberately uncapped, so the content threshold may
	// legitimately exceed 100.
	if m.ContentThreshold < 0 {
		return errors.New("matching.content_threshold must not be negative")
	}
	if m.MaxContextItems > 10 {
		return errors.New("matching.max_context_items must not exceed 10")
	}
	return nil
}

func (c *Config) validateOracle() error {
	if !c.Oracle.Enabled {
		return nil
	}
	if strings.TrimSpace(c.Oracle.APIKey) == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/downsort/config.toml"
		}
		return fmt.Errorf("oracle.api_key is required when oracle.enabled is true. Set DOWNSORT_ORACLE_API_KEY or edit %s", defaultPath)
	}
	if !strings.HasPrefix(c.Oracle.BaseURL, "http://") && !strings.HasPrefix(c.Oracle.BaseURL, "https://") {
		return fmt.Errorf("oracle.base_url must be an http(s) URL, got %q", c.Oracle.BaseURL)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("log_format must be console or json, got %q", c.LogFormat)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn, or error, got %q", c.LogLevel)
	}
	return nil
}
