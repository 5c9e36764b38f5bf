package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeMatching()
	c.normalizeOracle()
	c.normalizeNotifications()
	c.normalizeMover()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = defaultDataDir
	}
	if c.DataDir, err = expandPath(c.DataDir); err != nil {
		return fmt.Errorf("data_dir: %w", err)
	}
	if strings.TrimSpace(c.LogDir) == "" {
		c.LogDir = defaultLogDir
	}
	if c.LogDir, err = expandPath(c.LogDir); err != nil {
		return fmt.Errorf("log_dir: %w", err)
	}
	if strings.TrimSpace(c.Downloads.Dir) == "" {
		c.Downloads.Dir = defaultDownloadsDir
	}
	if c.Downloads.Dir, err = expandPath(c.Downloads.Dir); err != nil {
		return fmt.Errorf("downloads.dir: %w", err)
	}
	c.API.Bind = strings.TrimSpace(c.API.Bind)
	if c.API.Bind == "" {
		c.API.Bind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeMatching() {
	m := &c.Matching
	if m.FilenameThreshold <= 0 {
		m.FilenameThreshold = defaultFilenameThreshold
	}
	if m.URLThreshold <= 0 {
		m.URLThreshold = defaultURLThreshold
	}
	if m.TitleThreshold <= 0 {
		m.TitleThreshold = defaultTitleThreshold
	}
	if m.ContentThreshold <= 0 {
		m.ContentThreshold = defaultContentThreshold
	}
	if m.MaxContextItems <= 0 {
		m.MaxContextItems = defaultMaxContextItems
	}
	if m.PromptTimeoutSeconds <= 0 {
		m.PromptTimeoutSeconds = defaultPromptTimeoutSeconds
	}
	if m.TabCacheEntries <= 0 {
		m.TabCacheEntries = defaultTabCacheEntries
	}
	if m.TabCacheTTLHours <= 0 {
		m.TabCacheTTLHours = defaultTabCacheTTLHours
	}
	if m.OraclePairConfidence <= 0 {
		m.OraclePairConfidence = defaultOraclePairConfidence
	}
}

func (c *Config) normalizeOracle() {
	o := &c.Oracle
	o.APIKey = strings.TrimSpace(o.APIKey)
	if o.APIKey == "" {
		o.APIKey = strings.TrimSpace(os.Getenv("DOWNSORT_ORACLE_API_KEY"))
	}
	o.BaseURL = strings.TrimSpace(o.BaseURL)
	if o.BaseURL == "" {
		o.BaseURL = defaultOracleBaseURL
	}
	o.Model = strings.TrimSpace(o.Model)
	if o.Model == "" {
		o.Model = defaultOracleModel
	}
	if o.TimeoutSeconds <= 0 {
		o.TimeoutSeconds = defaultOracleTimeoutSeconds
	}
}

func (c *Config) normalizeNotifications() {
	n := &c.Notifications
	n.NtfyTopic = strings.TrimSpace(n.NtfyTopic)
	n.CallbackBase = strings.TrimSpace(n.CallbackBase)
	if n.RequestTimeout <= 0 {
		n.RequestTimeout = defaultNtfyRequestTimeout
	}
}

func (c *Config) normalizeMover() {
	if c.Mover.SettleSeconds <= 0 {
		c.Mover.SettleSeconds = defaultMoverSettleSeconds
	}
}

func (c *Config) normalizeLogging() {
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
	if c.LogFormat == "" {
		c.LogFormat = defaultLogFormat
	}
}
