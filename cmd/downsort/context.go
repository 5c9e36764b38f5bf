package main

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"downsort/internal/config"
	"downsort/internal/rules"
)

type commandContext struct {
	configFlag *string
	apiFlag    *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	httpClient *http.Client
}

func newCommandContext(configFlag, apiFlag *string) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		apiFlag:    apiFlag,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

// apiBase returns the daemon API base URL, preferring the --api flag.
func (c *commandContext) apiBase() string {
	if c.apiFlag != nil && strings.TrimSpace(*c.apiFlag) != "" {
		return strings.TrimRight(strings.TrimSpace(*c.apiFlag), "/")
	}
	cfg := c.configValue()
	if cfg == nil {
		return ""
	}
	return cfg.CallbackBase()
}

// newAPIRequest builds a request against the daemon API, attaching the bearer
// token when one is configured.
func (c *commandContext) newAPIRequest(method, path string, body io.Reader) (*http.Request, error) {
	base := c.apiBase()
	if base == "" {
		return nil, fmt.Errorf("daemon API address unknown; pass --api or set api.bind in the config")
	}
	req, err := http.NewRequest(method, base+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if cfg := c.configValue(); cfg != nil && strings.TrimSpace(cfg.API.Token) != "" {
		req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(cfg.API.Token))
	}
	return req, nil
}

// withStore opens the rules database directly. Rule management works without
// a running daemon; the daemon reads rules per request so edits are picked up
// immediately.
func (c *commandContext) withStore(fn func(*rules.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := rules.Open(cfg)
	if err != nil {
		return fmt.Errorf("open rules store: %w", err)
	}
	defer store.Close()
	return fn(store)
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
