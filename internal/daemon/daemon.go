package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"downsort/internal/browser"
	"downsort/internal/config"
	"downsort/internal/decision"
	"downsort/internal/logging"
	"downsort/internal/mover"
	"downsort/internal/notify"
	"downsort/internal/rules"
	"downsort/internal/services/oracle"
	"downsort/internal/tabcache"
)

// Daemon wires the API server, decision engine, and mover together and
// enforces single-instance execution through a file lock.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *rules.Store
	registry *browser.Registry
	cache    *tabcache.Cache
	notifier notify.Service
	engine   *decision.Engine
	mover    *mover.Mover
	api      *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running        bool   `json:"running"`
	Bind           string `json:"bind"`
	RulesDBPath    string `json:"rules_db_path"`
	LockFilePath   string `json:"lock_file_path"`
	TrackedTabs    int    `json:"tracked_tabs"`
	PendingPrompts int    `json:"pending_prompts"`
	PendingMoves   int    `json:"pending_moves"`
	OracleEnabled  bool   `json:"oracle_enabled"`
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *rules.Store, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil {
		return nil, errors.New("daemon requires config and rules store")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	d := &Daemon{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		registry: browser.NewRegistry(logger),
		cache: tabcache.New(
			cfg.Matching.TabCacheEntries,
			time.Duration(cfg.Matching.TabCacheTTLHours)*time.Hour,
			logger,
		),
		notifier: notify.NewService(cfg),
		lockPath: cfg.LockFilePath(),
		lock:     flock.New(cfg.LockFilePath()),
	}

	var engineOpts []decision.Option
	if cfg.Oracle.Enabled {
		client := oracle.NewClient(oracle.Config{
			APIKey:         cfg.Oracle.APIKey,
			BaseURL:        cfg.Oracle.BaseURL,
			Model:          cfg.Oracle.Model,
			Referer:        cfg.Oracle.Referer,
			Title:          cfg.Oracle.Title,
			TimeoutSeconds: cfg.Oracle.TimeoutSeconds,
		})
		engineOpts = append(engineOpts, decision.WithOracle(oracle.NewService(client, logger)))
	}
	if cfg.Mover.Enabled {
		mv, err := mover.New(cfg, d.notifier, logger)
		if err != nil {
			return nil, fmt.Errorf("init mover: %w", err)
		}
		d.mover = mv
		engineOpts = append(engineOpts, decision.WithDeferrer(mv))
	}

	d.engine = decision.NewEngine(cfg, store, d.registry, d.cache, d.notifier, logger, engineOpts...)
	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the daemon lock and launches the mover and API server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another downsort daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if d.mover != nil {
		d.mover.Start(d.ctx)
	}
	if err := d.api.start(d.ctx); err != nil {
		d.teardown()
		return err
	}

	d.running.Store(true)
	d.logger.Info("downsort daemon started",
		logging.String("lock", d.lockPath),
		logging.String("bind", d.api.addr()),
	)
	return nil
}

// Stop halts the API server and mover and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	d.teardown()
	d.running.Store(false)
	d.logger.Info("downsort daemon stopped")
}

func (d *Daemon) teardown() {
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.stop()
	if d.mover != nil {
		_ = d.mover.Stop()
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Addr returns the API listen address once the daemon has started.
func (d *Daemon) Addr() string {
	return d.api.addr()
}

// TestNotification triggers a test notification using the current
// configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	if err := d.notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	pendingMoves := 0
	if d.mover != nil {
		pendingMoves = d.mover.PendingCount()
	}
	return Status{
		Running:        d.running.Load(),
		Bind:           d.api.addr(),
		RulesDBPath:    d.cfg.RulesDBPath(),
		LockFilePath:   d.lockPath,
		TrackedTabs:    d.registry.TabCount(),
		PendingPrompts: d.engine.PendingPrompts(),
		PendingMoves:   pendingMoves,
		OracleEnabled:  d.cfg.Oracle.Enabled,
	}
}
