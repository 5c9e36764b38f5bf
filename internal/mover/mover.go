package mover

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sys/unix"

	"downsort/internal/config"
	"downsort/internal/logging"
	"downsort/internal/notify"
	"downsort/internal/services"
)

// Placement is one download awaiting relocation to an absolute destination
// once the browser finishes writing it.
type Placement struct {
	Filename    string
	Destination string
	RuleName    string
}

// Mover watches the downloads directory and relocates completed downloads
// whose destination lies outside the browser's tree. The browser writes
// into its own directory; the mover picks the file up after it settles.
type Mover struct {
	downloadsDir string
	notifier     notify.Service
	logger       *slog.Logger
	watcher      *fsnotify.Watcher

	settle       time.Duration
	pollInterval time.Duration
	maxWait      time.Duration

	mu      sync.Mutex
	pending map[string]Placement

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a mover watching the configured downloads directory.
func New(cfg *config.Config, notifier notify.Service, logger *slog.Logger) (*Mover, error) {
	dir := strings.TrimSpace(cfg.Downloads.Dir)
	if dir == "" {
		return nil, services.Wrap(services.ErrConfiguration, "mover", "init", "downloads.dir is required when the mover is enabled", nil)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create downloads dir: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("watch downloads dir: %w", err)
	}

	settle := time.Duration(cfg.Mover.SettleSeconds) * time.Second
	if settle <= 0 {
		settle = 2 * time.Second
	}

	return &Mover{
		downloadsDir: dir,
		notifier:     notifier,
		logger:       logging.NewComponentLogger(logger, "mover"),
		watcher:      watcher,
		settle:       settle,
		pollInterval: 250 * time.Millisecond,
		maxWait:      10 * time.Minute,
		pending:      make(map[string]Placement),
	}, nil
}

// Start launches the watch loop.
func (m *Mover) Start(ctx context.Context) {
	m.ctx, m.cancel = context.WithCancel(ctx)
	m.wg.Add(1)
	go m.run()
}

// Stop halts the watch loop and waits for in-flight moves.
func (m *Mover) Stop() error {
	if m.cancel != nil {
		m.cancel()
	}
	err := m.watcher.Close()
	m.wg.Wait()
	return err
}

// Defer registers a placement for a file the browser is about to finish
// downloading. If the file already landed, it is picked up immediately.
func (m *Mover) Defer(filename, destination, ruleName string) {
	filename = strings.TrimSpace(filename)
	destination = strings.TrimSpace(destination)
	if filename == "" || destination == "" {
		return
	}

	placement := Placement{Filename: filename, Destination: destination, RuleName: ruleName}
	m.mu.Lock()
	m.pending[filename] = placement
	m.mu.Unlock()
	m.logger.Info("placement deferred",
		logging.String("filename", filename),
		logging.String("destination", destination),
	)

	source := filepath.Join(m.downloadsDir, filename)
	if _, err := os.Stat(source); err == nil {
		m.dispatch(filename, source)
	}
}

// PendingCount returns the number of placements awaiting their file.
func (m *Mover) PendingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

func (m *Mover) run() {
	defer m.wg.Done()
	for {
		select {
		case <-m.ctx.Done():
			return
		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			m.dispatch(filepath.Base(event.Name), event.Name)
		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			m.logger.Warn("watch error", logging.Error(err))
		}
	}
}

// dispatch claims the pending placement for a filename, if any, and moves
// the file once it settles. Claiming removes the entry so duplicate events
// cannot double-move.
func (m *Mover) dispatch(filename, source string) {
	m.mu.Lock()
	placement, ok := m.pending[filename]
	if ok {
		delete(m.pending, filename)
	}
	m.mu.Unlock()
	if !ok {
		return
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.settleAndMove(source, placement)
	}()
}

func (m *Mover) settleAndMove(source string, placement Placement) {
	ctx := m.ctx
	if ctx == nil {
		ctx = context.Background()
	}

	if err := m.waitSettled(ctx, source); err != nil {
		m.logger.Warn("file never settled",
			logging.String("filename", placement.Filename),
			logging.Error(err),
		)
		return
	}

	target, err := m.move(source, placement)
	if err != nil {
		m.logger.Error("move failed",
			logging.String("filename", placement.Filename),
			logging.String("destination", placement.Destination),
			logging.Error(err),
		)
		_ = m.notifier.NotifyError(ctx, err, "mover")
		return
	}

	m.logger.Info("moved",
		logging.String("filename", placement.Filename),
		logging.String("target", target),
	)
	_ = m.notifier.NotifyRouted(ctx, placement.Filename, placement.RuleName, target)
}

// waitSettled blocks until the file size stops changing for the settle
// window. Browsers typically write to a temp name and rename, so the file
// is usually complete on first sight; the settle window covers the ones
// that write in place.
func (m *Mover) waitSettled(ctx context.Context, source string) error {
	deadline := time.Now().Add(m.maxWait)
	var lastSize int64 = -1
	stableSince := time.Now()

	for {
		if time.Now().After(deadline) {
			return errors.New("settle deadline exceeded")
		}
		info, err := os.Stat(source)
		if err != nil {
			return fmt.Errorf("stat source: %w", err)
		}
		if info.Size() != lastSize {
			lastSize = info.Size()
			stableSince = time.Now()
		} else if time.Since(stableSince) >= m.settle {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(m.pollInterval):
		}
	}
}

func (m *Mover) move(source string, placement Placement) (string, error) {
	info, err := os.Stat(source)
	if err != nil {
		return "", fmt.Errorf("stat source: %w", err)
	}
	destDir := placement.Destination
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("create destination: %w", err)
	}
	if err := checkFreeSpace(destDir, info.Size()); err != nil {
		return "", err
	}

	target := uniquePath(filepath.Join(destDir, placement.Filename))
	if err := os.Rename(source, target); err != nil {
		if !isCrossDevice(err) {
			return "", fmt.Errorf("rename: %w", err)
		}
		if err := copyAndRemove(source, target); err != nil {
			return "", err
		}
	}
	return target, nil
}

// checkFreeSpace is best effort: a failing statfs never blocks the move.
func checkFreeSpace(dir string, need int64) error {
	var stat unix.Statfs_t
	if err := unix.Statfs(dir, &stat); err != nil {
		return nil
	}
	free := int64(stat.Bavail) * int64(stat.Bsize)
	if free < need {
		return fmt.Errorf("insufficient space in %s: need %d bytes, have %d", dir, need, free)
	}
	return nil
}

func isCrossDevice(err error) bool {
	var linkErr *os.LinkError
	return errors.As(err, &linkErr) && errors.Is(linkErr.Err, unix.EXDEV)
}

// uniquePath appends " (n)" before the extension until the name is free.
func uniquePath(target string) string {
	if _, err := os.Stat(target); errors.Is(err, fs.ErrNotExist) {
		return target
	}
	ext := filepath.Ext(target)
	stem := strings.TrimSuffix(target, ext)
	for i := 1; i < 1000; i++ {
		candidate := fmt.Sprintf("%s (%d)%s", stem, i, ext)
		if _, err := os.Stat(candidate); errors.Is(err, fs.ErrNotExist) {
			return candidate
		}
	}
	return fmt.Sprintf("%s.%d%s", stem, time.Now().UnixNano(), ext)
}

func copyAndRemove(source, target string) error {
	in, err := os.Open(source)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("create target: %w", err)
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(target)
		return fmt.Errorf("copy: %w", err)
	}
	if err := out.Sync(); err != nil {
		_ = out.Close()
		_ = os.Remove(target)
		return fmt.Errorf("sync target: %w", err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(target)
		return fmt.Errorf("close target: %w", err)
	}
	if err := os.Remove(source); err != nil {
		return fmt.Errorf("remove source: %w", err)
	}
	return nil
}
