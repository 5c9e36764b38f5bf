package mover

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"downsort/internal/notify"
	"downsort/internal/testsupport"
)

type recordingNotifier struct {
	routed chan string
	errors chan error
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{
		routed: make(chan string, 8),
		errors: make(chan error, 8),
	}
}

func (r *recordingNotifier) PromptPlacement(context.Context, notify.Prompt) error { return nil }

func (r *recordingNotifier) NotifyRouted(_ context.Context, _, _, destination string) error {
	r.routed <- destination
	return nil
}

func (r *recordingNotifier) NotifyDefaulted(context.Context, string, string) error { return nil }
func (r *recordingNotifier) NotifyDeferred(context.Context, string, string) error  { return nil }

func (r *recordingNotifier) NotifyError(_ context.Context, err error, _ string) error {
	r.errors <- err
	return nil
}

func (r *recordingNotifier) TestNotification(context.Context) error { return nil }

func newTestMover(t *testing.T) (*Mover, string, string, *recordingNotifier) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Mover.Enabled = true
	destDir := filepath.Join(t.TempDir(), "archive")

	notifier := newRecordingNotifier()
	m, err := New(cfg, notifier, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	m.settle = 50 * time.Millisecond
	m.pollInterval = 10 * time.Millisecond

	m.Start(context.Background())
	t.Cleanup(func() { _ = m.Stop() })
	return m, cfg.Downloads.Dir, destDir + "/", notifier
}

func waitForFile(t *testing.T, path string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(path); err == nil {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("file %s never appeared", path)
}

func TestDeferPicksUpExistingFile(t *testing.T) {
	m, downloads, dest, notifier := newTestMover(t)

	source := filepath.Join(downloads, "backup.tar")
	if err := os.WriteFile(source, []byte("payload"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	m.Defer("backup.tar", dest, "Archive")

	waitForFile(t, filepath.Join(dest, "backup.tar"))
	if _, err := os.Stat(source); !os.IsNotExist(err) {
		t.Error("source should be gone after the move")
	}
	select {
	case got := <-notifier.routed:
		if got != filepath.Join(dest, "backup.tar") {
			t.Errorf("routed destination = %q", got)
		}
	case <-time.After(2 * time.Second):
		t.Error("routed notification never arrived")
	}
}

func TestMoveOnWatcherEvent(t *testing.T) {
	m, downloads, dest, _ := newTestMover(t)

	m.Defer("report.pdf", dest, "Documents")
	if m.PendingCount() != 1 {
		t.Fatalf("pending = %d", m.PendingCount())
	}

	if err := os.WriteFile(filepath.Join(downloads, "report.pdf"), []byte("pdf"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	waitForFile(t, filepath.Join(dest, "report.pdf"))
	if m.PendingCount() != 0 {
		t.Errorf("pending = %d after move", m.PendingCount())
	}
}

func TestCollisionUniquifies(t *testing.T) {
	m, downloads, dest, _ := newTestMover(t)

	if err := os.MkdirAll(dest, 0o755); err != nil {
		t.Fatalf("mkdir dest: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dest, "notes.txt"), []byte("old"), 0o644); err != nil {
		t.Fatalf("seed collision: %v", err)
	}
	if err := os.WriteFile(filepath.Join(downloads, "notes.txt"), []byte("new"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	m.Defer("notes.txt", dest, "Notes")

	waitForFile(t, filepath.Join(dest, "notes (1).txt"))
	original, err := os.ReadFile(filepath.Join(dest, "notes.txt"))
	if err != nil || string(original) != "old" {
		t.Errorf("original file disturbed: %q err=%v", original, err)
	}
}

func TestUnrelatedFilesIgnored(t *testing.T) {
	m, downloads, dest, _ := newTestMover(t)

	m.Defer("wanted.zip", dest, "Archive")
	if err := os.WriteFile(filepath.Join(downloads, "unrelated.zip"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	time.Sleep(300 * time.Millisecond)
	if _, err := os.Stat(filepath.Join(downloads, "unrelated.zip")); err != nil {
		t.Errorf("unrelated file should stay put: %v", err)
	}
	if m.PendingCount() != 1 {
		t.Errorf("pending = %d", m.PendingCount())
	}
}

func TestDeferIgnoresBlankArguments(t *testing.T) {
	m, _, dest, _ := newTestMover(t)
	m.Defer("", dest, "Rule")
	m.Defer("file.txt", "", "Rule")
	if m.PendingCount() != 0 {
		t.Errorf("pending = %d", m.PendingCount())
	}
}

func TestUniquePathSuffixes(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "file.txt")

	if got := uniquePath(target); got != target {
		t.Errorf("fresh target = %q", got)
	}
	if err := os.WriteFile(target, nil, 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if got := uniquePath(target); got != filepath.Join(dir, "file (1).txt") {
		t.Errorf("first collision = %q", got)
	}
	if err := os.WriteFile(filepath.Join(dir, "file (1).txt"), nil, 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if got := uniquePath(target); got != filepath.Join(dir, "file (2).txt") {
		t.Errorf("second collision = %q", got)
	}
}
