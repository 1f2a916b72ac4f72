package sync

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

func newTestWatcher(t *testing.T, debounce time.Duration) (string, *Watcher, *atomic.Int32) {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "zotero.sqlite")
	if err := os.WriteFile(dbPath, []byte("db"), 0644); err != nil {
		t.Fatalf("writing db file: %v", err)
	}

	var fired atomic.Int32
	w := NewWatcher(dbPath, debounce, func() { fired.Add(1) })
	return dbPath, w, &fired
}

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(time.Now().String()), 0644); err != nil {
		t.Fatalf("touching %s: %v", path, err)
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

func TestWatcher_FiresAfterDebounce(t *testing.T) {
	dbPath, w, fired := newTestWatcher(t, 50*time.Millisecond)
	if err := w.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer w.Stop()

	touch(t, dbPath)
	if !waitFor(t, 2*time.Second, func() bool { return fired.Load() == 1 }) {
		t.Fatalf("callback fired %d times, want 1", fired.Load())
	}
}

func TestWatcher_BurstCollapses(t *testing.T) {
	dbPath, w, fired := newTestWatcher(t, 150*time.Millisecond)
	if err := w.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer w.Stop()

	// A rapid burst of writes lands inside one debounce window.
	for i := 0; i < 5; i++ {
		touch(t, dbPath)
		time.Sleep(10 * time.Millisecond)
	}
	if !waitFor(t, 2*time.Second, func() bool { return fired.Load() >= 1 }) {
		t.Fatal("callback never fired")
	}
	// Settle past a second window to catch stragglers.
	time.Sleep(300 * time.Millisecond)
	if got := fired.Load(); got != 1 {
		t.Errorf("callback fired %d times, want 1", got)
	}
}

func TestWatcher_SidecarFilesCount(t *testing.T) {
	dbPath, w, fired := newTestWatcher(t, 50*time.Millisecond)
	if err := w.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer w.Stop()

	// SQLite writes land in the WAL before the main file changes.
	touch(t, dbPath+"-wal")
	if !waitFor(t, 2*time.Second, func() bool { return fired.Load() == 1 }) {
		t.Fatalf("callback fired %d times, want 1", fired.Load())
	}
}

func TestWatcher_IgnoresUnrelatedFiles(t *testing.T) {
	dbPath, w, fired := newTestWatcher(t, 50*time.Millisecond)
	if err := w.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer w.Stop()

	touch(t, filepath.Join(filepath.Dir(dbPath), "other.txt"))
	time.Sleep(250 * time.Millisecond)
	if got := fired.Load(); got != 0 {
		t.Errorf("callback fired %d times for an unrelated file", got)
	}
}

func TestWatcher_StopCancelsPending(t *testing.T) {
	dbPath, w, fired := newTestWatcher(t, 200*time.Millisecond)
	if err := w.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	touch(t, dbPath)
	// Allow the event to reach the loop, then stop inside the window.
	time.Sleep(50 * time.Millisecond)
	w.Stop()
	time.Sleep(400 * time.Millisecond)
	if got := fired.Load(); got != 0 {
		t.Errorf("callback fired %d times after Stop", got)
	}
}

func TestWatcher_StopWaitsForCallback(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "zotero.sqlite")
	touch(t, dbPath)

	started := make(chan struct{})
	var finished atomic.Bool
	w := NewWatcher(dbPath, 20*time.Millisecond, func() {
		close(started)
		time.Sleep(100 * time.Millisecond)
		finished.Store(true)
	})
	if err := w.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	touch(t, dbPath)
	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("callback never started")
	}

	w.Stop()
	if !finished.Load() {
		t.Error("Stop returned while the callback was still running")
	}
}

func TestWatcher_StartStopIdempotent(t *testing.T) {
	_, w, _ := newTestWatcher(t, 50*time.Millisecond)
	if err := w.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := w.Start(); err != nil {
		t.Errorf("second Start() error = %v", err)
	}
	w.Stop()
	w.Stop()
}

func TestWatcher_DefaultDebounce(t *testing.T) {
	w := NewWatcher("/tmp/zotero.sqlite", 0, func() {})
	if w.debounce != DefaultDebounce {
		t.Errorf("debounce = %v, want %v", w.debounce, DefaultDebounce)
	}
}

func TestRelevant(t *testing.T) {
	tests := []struct {
		name string
		path string
		want bool
	}{
		{"main db", "/lib/zotero.sqlite", true},
		{"wal sidecar", "/lib/zotero.sqlite-wal", true},
		{"journal sidecar", "/lib/zotero.sqlite-journal", true},
		{"shm sidecar", "/lib/zotero.sqlite-shm", true},
		{"unrelated", "/lib/notes.txt", false},
		{"similar prefix no dash", "/lib/zotero.sqlite2", false},
	}
	w := NewWatcher("/lib/zotero.sqlite", time.Second, func() {})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := fsnotify.Event{Name: tt.path, Op: fsnotify.Write}
			if got := w.relevant(ev); got != tt.want {
				t.Errorf("relevant(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}

	chmodOnly := fsnotify.Event{Name: "/lib/zotero.sqlite", Op: fsnotify.Chmod}
	if w.relevant(chmodOnly) {
		t.Error("chmod-only event should not be relevant")
	}
}
