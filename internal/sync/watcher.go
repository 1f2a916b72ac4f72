package sync

import (
	"fmt"
	"path/filepath"
	"strings"
	gosync "sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet window applied after the last database
// write before a resync fires. Zotero writes in bursts; debouncing
// collapses a burst into one sync.
const DefaultDebounce = 2 * time.Second

// Watcher watches the Zotero database for writes and invokes a callback
// after a debounce window of quiet.
type Watcher struct {
	dbPath   string
	debounce time.Duration
	onChange func()

	mu      gosync.Mutex
	watcher *fsnotify.Watcher
	timer   *time.Timer
	running bool
	done    chan struct{}
	inFire  gosync.WaitGroup
}

// NewWatcher builds a watcher over the given database file. debounce <= 0
// falls back to DefaultDebounce. onChange runs on the watcher goroutine
// after each quiet window.
func NewWatcher(dbPath string, debounce time.Duration, onChange func()) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		dbPath:   dbPath,
		debounce: debounce,
		onChange: onChange,
	}
}

// Start begins watching. Safe to call when already running (no-op).
// The containing directory is watched rather than the file itself:
// SQLite replaces files on checkpoint, which drops file-level watches.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(w.dbPath)); err != nil {
		fw.Close()
		return fmt.Errorf("watching %s: %w", filepath.Dir(w.dbPath), err)
	}

	w.watcher = fw
	w.running = true
	w.done = make(chan struct{})
	go w.loop(fw, w.done)
	return nil
}

// Stop halts watching and cancels any pending debounce timer, waiting
// out a callback already in flight: the callback does not fire after
// Stop returns. Safe to call when not running. The callback must not
// call Stop.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	close(w.done)
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	err := w.watcher.Close()
	w.watcher = nil
	w.mu.Unlock()

	w.inFire.Wait()
	return err
}

func (w *Watcher) loop(fw *fsnotify.Watcher, done chan struct{}) {
	for {
		select {
		case <-done:
			return
		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			w.resetTimer()
		case _, ok := <-fw.Errors:
			if !ok {
				return
			}
			// Watch errors are transient (editor swap files, perms);
			// keep watching.
		}
	}
}

// relevant filters to write-ish events on the database and its SQLite
// sidecar files (-wal, -journal, -shm).
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return false
	}
	base := filepath.Base(w.dbPath)
	name := filepath.Base(event.Name)
	return name == base || strings.HasPrefix(name, base+"-")
}

func (w *Watcher) resetTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.fire)
}

func (w *Watcher) fire() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.timer = nil
	// Registered under the same lock as the running check, so Stop
	// either sees the registration and waits, or fire sees !running.
	w.inFire.Add(1)
	w.mu.Unlock()
	defer w.inFire.Done()
	w.onChange()
}
