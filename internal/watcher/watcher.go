// Package watcher notifies when Ralph state files change under watched spec
// directories. Bursts of writes are coalesced into one notification.
package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/newhook/ralph-doctor/internal/discovery"
	"github.com/newhook/ralph-doctor/internal/logging"
	"github.com/newhook/ralph-doctor/internal/ralph"
)

// DefaultDebounce is used when Config.Debounce is zero.
const DefaultDebounce = 500 * time.Millisecond

// Config configures a Watcher.
type Config struct {
	Debounce time.Duration
}

// Watcher watches spec marker directories and their specs containers.
type Watcher struct {
	fsw      *fsnotify.Watcher
	debounce time.Duration

	mu      sync.Mutex
	watched map[string]bool
}

// New creates a Watcher. Call Watch to register spec directories.
func New(cfg Config) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		fsw:      fsw,
		debounce: debounce,
		watched:  make(map[string]bool),
	}, nil
}

// Watch registers each spec's marker directory and the specs container that
// holds it, so new specs appearing next to existing ones are noticed too.
// Directories that cannot be watched are skipped.
func (w *Watcher) Watch(specDirs []string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, spec := range specDirs {
		for _, dir := range []string{filepath.Join(spec, ralph.MarkerDir), filepath.Dir(spec)} {
			if w.watched[dir] {
				continue
			}
			if err := w.fsw.Add(dir); err != nil {
				logging.Debug("cannot watch directory", "dir", dir, "error", err)
				continue
			}
			w.watched[dir] = true
		}
	}
}

// Watched returns the number of watched directories.
func (w *Watcher) Watched() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.watched)
}

// Run calls onChange after each debounced burst of relevant events until ctx
// is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context, onChange func()) error {
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !relevant(event) {
				continue
			}
			logging.Debug("state change", "path", event.Name, "op", event.Op.String())
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			logging.Warn("file watcher error", "error", err)

		case <-fire:
			fire = nil
			onChange()
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// relevant reports whether event concerns Ralph state: the progress file, the
// session log, or a directory appearing in a specs container.
func relevant(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	switch filepath.Base(event.Name) {
	case ralph.ProgressFile, ralph.SessionLogFile:
		return true
	}
	return event.Has(fsnotify.Create) && filepath.Base(filepath.Dir(event.Name)) == discovery.SpecsDirName
}
