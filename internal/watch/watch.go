// Package watch re-renders profile output whenever the snapshot
// directory changes on disk.
//
// Events are debounced: a crawl rewrites a dozen files back to back and
// only the settled state should trigger one render.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const (
	debounceDur = 500 * time.Millisecond
	flushEvery  = 100 * time.Millisecond
	reposSubdir = "repos"
	watchedExt  = ".json"
)

// RenderFunc runs one full render pass.
type RenderFunc func(ctx context.Context) error

// Watcher triggers a RenderFunc after snapshot writes settle.
type Watcher struct {
	dir      string
	absDir   string
	absRepos string
	render   RenderFunc
	log      *zap.Logger
	watcher  *fsnotify.Watcher

	mu      sync.Mutex
	dirtyAt time.Time
	running bool
	files   map[string]bool

	stopCh chan struct{}
	doneCh chan struct{}
}

func New(dir string, render RenderFunc, log *zap.Logger) (*Watcher, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		dir:      dir,
		absDir:   abs,
		absRepos: filepath.Join(abs, reposSubdir),
		render:   render,
		log:      log,
		watcher:  fw,
		files:    make(map[string]bool),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// WatchFile adds one specific file to the watch set. Its directory is
// watched and events for other entries there are ignored. The file may
// not exist yet; it triggers once created.
func (w *Watcher) WatchFile(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := w.watcher.Add(filepath.Dir(abs)); err != nil {
		return err
	}
	w.mu.Lock()
	w.files[abs] = true
	w.mu.Unlock()
	w.log.Info("watching file", zap.String("path", abs))
	return nil
}

// Start begins watching the snapshot directory. Non-blocking; the event
// loop runs in its own goroutine until Stop or context cancellation. On
// failure the watcher stays idle: Stop is a no-op and Start may be
// retried.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := w.watcher.Add(w.dir); err != nil {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		return err
	}
	reposDir := filepath.Join(w.dir, reposSubdir)
	if _, err := os.Stat(reposDir); err == nil {
		if err := w.watcher.Add(reposDir); err != nil {
			w.log.Warn("repos dir not watched", zap.String("dir", reposDir), zap.Error(err))
		}
	}
	w.log.Info("watching snapshot dir", zap.String("dir", w.dir))

	go w.run(ctx)
	return nil
}

// Stop halts the event loop and waits for it to drain.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	if err := w.watcher.Close(); err != nil {
		w.log.Warn("watcher close failed", zap.Error(err))
	}
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(flushEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Error("watch error", zap.Error(err))
		case <-ticker.C:
			w.flush(ctx)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) == 0 {
		return
	}
	if !w.snapshotFile(event.Name) && !w.watchedFile(event.Name) {
		return
	}
	w.log.Debug("input changed", zap.String("path", event.Name), zap.String("op", event.Op.String()))

	w.mu.Lock()
	w.dirtyAt = time.Now()
	w.mu.Unlock()
}

// snapshotFile reports whether name is a .json entry directly under the
// snapshot dir or its repos subdir. Directories added through WatchFile
// only ever match by exact path.
func (w *Watcher) snapshotFile(name string) bool {
	if !strings.HasSuffix(name, watchedExt) {
		return false
	}
	abs, err := filepath.Abs(name)
	if err != nil {
		return false
	}
	dir := filepath.Dir(abs)
	return dir == w.absDir || dir == w.absRepos
}

func (w *Watcher) watchedFile(name string) bool {
	abs, err := filepath.Abs(name)
	if err != nil {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.files[abs]
}

// flush runs the render once the last event is older than the debounce
// window.
func (w *Watcher) flush(ctx context.Context) {
	w.mu.Lock()
	if w.dirtyAt.IsZero() || time.Since(w.dirtyAt) < debounceDur {
		w.mu.Unlock()
		return
	}
	w.dirtyAt = time.Time{}
	w.mu.Unlock()

	w.log.Info("snapshot settled, rendering")
	if err := w.render(ctx); err != nil {
		w.log.Error("render failed", zap.Error(err))
	}
}
