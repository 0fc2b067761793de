package server

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/teranos/ontix/errors"
)

// Watcher observes local backend database files and notifies connected
// clients when their contents change. SQLite in WAL mode writes to the
// -wal sidecar on most commits, so both the database file and its
// sidecars map back to the same backend.
type Watcher struct {
	server   *Server
	fsw      *fsnotify.Watcher
	logger   *zap.SugaredLogger
	backends map[string]string        // absolute file path -> backend name
	limiters map[string]*rate.Limiter // backend name -> debounce limiter
}

// refreshRate caps refresh broadcasts per backend. A bulk import
// produces hundreds of write events in a burst; one notification every
// two seconds is enough for renderers to reload.
var refreshRate = rate.Every(2 * time.Second)

// NewWatcher creates a watcher bound to srv. Paths are registered with
// WatchBackend before Run.
func NewWatcher(srv *Server, logger *zap.SugaredLogger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "creating filesystem watcher")
	}
	return &Watcher{
		server:   srv,
		fsw:      fsw,
		logger:   logger,
		backends: make(map[string]string),
		limiters: make(map[string]*rate.Limiter),
	}, nil
}

// WatchBackend registers the database file for one backend. The parent
// directory is watched rather than the file itself: SQLite replaces
// sidecar files on checkpoint, which drops per-file watches.
func (w *Watcher) WatchBackend(name, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrapf(err, "resolving path for backend %q", name)
	}

	dir := filepath.Dir(abs)
	if err := w.fsw.Add(dir); err != nil {
		return errors.Wrapf(err, "watching %s for backend %q", dir, name)
	}

	w.backends[abs] = name
	w.limiters[name] = rate.NewLimiter(refreshRate, 1)

	w.logger.Infow("Watching backend database",
		"backend", name,
		"path", abs,
	)
	return nil
}

// Run processes filesystem events until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	defer w.fsw.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			name := w.backendFor(event.Name)
			if name == "" {
				continue
			}
			if !w.limiters[name].Allow() {
				continue
			}
			w.logger.Debugw("Backend data changed",
				"backend", name,
				"file", event.Name,
			)
			w.server.NotifyRefresh(name)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warnw("Filesystem watcher error", "error", err)
		}
	}
}

// backendFor maps an event path to a registered backend, accepting the
// database file itself and its -wal/-shm/-journal sidecars.
func (w *Watcher) backendFor(eventPath string) string {
	abs, err := filepath.Abs(eventPath)
	if err != nil {
		return ""
	}
	if name, ok := w.backends[abs]; ok {
		return name
	}
	for _, suffix := range []string{"-wal", "-shm", "-journal"} {
		if strings.HasSuffix(abs, suffix) {
			if name, ok := w.backends[strings.TrimSuffix(abs, suffix)]; ok {
				return name
			}
		}
	}
	return ""
}
