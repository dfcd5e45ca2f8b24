package asset

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/inamate/panels/backend-go/internal/engine"
)

// URLPrefix is where stored assets are served.
const URLPrefix = "/assets/"

// Resolver maps panel image refs to asset URLs. Existence checks are cached
// and the cache entry for a file is dropped whenever the watcher sees it
// change.
type Resolver struct {
	dir    string
	logger *slog.Logger

	mu    sync.RWMutex
	known map[string]bool // file name -> exists

	watcher *fsnotify.Watcher
	done    chan struct{}
}

var _ engine.ResourceResolver = (*Resolver)(nil)

// NewResolver watches dir and resolves refs against it.
func NewResolver(dir string, logger *slog.Logger) (*Resolver, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create asset dir: %w", err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	r := &Resolver{
		dir:     dir,
		logger:  logger,
		known:   make(map[string]bool),
		watcher: w,
		done:    make(chan struct{}),
	}
	go r.watch()
	return r, nil
}

// Resolve returns the URL for ref. Absolute http(s) and data URLs pass
// through untouched.
func (r *Resolver) Resolve(ref string) (string, error) {
	if isExternal(ref) {
		return ref, nil
	}
	name, ok := cleanRef(ref)
	if !ok {
		return "", &engine.ResourceNotFoundError{Ref: ref}
	}

	r.mu.RLock()
	exists, cached := r.known[name]
	r.mu.RUnlock()

	if !cached {
		_, err := os.Stat(filepath.Join(r.dir, name))
		exists = err == nil
		r.mu.Lock()
		r.known[name] = exists
		r.mu.Unlock()
	}

	if !exists {
		return "", &engine.ResourceNotFoundError{Ref: ref}
	}
	return URLPrefix + name, nil
}

func (r *Resolver) watch() {
	defer close(r.done)
	for {
		select {
		case ev, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			r.forget(filepath.Base(ev.Name))
		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				r.forgetAll()
			}
			r.logger.Warn("asset watcher", "error", err)
		}
	}
}

func (r *Resolver) forget(name string) {
	r.mu.Lock()
	delete(r.known, name)
	r.mu.Unlock()
}

func (r *Resolver) forgetAll() {
	r.mu.Lock()
	clear(r.known)
	r.mu.Unlock()
}

// Close stops the watcher.
func (r *Resolver) Close() error {
	err := r.watcher.Close()
	<-r.done
	return err
}

func isExternal(ref string) bool {
	return strings.HasPrefix(ref, "http://") ||
		strings.HasPrefix(ref, "https://") ||
		strings.HasPrefix(ref, "data:")
}

// cleanRef reduces a ref to a bare file name inside the asset directory.
func cleanRef(ref string) (string, bool) {
	name := strings.TrimPrefix(ref, URLPrefix)
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", false
	}
	return name, true
}
