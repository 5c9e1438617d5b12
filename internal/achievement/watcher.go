package achievement

import (
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"

	"github.com/JonnyWalker81/trendy/engagement/internal/logger"
)

// Source supplies the catalog in effect right now
type Source interface {
	Catalog() *Catalog
}

// StaticSource always returns the same catalog
type StaticSource struct {
	c *Catalog
}

func NewStaticSource(c *Catalog) StaticSource {
	return StaticSource{c: c}
}

func (s StaticSource) Catalog() *Catalog {
	return s.c
}

// Watcher holds the catalog loaded from a YAML file and swaps in a new
// immutable Catalog whenever the file changes. Invalid edits are logged and
// the previous catalog stays in effect.
type Watcher struct {
	path    string
	log     logger.Logger
	current atomic.Pointer[Catalog]

	mu       sync.Mutex
	onChange []func(*Catalog)
	onError  []func(error)
}

// NewWatcher performs the initial load of path
func NewWatcher(path string, log logger.Logger) (*Watcher, error) {
	c, err := LoadCatalogFile(path)
	if err != nil {
		return nil, err
	}
	w := &Watcher{path: path, log: log}
	w.current.Store(c)
	return w, nil
}

// Catalog returns the latest valid catalog
func (w *Watcher) Catalog() *Catalog {
	return w.current.Load()
}

// OnChange registers a callback invoked after every successful reload
func (w *Watcher) OnChange(fn func(*Catalog)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = append(w.onChange, fn)
}

// OnError registers a callback invoked after every failed reload
func (w *Watcher) OnError(fn func(error)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onError = append(w.onError, fn)
}

// Reload re-reads the file immediately
func (w *Watcher) Reload() (*Catalog, error) {
	c, err := LoadCatalogFile(w.path)
	if err != nil {
		w.mu.Lock()
		callbacks := slices.Clone(w.onError)
		w.mu.Unlock()

		for _, fn := range callbacks {
			fn(err)
		}
		return nil, err
	}
	w.current.Store(c)

	w.mu.Lock()
	callbacks := slices.Clone(w.onChange)
	w.mu.Unlock()

	for _, fn := range callbacks {
		fn(c)
	}
	return c, nil
}

// Watch starts a goroutine that reloads the catalog on file writes.
// Call the returned stop function to clean up.
func (w *Watcher) Watch() (stop func(), err error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("catalog watcher: %w", err)
	}
	if err := fw.Add(w.path); err != nil {
		fw.Close()
		return nil, fmt.Errorf("catalog watcher add %s: %w", w.path, err)
	}

	done := make(chan struct{})
	go func() {
		defer fw.Close()
		for {
			select {
			case ev, ok := <-fw.Events:
				if !ok {
					return
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
					continue
				}
				c, err := w.Reload()
				if err != nil {
					w.log.Warn("catalog reload failed, keeping previous catalog",
						logger.String("path", w.path),
						logger.Err(err),
					)
					continue
				}
				w.log.Info("catalog reloaded",
					logger.String("path", w.path),
					logger.Int("achievements", c.Len()),
				)
			case err, ok := <-fw.Errors:
				if !ok {
					return
				}
				w.log.Warn("catalog watcher error", logger.Err(err))
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	return func() { once.Do(func() { close(done) }) }, nil
}
