package oasvalidator

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Reloader serves an Instance built from a document file and rebuilds it when the file changes.
// A document that fails to load leaves the previous Instance in place.
type Reloader struct {
	filePath string
	opts     []Option
	logger   *slog.Logger
	debounce time.Duration

	current atomic.Pointer[Instance]

	watcher *fsnotify.Watcher
	stop    chan struct{}
	done    chan struct{}

	mu     sync.Mutex
	timer  *time.Timer
	closed bool
}

// NewReloader builds the Instance for filePath and starts watching the file.
func NewReloader(filePath string, opts ...Option) (*Reloader, error) {
	abs, err := filepath.Abs(filePath)
	if err != nil {
		return nil, err
	}
	options := newOptions(opts)

	inst, err := NewFromFile(abs, opts...)
	if err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	// editors replace files on save, the directory sees those events
	if err = watcher.Add(filepath.Dir(abs)); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", abs, err)
	}

	r := &Reloader{
		filePath: abs,
		opts:     opts,
		logger:   options.logger(),
		debounce: options.ReloadDebounce,
		watcher:  watcher,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	r.current.Store(inst)

	go r.watch()
	r.logger.Info("document watcher started", "path", abs)
	return r, nil
}

// Instance returns the Instance built from the latest loadable document.
func (r *Reloader) Instance() *Instance {
	return r.current.Load()
}

// Validate validates req with the current Instance.
func (r *Reloader) Validate(req *Request) error {
	return r.Instance().Validate(req)
}

// Options returns the options of the current Instance.
func (r *Reloader) Options() Options {
	return r.Instance().Options()
}

// Reload rebuilds the Instance now.
func (r *Reloader) Reload() error {
	inst, err := NewFromFile(r.filePath, r.opts...)
	if err != nil {
		r.logger.Error("document reload failed, keeping previous version", "path", r.filePath, "error", err)
		return err
	}
	r.current.Store(inst)
	r.logger.Info("document reloaded", "path", r.filePath, "paths", len(inst.Routes()))
	return nil
}

// Close stops watching. The last Instance stays usable.
func (r *Reloader) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	r.mu.Unlock()

	close(r.stop)
	err := r.watcher.Close()
	<-r.done
	return err
}

func (r *Reloader) watch() {
	defer close(r.done)

	for {
		select {
		case <-r.stop:
			return
		case event, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != r.filePath {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			r.logger.Debug("document changed", "path", event.Name, "op", event.Op.String())
			r.scheduleReload()
		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			r.logger.Error("document watcher error", "error", err)
		}
	}
}

// scheduleReload reloads once the file has been quiet for the debounce period.
func (r *Reloader) scheduleReload() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	if r.timer != nil {
		r.timer.Stop()
	}
	r.timer = time.AfterFunc(r.debounce, func() {
		_ = r.Reload()
	})
}
