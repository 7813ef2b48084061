// Package watcher reports changes to a model-json file so offline renders
// can be refreshed.
package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/vanderheijden86/caseview/pkg/debug"
)

// DefaultPollInterval is how often the polling fallback stats the file.
const DefaultPollInterval = 2 * time.Second

var (
	ErrFileRemoved    = errors.New("watched file was removed")
	ErrAlreadyStarted = errors.New("watcher already started")
)

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounceDuration sets the quiet period before a change is reported.
func WithDebounceDuration(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// WithPollInterval sets the polling interval of the fallback.
func WithPollInterval(d time.Duration) Option {
	return func(w *Watcher) { w.pollInterval = d }
}

// WithOnError receives watch errors, including ErrFileRemoved.
func WithOnError(fn func(error)) Option {
	return func(w *Watcher) { w.onError = fn }
}

// WithForcePoll skips fsnotify.
func WithForcePoll(force bool) Option {
	return func(w *Watcher) { w.forcePoll = force }
}

// Watcher follows one file. It watches the parent directory with fsnotify
// and falls back to polling when that fails or CV_FORCE_POLL is set.
type Watcher struct {
	path         string
	debounce     time.Duration
	pollInterval time.Duration
	forcePoll    bool
	onError      func(error)

	debouncer *Debouncer
	changes   chan struct{}

	mu      sync.Mutex
	cancel  context.CancelFunc
	fsw     *fsnotify.Watcher
	polling bool
	wg      sync.WaitGroup
}

// New creates a watcher for path. Call Start to begin watching.
func New(path string, opts ...Option) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		path:         abs,
		pollInterval: DefaultPollInterval,
		onError:      func(error) {},
		changes:      make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.debouncer = NewDebouncer(w.debounce)
	return w, nil
}

// Start begins watching until ctx is done or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		return ErrAlreadyStarted
	}

	var last os.FileInfo
	if info, err := os.Stat(w.path); err == nil {
		last = info
	} else if !os.IsNotExist(err) {
		return err
	}

	w.polling = w.forcePoll || envBool("CV_FORCE_POLL")
	if !w.polling {
		fsw, err := fsnotify.NewWatcher()
		if err == nil {
			// the directory, so rename-over saves are seen
			if err = fsw.Add(filepath.Dir(w.path)); err != nil {
				fsw.Close()
			}
		}
		if err != nil {
			debug.Log("watcher: fsnotify unavailable for %s, polling: %v", w.path, err)
			w.polling = true
		} else {
			w.fsw = fsw
		}
	}

	ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(1)
	if w.polling {
		go w.poll(ctx, last)
	} else {
		go w.watch(ctx, w.fsw)
	}
	return nil
}

// Stop ends watching and waits for the watch goroutine. It is safe to call
// more than once.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if w.cancel == nil {
		w.mu.Unlock()
		return
	}
	w.cancel()
	w.cancel = nil
	if w.fsw != nil {
		w.fsw.Close()
		w.fsw = nil
	}
	w.mu.Unlock()

	w.wg.Wait()
	w.debouncer.Cancel()
}

// IsPolling reports whether the polling fallback is in use.
func (w *Watcher) IsPolling() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.polling
}

// IsStarted reports whether the watcher is running.
func (w *Watcher) IsStarted() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cancel != nil
}

// Changed receives once per debounced burst of changes.
func (w *Watcher) Changed() <-chan struct{} {
	return w.changes
}

func envBool(name string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(name))) {
	case "1", "true", "yes", "y", "on":
		return true
	}
	return false
}

func (w *Watcher) watch(ctx context.Context, fsw *fsnotify.Watcher) {
	defer w.wg.Done()
	name := filepath.Base(w.path)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != name {
				continue
			}
			if ev.Op&fsnotify.Remove != 0 {
				w.onError(ErrFileRemoved)
			} else if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				w.debouncer.Trigger(w.notify)
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.onError(err)
		}
	}
}

// poll owns last; nothing else reads it.
func (w *Watcher) poll(ctx context.Context, last os.FileInfo) {
	defer w.wg.Done()
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		info, err := os.Stat(w.path)
		switch {
		case os.IsNotExist(err):
			if last != nil {
				w.onError(ErrFileRemoved)
				last = nil
			}
		case err != nil:
			w.onError(err)
		case last == nil || info.ModTime().After(last.ModTime()) || info.Size() != last.Size():
			last = info
			w.debouncer.Trigger(w.notify)
		}
	}
}

func (w *Watcher) notify() {
	select {
	case w.changes <- struct{}{}:
	default:
	}
}
