package config

import (
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// defaultDebounce coalesces editor save bursts into one reload.
const defaultDebounce = 1500 * time.Millisecond

// Watcher reloads a configuration file whenever it changes on disk and
// hands the freshly loaded value to registered handlers. The daemon
// uses it to re-apply cameras.toml without a restart. Nothing is
// cached: the loader runs on every change so handlers never see stale
// data.
type Watcher[T any] struct {
	path     string
	debounce time.Duration
	load     func(path string) (T, error)
	onError  func(error)
	logger   *slog.Logger

	mu       sync.RWMutex
	handlers []handlerEntry[T]
	nextID   int

	fsw      *fsnotify.Watcher
	stopOnce sync.Once
	done     chan struct{}
}

type handlerEntry[T any] struct {
	id int
	fn func(T)
}

// WatcherOption configures a Watcher.
type WatcherOption[T any] func(*Watcher[T])

// WithDebounce overrides how long the watcher waits after the last
// change before reloading.
func WithDebounce[T any](d time.Duration) WatcherOption[T] {
	return func(w *Watcher[T]) {
		w.debounce = d
	}
}

// WithErrorHandler adds a callback for loader failures, which are
// otherwise only logged.
func WithErrorHandler[T any](fn func(error)) WatcherOption[T] {
	return func(w *Watcher[T]) {
		w.onError = fn
	}
}

// NewConfigWatcher builds a watcher over one file. Call Start to begin
// watching.
func NewConfigWatcher[T any](
	path string,
	load func(path string) (T, error),
	logger *slog.Logger,
	opts ...WatcherOption[T],
) *Watcher[T] {
	w := &Watcher[T]{
		path:     path,
		debounce: defaultDebounce,
		load:     load,
		logger:   logger,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// OnReload registers a handler for reloaded configs and returns a
// function that removes it again. Handlers run in registration order.
func (w *Watcher[T]) OnReload(fn func(T)) func() {
	w.mu.Lock()
	w.nextID++
	id := w.nextID
	w.handlers = append(w.handlers, handlerEntry[T]{id: id, fn: fn})
	w.mu.Unlock()

	return func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		w.handlers = slices.DeleteFunc(w.handlers, func(e handlerEntry[T]) bool {
			return e.id == id
		})
	}
}

// Start begins watching the file.
func (w *Watcher[T]) Start() error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fsw.Add(w.path); err != nil {
		fsw.Close()
		return err
	}
	w.fsw = fsw

	w.logger.Info("Config watcher started", "path", w.path, "debounce", w.debounce)
	go w.run()
	return nil
}

// Stop ends the watch. Safe to call more than once.
func (w *Watcher[T]) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)
		if w.fsw != nil {
			err = w.fsw.Close()
		}
	})
	return err
}

func (w *Watcher[T]) run() {
	delay := time.NewTimer(w.debounce)
	if !delay.Stop() {
		<-delay.C
	}

	for {
		select {
		case <-w.done:
			delay.Stop()
			w.logger.Debug("Config watcher stopped")
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			// Writes are the common case; editors that replace the
			// file whole show up as Create.
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.logger.Debug("Config file change detected", "op", ev.Op.String())
			if !delay.Stop() {
				select {
				case <-delay.C:
				default:
				}
			}
			delay.Reset(w.debounce)

		case <-delay.C:
			w.logger.Info("Config file changed, reloading")
			w.reload()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Config watcher error", "error", err)
		}
	}
}

// reload runs the loader and fans the result out. Every handler sees
// the same snapshot.
func (w *Watcher[T]) reload() {
	cfg, err := w.load(w.path)
	if err != nil {
		w.logger.Warn("Failed to load config", "error", err)
		if w.onError != nil {
			w.onError(err)
		}
		return
	}

	w.mu.RLock()
	handlers := make([]func(T), 0, len(w.handlers))
	for _, e := range w.handlers {
		handlers = append(handlers, e.fn)
	}
	w.mu.RUnlock()

	for _, fn := range handlers {
		fn(cfg)
	}
}
