package config

import (
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/untreu2/divinefeed/internal/log"
)

// Holder provides thread-safe, hot-reloadable access to a FileConfig,
// watching its backing file with fsnotify (teacher: internal/config/reload.go).
type Holder struct {
	path     string
	snapshot atomic.Pointer[FileConfig]
	watcher  *fsnotify.Watcher
	logger   zerolog.Logger

	mu        sync.Mutex
	listeners []chan<- *FileConfig
}

// NewHolder wraps an already-loaded FileConfig and, if path is non-empty,
// starts watching it for changes.
func NewHolder(initial *FileConfig, path string) (*Holder, error) {
	h := &Holder{path: path, logger: log.WithComponent("config")}
	h.snapshot.Store(initial)

	if path == "" {
		return h, nil
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		_ = w.Close()
		return nil, err
	}
	h.watcher = w
	go h.watch()
	return h, nil
}

// Get returns the current configuration snapshot.
func (h *Holder) Get() *FileConfig { return h.snapshot.Load() }

// Subscribe registers ch to receive every successfully reloaded config.
// The channel must not block; callers typically pass a small buffered
// channel.
func (h *Holder) Subscribe(ch chan<- *FileConfig) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listeners = append(h.listeners, ch)
}

// Close stops the file watcher, if any.
func (h *Holder) Close() error {
	if h.watcher == nil {
		return nil
	}
	return h.watcher.Close()
}

func (h *Holder) watch() {
	debounce := time.NewTimer(0)
	if !debounce.Stop() {
		<-debounce.C
	}
	for {
		select {
		case ev, ok := <-h.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != filepath.Clean(h.path) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			debounce.Reset(100 * time.Millisecond)
		case <-debounce.C:
			h.reload()
		case _, ok := <-h.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

func (h *Holder) reload() {
	fc, err := Load(h.path)
	if err != nil {
		h.logger.Warn().Err(err).Str("path", h.path).Msg("config reload failed, keeping previous snapshot")
		return
	}
	h.snapshot.Store(fc)
	h.logger.Info().Str("path", h.path).Msg("config reloaded")

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.listeners {
		select {
		case ch <- fc:
		default:
		}
	}
}
