package config

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Holder keeps the current configuration of a running server and reloads it
// when the file changes or SIGHUP arrives. Only the fields listed by
// ReloadableFields take effect without a restart; listeners decide what to
// apply.
type Holder struct {
	mu        sync.RWMutex
	cfg       *Config
	path      string
	log       zerolog.Logger
	watcher   *fsnotify.Watcher
	listeners []func(*Config)
	stop      chan struct{}
	stopOnce  sync.Once
}

// NewHolder loads the file at path.
func NewHolder(path string, log zerolog.Logger) (*Holder, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("config path: %w", err)
	}
	cfg, err := Load(abs)
	if err != nil {
		return nil, err
	}
	return &Holder{cfg: cfg, path: abs, log: log, stop: make(chan struct{})}, nil
}

// Get returns the current configuration.
func (h *Holder) Get() *Config {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.cfg
}

// OnChange registers fn to run after every successful reload.
func (h *Holder) OnChange(fn func(*Config)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listeners = append(h.listeners, fn)
}

// Reload reads the file again. On error the previous configuration stays
// current.
func (h *Holder) Reload() error {
	next, err := Load(h.path)
	if err != nil {
		h.log.Error().Err(err).Str("path", h.path).Msg("config reload failed, keeping previous config")
		return fmt.Errorf("reload config: %w", err)
	}

	h.mu.Lock()
	prev := h.cfg
	h.cfg = next
	listeners := append(([]func(*Config))(nil), h.listeners...)
	h.mu.Unlock()

	h.logChanges(prev, next)
	for _, fn := range listeners {
		fn(next)
	}
	h.log.Info().Str("path", h.path).Msg("config reloaded")
	return nil
}

// WatchFile reloads on writes to the config file. The directory is watched
// so editors that save by rename are seen as a Create.
func (h *Holder) WatchFile() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(h.path)); err != nil {
		w.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(h.path), err)
	}
	h.watcher = w
	go h.watchLoop(w)
	h.log.Info().Str("path", h.path).Msg("watching config file")
	return nil
}

// WatchSignals reloads on SIGHUP until Stop.
func (h *Holder) WatchSignals() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP)
	go func() {
		defer signal.Stop(sig)
		for {
			select {
			case <-sig:
				h.log.Info().Msg("SIGHUP received")
				_ = h.Reload()
			case <-h.stop:
				return
			}
		}
	}()
}

// Stop ends file and signal watching. It is safe to call more than once.
func (h *Holder) Stop() {
	h.stopOnce.Do(func() {
		close(h.stop)
		if h.watcher != nil {
			h.watcher.Close()
		}
	})
}

func (h *Holder) watchLoop(w *fsnotify.Watcher) {
	name := filepath.Base(h.path)
	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != name || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			h.log.Debug().Str("event", ev.Op.String()).Msg("config file changed")
			_ = h.Reload()
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			h.log.Error().Err(err).Msg("config watcher")
		case <-h.stop:
			return
		}
	}
}

func (h *Holder) logChanges(prev, next *Config) {
	if prev.Logging.Level != next.Logging.Level {
		h.log.Info().Str("old", prev.Logging.Level).Str("new", next.Logging.Level).Msg("log level changed")
	}
	if prev.Server.Language != next.Server.Language {
		h.log.Info().Str("old", prev.Server.Language).Str("new", next.Server.Language).Msg("language changed")
	}
	if prev.Server.Addr != next.Server.Addr || prev.Server.BasePath != next.Server.BasePath {
		h.log.Warn().Msg("server address changes need a restart")
	}
	if len(prev.Resources) != len(next.Resources) {
		h.log.Warn().Int("old", len(prev.Resources)).Int("new", len(next.Resources)).
			Msg("resource changes need a restart")
	}
}

// ReloadableFields lists the settings applied without a restart.
func ReloadableFields() []string {
	return []string{"logging.level", "server.language"}
}
