package config

import (
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/dshills/loom/internal/config/watcher"
	"github.com/dshills/loom/internal/manager"
)

// Reloader re-reads the config file when it changes and applies the
// difference to a manager.
type Reloader struct {
	mu      sync.Mutex
	opts    LoadOptions
	m       *manager.Manager
	logger  *zap.Logger
	current *Config
	watcher *watcher.Watcher

	// OnReload, when set, is called after each reload attempt.
	OnReload func(cfg *Config, updated []string, err error)
}

// NewReloader starts watching opts.Path. current is the config m was
// built from.
func NewReloader(m *manager.Manager, current *Config, opts LoadOptions, wopts ...watcher.Option) (*Reloader, error) {
	if opts.Path == "" {
		return nil, errors.New("reloader needs a config path")
	}
	w, err := watcher.New(wopts...)
	if err != nil {
		return nil, err
	}
	r := &Reloader{
		opts:    opts,
		m:       m,
		logger:  m.Logger().Named("config"),
		current: current,
		watcher: w,
	}
	w.OnChange(r.handleEvent)
	w.OnError(func(err error) { r.logger.Warn("config watcher error", zap.Error(err)) })
	if err := w.Watch(opts.Path); err != nil {
		_ = w.Close()
		return nil, err
	}
	return r, nil
}

// Current returns the last config applied.
func (r *Reloader) Current() *Config {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Reload loads the config and applies it. On error the current config is
// kept.
func (r *Reloader) Reload() ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	next, err := Load(r.opts)
	if err != nil {
		return nil, err
	}
	updated, err := Apply(r.m, r.current, next)
	if err != nil {
		return updated, err
	}
	r.current = next
	return updated, nil
}

// Close stops watching.
func (r *Reloader) Close() error {
	return r.watcher.Close()
}

func (r *Reloader) handleEvent(ev watcher.Event) {
	if ev.Op == watcher.OpRemove {
		r.logger.Info("config file removed, keeping current settings", zap.String("path", ev.Path))
		return
	}
	updated, err := r.Reload()
	if err != nil {
		r.logger.Error("config reload failed", zap.String("path", ev.Path), zap.Error(err))
	} else {
		r.logger.Info("config reloaded", zap.Strings("updated", updated))
	}
	if r.OnReload != nil {
		r.OnReload(r.Current(), updated, err)
	}
}
