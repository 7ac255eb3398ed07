// Package app wires a loom editor from configuration: logger, snapshot
// store, event loop, manager, and live config reload.
package app

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/dshills/loom/internal/config"
	"github.com/dshills/loom/internal/loop"
	"github.com/dshills/loom/internal/manager"
	"github.com/dshills/loom/internal/store"
)

// Options configures the application.
type Options struct {
	// ConfigPath is a YAML or TOML file. Empty uses defaults and the
	// environment only.
	ConfigPath string

	// EnvFiles are .env files layered under the environment.
	EnvFiles []string

	// LogLevel overrides log.level when set.
	LogLevel string

	// DocumentSource overrides document.source when set.
	DocumentSource string

	// DocumentID overrides document.id when set.
	DocumentID string

	// Watch reloads the config file when it changes.
	Watch bool

	// Logger replaces the logger built from the config.
	Logger *zap.Logger

	// Scheduler replaces the event loop. Tests pass a fake clock.
	Scheduler loop.Scheduler
}

// Application owns one editor and its supporting components.
type Application struct {
	mu sync.Mutex

	opts     Options
	cfg      *config.Config
	logger   *zap.Logger
	closeLog func()

	loop     *loop.Loop
	cancel   context.CancelFunc
	loopDone chan struct{}

	store    *store.Store
	manager  *manager.Manager
	reloader *config.Reloader

	closed bool
}

// New starts every component. On failure the ones already started are
// shut down again.
func New(opts Options) (*Application, error) {
	app := &Application{opts: opts}
	if err := newBootstrapper(app).bootstrap(); err != nil {
		return nil, err
	}
	return app, nil
}

// Manager returns the editor manager.
func (app *Application) Manager() *manager.Manager {
	return app.manager
}

// Config returns the config currently applied.
func (app *Application) Config() *config.Config {
	if app.reloader != nil {
		return app.reloader.Current()
	}
	return app.cfg
}

// Logger returns the application logger.
func (app *Application) Logger() *zap.Logger {
	return app.logger
}

// Store returns the snapshot store, or nil when none is configured.
func (app *Application) Store() *store.Store {
	return app.store
}

// Shutdown stops watching, destroys the manager, which flushes pending
// saves, then closes the loop, the store, and the log. It is safe to call
// more than once.
func (app *Application) Shutdown() error {
	app.mu.Lock()
	if app.closed {
		app.mu.Unlock()
		return nil
	}
	app.closed = true
	app.mu.Unlock()

	var errs []error
	if app.reloader != nil {
		errs = append(errs, app.reloader.Close())
	}
	if app.manager != nil && !app.manager.IsDestroyed() {
		errs = append(errs, app.manager.Destroy())
	}
	if app.loop != nil {
		app.cancel()
		<-app.loopDone
	}
	if app.store != nil {
		errs = append(errs, app.store.Close())
	}
	if app.logger != nil {
		app.logger.Info("shutdown complete")
	}
	if app.closeLog != nil {
		app.closeLog()
	}
	return errors.Join(errs...)
}
