package app

import (
	"context"

	"go.uber.org/zap"

	"github.com/dshills/loom/internal/config"
	"github.com/dshills/loom/internal/extensions/persist"
	"github.com/dshills/loom/internal/logging"
	"github.com/dshills/loom/internal/loop"
	"github.com/dshills/loom/internal/manager"
	"github.com/dshills/loom/internal/presets/core"
	"github.com/dshills/loom/internal/store"
)

// bootstrapper starts components in dependency order and shuts the
// started ones down when a later one fails.
type bootstrapper struct {
	app       *Application
	opts      Options
	loadOpts  config.LoadOptions
	scheduler loop.Scheduler
	initOrder []string
}

func newBootstrapper(app *Application) *bootstrapper {
	return &bootstrapper{
		app:       app,
		opts:      app.opts,
		initOrder: make([]string, 0, 6),
	}
}

func (b *bootstrapper) bootstrap() error {
	steps := []struct {
		name string
		fn   func() error
	}{
		{"config", b.initConfig},
		{"logger", b.initLogger},
		{"loop", b.initLoop},
		{"store", b.initStore},
		{"manager", b.initManager},
		{"document", b.initDocument},
		{"reloader", b.initReloader},
	}
	for _, step := range steps {
		if err := step.fn(); err != nil {
			b.cleanup()
			return &InitError{Component: step.name, Err: err}
		}
		b.initOrder = append(b.initOrder, step.name)
	}
	b.app.logger.Info("application started",
		zap.String("document", b.app.manager.ID()),
		zap.Strings("components", b.initOrder))
	return nil
}

func (b *bootstrapper) cleanup() {
	_ = b.app.Shutdown()
}

func (b *bootstrapper) initConfig() error {
	b.loadOpts = config.LoadOptions{Path: b.opts.ConfigPath, EnvFiles: b.opts.EnvFiles}
	cfg, err := config.Load(b.loadOpts)
	if err != nil {
		return err
	}
	if b.opts.LogLevel != "" {
		cfg.Log.Level = b.opts.LogLevel
	}
	if b.opts.DocumentSource != "" {
		cfg.Document.Source = b.opts.DocumentSource
	}
	if b.opts.DocumentID != "" {
		cfg.Document.ID = b.opts.DocumentID
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	b.app.cfg = cfg
	return nil
}

func (b *bootstrapper) initLogger() error {
	if b.opts.Logger != nil {
		b.app.logger = b.opts.Logger
		return nil
	}
	l, done, err := logging.New(b.app.cfg.Log)
	if err != nil {
		return err
	}
	b.app.logger, b.app.closeLog = l, done
	return nil
}

func (b *bootstrapper) initLoop() error {
	if b.opts.Scheduler != nil {
		b.scheduler = b.opts.Scheduler
		return nil
	}
	l := loop.New(0)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = l.Run(ctx)
	}()
	b.app.loop, b.app.cancel, b.app.loopDone = l, cancel, done
	b.scheduler = l
	return nil
}

func (b *bootstrapper) initStore() error {
	path := b.app.cfg.Store.Path
	if path == "" {
		if b.app.cfg.Enabled(config.EnablePersist) {
			return ErrStoreRequired
		}
		return nil
	}
	s, err := store.Open(path)
	if err != nil {
		return err
	}
	b.app.store = s
	return nil
}

func (b *bootstrapper) initManager() error {
	var saver persist.Saver
	if b.app.store != nil {
		saver = b.app.store
	}
	combined, err := Compose(b.app.cfg, saver)
	if err != nil {
		return err
	}
	m, err := core.NewManager(combined, core.ManagerOptions{
		Core: b.app.cfg.OptionsFor(core.Name),
		Settings: manager.Settings{
			Logger:    b.app.logger,
			Scheduler: b.scheduler,
			Globals:   b.app.cfg.Globals(),
			ID:        b.app.cfg.Document.ID,
		},
	})
	if err != nil {
		return err
	}
	b.app.manager = m
	return nil
}

func (b *bootstrapper) initDocument() error {
	content, err := InitialContent(b.app.cfg.Document, b.app.store, b.app.logger)
	if err != nil {
		return err
	}
	return b.app.manager.Create(content)
}

func (b *bootstrapper) initReloader() error {
	if !b.opts.Watch || b.loadOpts.Path == "" {
		return nil
	}
	r, err := config.NewReloader(b.app.manager, b.app.cfg, b.loadOpts)
	if err != nil {
		return err
	}
	b.app.reloader = r
	return nil
}
