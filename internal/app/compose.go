package app

import (
	"errors"
	"fmt"
	"os"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/dshills/loom/internal/config"
	"github.com/dshills/loom/internal/extensions/codeblock"
	"github.com/dshills/loom/internal/extensions/dropcursor"
	"github.com/dshills/loom/internal/extensions/persist"
	"github.com/dshills/loom/internal/extensions/script"
	"github.com/dshills/loom/internal/manager"
	"github.com/dshills/loom/internal/presets/formatting"
	"github.com/dshills/loom/internal/store"
)

// Compose builds the optional extensions and presets cfg enables. The
// core preset is not included. saver is required when persist is
// enabled.
func Compose(cfg *config.Config, saver persist.Saver) ([]manager.Combined, error) {
	var out []manager.Combined
	add := func(c manager.Combined, err error) error {
		if err != nil {
			return err
		}
		out = append(out, c)
		return nil
	}

	if cfg.Enabled(config.EnableFormatting) {
		if err := add(formatting.New(cfg.OptionsFor(formatting.Name))); err != nil {
			return nil, err
		}
	}
	if cfg.Enabled(config.EnableCodeBlock) {
		if err := add(codeblock.New(cfg.OptionsFor(codeblock.Name))); err != nil {
			return nil, err
		}
	}
	if cfg.Enabled(config.EnableDropCursor) {
		if err := add(dropcursor.New(cfg.OptionsFor(dropcursor.Name))); err != nil {
			return nil, err
		}
	}
	if cfg.Enabled(config.EnablePersist) {
		if saver == nil {
			return nil, ErrStoreRequired
		}
		opts := cfg.OptionsFor(persist.Name)
		if !opts.Has("debounce") {
			opts["debounce"] = cfg.Store.Debounce
		}
		if err := add(persist.New(saver, opts)); err != nil {
			return nil, err
		}
	}

	for _, sc := range cfg.Scripts {
		opts := cfg.OptionsFor(sc.Name)
		opts["file"] = sc.File
		opts["source"] = sc.Source
		if sc.Timeout > 0 {
			opts["timeout"] = sc.Timeout
		}
		if err := add(script.New(sc.Name, opts)); err != nil {
			return nil, fmt.Errorf("script %s: %w", sc.Name, err)
		}
	}
	return out, nil
}

// InitialContent picks the starting document: the source file when set,
// else the stored snapshot for the document id, else nil for an empty
// document.
func InitialContent(doc config.DocumentConfig, s *store.Store, logger *zap.Logger) (any, error) {
	if doc.Source != "" {
		data, err := os.ReadFile(doc.Source)
		if err != nil {
			return nil, err
		}
		content, ok := gjson.ParseBytes(data).Value().(map[string]any)
		if !gjson.ValidBytes(data) || !ok {
			return nil, fmt.Errorf("%w: %s", ErrInvalidDocument, doc.Source)
		}
		return content, nil
	}
	if s == nil || doc.ID == "" {
		return nil, nil
	}
	snap, err := s.Load(doc.ID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil, nil
	case err != nil:
		return nil, err
	}
	logger.Info("restored snapshot",
		zap.String("id", snap.ID),
		zap.Time("savedAt", snap.SavedAt))
	return snap.Doc, nil
}
