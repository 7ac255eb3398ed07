// Package core provides the preset every editor starts from: history,
// the document nodes, paragraphs, positioners, and the base keymap.
package core

import (
	"github.com/dshills/loom/internal/extension"
	"github.com/dshills/loom/internal/extensions/doc"
	"github.com/dshills/loom/internal/extensions/history"
	"github.com/dshills/loom/internal/extensions/keymap"
	"github.com/dshills/loom/internal/extensions/paragraph"
	"github.com/dshills/loom/internal/extensions/positioner"
	"github.com/dshills/loom/internal/extensions/text"
	"github.com/dshills/loom/internal/handler"
	"github.com/dshills/loom/internal/manager"
	"github.com/dshills/loom/internal/option"
	"github.com/dshills/loom/internal/preset"
)

// Name is the preset name.
const Name = "core"

// Option subsets forwarded to members when they change.
var (
	paragraphKeys = []string{"indentAttribute", "indentLevels"}
	keymapKeys    = []string{"defaultBindingMethod", "selectParentNodeOnEscape", "excludeBaseKeymap", "undoInputRuleOnBackspace"}
	historyKeys   = []string{"depth", "newGroupDelay"}
)

// Spec is the option spec, the union of the member defaults.
var Spec = option.Spec{
	Defaults:          defaults(doc.Spec, keymap.Spec, paragraph.Spec, history.Spec),
	CustomHandlerKeys: []string{keymap.HandlerKey, positioner.HandlerKey},
	StaticKeys:        doc.Spec.StaticKeys,
}

func defaults(specs ...option.Spec) option.Values {
	out := option.Values{}
	for _, s := range specs {
		for k, v := range s.Defaults {
			out[k] = v
		}
	}
	return out
}

// Preset is the core preset.
type Preset struct {
	*preset.Base

	history    *history.Extension
	doc        *doc.Extension
	paragraph  *paragraph.Extension
	positioner *positioner.Extension
	keymap     *keymap.Extension
}

// New creates the preset.
func New(opts option.Values) (*Preset, error) {
	p := &Preset{}
	base, err := preset.NewBase(preset.Config{
		Name:               Name,
		Spec:               Spec,
		CreateExtensions:   p.createExtensions,
		OnSetOptions:       p.onSetOptions,
		OnAddCustomHandler: p.onAddCustomHandler,
	}, opts)
	if err != nil {
		return nil, err
	}
	p.Base = base
	return p, nil
}

func (p *Preset) createExtensions(o option.Values) ([]extension.Extension, error) {
	var err error
	if p.history, err = history.New(o.Pick(historyKeys...)); err != nil {
		return nil, err
	}
	if p.doc, err = doc.New(o.Pick("content")); err != nil {
		return nil, err
	}
	txt, err := text.New(nil)
	if err != nil {
		return nil, err
	}
	if p.paragraph, err = paragraph.New(o.Pick(paragraphKeys...)); err != nil {
		return nil, err
	}
	if p.positioner, err = positioner.New(nil); err != nil {
		return nil, err
	}
	km := o.Pick(keymapKeys...)
	km["priority"] = int(extension.PriorityLow)
	if p.keymap, err = keymap.New(km); err != nil {
		return nil, err
	}
	return []extension.Extension{p.history, p.doc, txt, p.paragraph, p.positioner, p.keymap}, nil
}

func (p *Preset) onSetOptions(change option.Change) error {
	if err := preset.Forward(change, p.paragraph, paragraphKeys...); err != nil {
		return err
	}
	if err := preset.Forward(change, p.keymap, keymapKeys...); err != nil {
		return err
	}
	return preset.Forward(change, p.history, historyKeys...)
}

func (p *Preset) onAddCustomHandler(key string, value any) (*handler.Disposer, bool, error) {
	return preset.Route(map[string]extension.Extension{
		keymap.HandlerKey:     p.keymap,
		positioner.HandlerKey: p.positioner,
	}, key, value)
}

// ManagerOptions configures NewManager.
type ManagerOptions struct {
	// Core holds the core preset options.
	Core option.Values

	manager.Settings
}

// NewManager creates a manager from combined with the core preset added
// last.
func NewManager(combined []manager.Combined, opts ManagerOptions) (*manager.Manager, error) {
	p, err := New(opts.Core)
	if err != nil {
		return nil, err
	}
	all := append(append([]manager.Combined(nil), combined...), p)
	return manager.New(all, opts.Settings)
}
