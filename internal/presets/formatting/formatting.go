// Package formatting bundles the inline formatting extensions.
package formatting

import (
	"github.com/dshills/loom/internal/extension"
	"github.com/dshills/loom/internal/extensions/bold"
	"github.com/dshills/loom/internal/extensions/hardbreak"
	"github.com/dshills/loom/internal/extensions/italic"
	"github.com/dshills/loom/internal/option"
	"github.com/dshills/loom/internal/preset"
)

// Name is the preset name.
const Name = "formatting"

// Spec is the option spec.
var Spec = option.Spec{Defaults: bold.Spec.Defaults}

// Preset adds bold, italic and hard breaks.
type Preset struct {
	*preset.Base
	bold *bold.Extension
}

// New creates the preset.
func New(opts option.Values) (*Preset, error) {
	p := &Preset{}
	base, err := preset.NewBase(preset.Config{
		Name: Name,
		Spec: Spec,
		CreateExtensions: func(o option.Values) ([]extension.Extension, error) {
			var err error
			if p.bold, err = bold.New(o.Pick("weight")); err != nil {
				return nil, err
			}
			it, err := italic.New(nil)
			if err != nil {
				return nil, err
			}
			hb, err := hardbreak.New(nil)
			if err != nil {
				return nil, err
			}
			return []extension.Extension{p.bold, it, hb}, nil
		},
		OnSetOptions: func(change option.Change) error {
			return preset.Forward(change, p.bold, "weight")
		},
	}, opts)
	if err != nil {
		return nil, err
	}
	p.Base = base
	return p, nil
}
