// Package bold provides the bold mark.
package bold

import (
	"github.com/cozy/prosemirror-go/model"

	"github.com/dshills/loom/internal/extension"
	"github.com/dshills/loom/internal/option"
)

// Name is the extension name.
const Name = "bold"

// Spec is the option spec. A nil weight renders the default bold weight.
var Spec = option.Spec{
	Defaults: option.Values{"weight": nil},
}

// Extension contributes the bold mark.
type Extension struct {
	*extension.Base
}

// New creates the extension.
func New(opts option.Values) (*Extension, error) {
	base, err := extension.NewBase(extension.Config{
		Name:     Name,
		Priority: extension.PriorityDefault,
		Spec:     Spec,
	}, opts)
	if err != nil {
		return nil, err
	}
	return &Extension{Base: base}, nil
}

// NodeSpecs implements extension.SchemaContributor.
func (e *Extension) NodeSpecs() []*model.NodeSpec { return nil }

// MarkSpecs implements extension.SchemaContributor.
func (e *Extension) MarkSpecs() []*model.MarkSpec {
	return []*model.MarkSpec{{
		Key:   "bold",
		Attrs: map[string]*model.AttributeSpec{"weight": {Default: nil}},
	}}
}

// Commands implements extension.CommandContributor.
func (e *Extension) Commands() map[string]extension.Command {
	return map[string]extension.Command{
		"toggleBold": extension.ToggleMark("bold", e.attrs),
	}
}

// Keymap implements extension.KeymapContributor.
func (e *Extension) Keymap() map[string]string {
	return map[string]string{"Mod-b": "toggleBold", "Mod-B": "toggleBold"}
}

func (e *Extension) attrs() map[string]any {
	if w := e.Option("weight"); w != nil {
		return map[string]any{"weight": w}
	}
	return nil
}
