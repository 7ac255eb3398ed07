// Package italic provides the italic mark.
package italic

import (
	"github.com/cozy/prosemirror-go/model"

	"github.com/dshills/loom/internal/extension"
	"github.com/dshills/loom/internal/option"
)

// Name is the extension name.
const Name = "italic"

// Extension contributes the italic mark.
type Extension struct {
	*extension.Base
}

// New creates the extension.
func New(opts option.Values) (*Extension, error) {
	base, err := extension.NewBase(extension.Config{
		Name:     Name,
		Priority: extension.PriorityDefault,
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
	return []*model.MarkSpec{{Key: "italic"}}
}

// Commands implements extension.CommandContributor.
func (e *Extension) Commands() map[string]extension.Command {
	return map[string]extension.Command{"toggleItalic": extension.ToggleMark("italic", nil)}
}

// Keymap implements extension.KeymapContributor.
func (e *Extension) Keymap() map[string]string {
	return map[string]string{"Mod-i": "toggleItalic", "Mod-I": "toggleItalic"}
}
