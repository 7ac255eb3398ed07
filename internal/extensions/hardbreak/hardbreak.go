// Package hardbreak provides the inline line break node.
package hardbreak

import (
	"github.com/cozy/prosemirror-go/model"

	"github.com/dshills/loom/internal/extension"
	"github.com/dshills/loom/internal/option"
)

// Name is the extension name.
const Name = "hardBreak"

// Extension contributes hard_break and Shift-Enter.
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
func (e *Extension) NodeSpecs() []*model.NodeSpec {
	return []*model.NodeSpec{{Key: "hard_break", Group: "inline"}}
}

// MarkSpecs implements extension.SchemaContributor.
func (e *Extension) MarkSpecs() []*model.MarkSpec { return nil }

// Commands implements extension.CommandContributor.
func (e *Extension) Commands() map[string]extension.Command {
	return map[string]extension.Command{"insertHardBreak": insertHardBreak}
}

// Keymap implements extension.KeymapContributor.
func (e *Extension) Keymap() map[string]string {
	return map[string]string{
		"Shift-Enter": "insertHardBreak",
		"Mod-Enter":   "insertHardBreak",
	}
}

func insertHardBreak(props extension.CommandProps) bool {
	state := props.State
	r, err := state.Doc.Resolve(state.Selection.Head)
	if err != nil || !r.Parent().Type.InlineContent {
		return false
	}
	br, err := state.Schema.Node("hard_break", nil)
	if err != nil {
		return false
	}
	if props.Dispatch == nil {
		return true
	}
	tr := state.Tr()
	sel := state.Selection
	if err := tr.Delete(sel.From(), sel.To()); err != nil {
		return false
	}
	if err := tr.InsertNode(sel.From(), br); err != nil {
		return false
	}
	props.Dispatch(tr)
	return true
}
