// Package paragraph provides the paragraph node with indentation.
package paragraph

import (
	"github.com/cozy/prosemirror-go/model"

	"github.com/dshills/loom/internal/extension"
	"github.com/dshills/loom/internal/option"
	"github.com/dshills/loom/internal/pm"
)

// Name is the extension name.
const Name = "paragraph"

// Spec is the option spec.
var Spec = option.Spec{
	Defaults: option.Values{
		"indentAttribute": "data-indent",
		"indentLevels":    []any{0, 7},
	},
}

// Extension contributes paragraphs and the indent commands.
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
func (e *Extension) NodeSpecs() []*model.NodeSpec {
	return []*model.NodeSpec{{
		Key:     "paragraph",
		Content: "inline*",
		Group:   "block",
		Attrs:   map[string]*model.AttributeSpec{"indent": {Default: 0}},
	}}
}

// MarkSpecs implements extension.SchemaContributor.
func (e *Extension) MarkSpecs() []*model.MarkSpec { return nil }

// Levels returns the minimum and maximum indent.
func (e *Extension) Levels() (int, int) {
	levels, _ := e.Option("indentLevels").([]any)
	if len(levels) != 2 {
		return 0, 7
	}
	lo, _ := toInt(levels[0])
	hi, _ := toInt(levels[1])
	return lo, hi
}

// DOMAttrs returns the rendering attributes of a paragraph.
func (e *Extension) DOMAttrs(node *pm.Node) map[string]any {
	indent, _ := toInt(node.Attrs["indent"])
	if indent == 0 {
		return nil
	}
	return map[string]any{e.Options().String("indentAttribute"): indent}
}

// Commands implements extension.CommandContributor.
func (e *Extension) Commands() map[string]extension.Command {
	return map[string]extension.Command{
		"indentParagraph": e.indent(1),
		"dedentParagraph": e.indent(-1),
	}
}

// Keymap implements extension.KeymapContributor.
func (e *Extension) Keymap() map[string]string {
	return map[string]string{
		"Mod-]": "indentParagraph",
		"Mod-[": "dedentParagraph",
	}
}

func (e *Extension) indent(delta int) extension.Command {
	return func(props extension.CommandProps) bool {
		state := props.State
		r, err := state.Doc.Resolve(state.Selection.Head)
		if err != nil || r.Depth == 0 || r.Parent().Type.Name != "paragraph" {
			return false
		}
		lo, hi := e.Levels()
		current, _ := toInt(r.Parent().Attrs["indent"])
		next := min(max(current+delta, lo), hi)
		if next == current {
			return false
		}
		if props.Dispatch == nil {
			return true
		}
		tr := state.Tr()
		if err := tr.SetNodeAttr(r.Before(r.Depth), "indent", next); err != nil {
			return false
		}
		props.Dispatch(tr)
		return true
	}
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}
