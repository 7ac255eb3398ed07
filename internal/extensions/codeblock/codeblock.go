// Package codeblock provides code blocks with optional formatting.
package codeblock

import (
	"slices"

	"github.com/cozy/prosemirror-go/model"
	"go.uber.org/zap"

	"github.com/dshills/loom/internal/codeformat"
	"github.com/dshills/loom/internal/extension"
	"github.com/dshills/loom/internal/option"
	"github.com/dshills/loom/internal/pm"
)

// Name is the extension name.
const Name = "codeBlock"

// NodeName is the node type name.
const NodeName = "code_block"

// Spec is the option spec.
var Spec = option.Spec{
	Defaults: option.Values{
		"defaultLanguage":    "plain",
		"supportedLanguages": []string{"plain", "go", "json", "toml", "yaml"},
	},
}

// Extension contributes code_block and its commands.
type Extension struct {
	*extension.Base

	logger *zap.Logger
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
	return &Extension{Base: base, logger: zap.NewNop()}, nil
}

// OnCreate implements extension.Initializer.
func (e *Extension) OnCreate(store extension.Store) error {
	e.logger = store.Logger().Named(Name)
	return nil
}

// NodeSpecs implements extension.SchemaContributor.
func (e *Extension) NodeSpecs() []*model.NodeSpec {
	noMarks := ""
	return []*model.NodeSpec{{
		Key:     NodeName,
		Content: "text*",
		Marks:   &noMarks,
		Group:   "block",
		Attrs: map[string]*model.AttributeSpec{
			"language": {Default: e.Options().String("defaultLanguage")},
		},
	}}
}

// MarkSpecs implements extension.SchemaContributor.
func (e *Extension) MarkSpecs() []*model.MarkSpec { return nil }

// Commands implements extension.CommandContributor.
func (e *Extension) Commands() map[string]extension.Command {
	return map[string]extension.Command{
		"formatCodeBlock":      e.format,
		"setCodeBlockLanguage": e.setLanguage,
	}
}

// Keymap implements extension.KeymapContributor.
func (e *Extension) Keymap() map[string]string {
	return map[string]string{"Alt-Shift-f": "formatCodeBlock"}
}

// enclosing returns the code block around the selection head.
func enclosing(state *pm.State) (*pm.ResolvedPos, bool) {
	r, err := state.Doc.Resolve(state.Selection.Head)
	if err != nil || r.Depth == 0 || r.Parent().Type.Name != NodeName {
		return nil, false
	}
	return r, true
}

// format replaces the code block content with its formatted form. A
// language without a formatter, or source that does not parse, leaves
// the block unchanged and the command reports false.
func (e *Extension) format(props extension.CommandProps) bool {
	state := props.State
	r, ok := enclosing(state)
	if !ok {
		return false
	}
	block := r.Parent()
	language, _ := block.Attrs["language"].(string)
	start, end := r.Start(r.Depth), r.End(r.Depth)

	res, ok := codeformat.Format(codeformat.Request{
		Language: language,
		Source:   block.TextContent(),
		Cursor:   state.Selection.Head - start,
	})
	if !ok {
		e.logger.Debug("code block not formatted", zap.String("language", language))
		return false
	}
	if res.Formatted == block.TextContent() {
		return false
	}
	if props.Dispatch == nil {
		return true
	}

	tr := state.Tr()
	if err := tr.Delete(start, end); err != nil {
		return false
	}
	if err := tr.InsertText(res.Formatted, start); err != nil {
		return false
	}
	tr.SetSelection(pm.Cursor(start + res.Cursor))
	props.Dispatch(tr)
	return true
}

func (e *Extension) setLanguage(props extension.CommandProps) bool {
	if len(props.Args) != 1 {
		return false
	}
	language, ok := props.Args[0].(string)
	if !ok || !slices.Contains(e.Options().Strings("supportedLanguages"), language) {
		return false
	}
	r, ok := enclosing(props.State)
	if !ok {
		return false
	}
	if props.Dispatch == nil {
		return true
	}
	tr := props.State.Tr()
	if err := tr.SetNodeAttr(r.Before(r.Depth), "language", language); err != nil {
		return false
	}
	props.Dispatch(tr)
	return true
}
