// Package doc provides the top-level document node.
package doc

import (
	"github.com/cozy/prosemirror-go/model"

	"github.com/dshills/loom/internal/extension"
	"github.com/dshills/loom/internal/option"
)

// Name is the extension name.
const Name = "doc"

// Spec is the option spec. The content expression is fixed once the
// schema is built.
var Spec = option.Spec{
	Defaults:   option.Values{"content": "block+"},
	StaticKeys: []string{"content"},
}

// Extension contributes the doc node.
type Extension struct {
	*extension.Base
}

// New creates the extension.
func New(opts option.Values) (*Extension, error) {
	base, err := extension.NewBase(extension.Config{
		Name:     Name,
		Priority: extension.PriorityHighest,
		Spec:     Spec,
	}, opts)
	if err != nil {
		return nil, err
	}
	return &Extension{Base: base}, nil
}

// NodeSpecs implements extension.SchemaContributor.
func (e *Extension) NodeSpecs() []*model.NodeSpec {
	return []*model.NodeSpec{{Key: "doc", Content: e.Options().String("content")}}
}

// MarkSpecs implements extension.SchemaContributor.
func (e *Extension) MarkSpecs() []*model.MarkSpec { return nil }
