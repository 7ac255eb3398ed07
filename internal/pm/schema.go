package pm

import (
	"fmt"
	"strings"

	"github.com/cozy/prosemirror-go/model"
)

// NodeType describes one node type of a Schema.
type NodeType struct {
	Name    string
	Groups  []string
	Content string

	// Inline is true for text and members of the "inline" group.
	Inline bool

	// InlineContent is true when the content expression admits inline nodes.
	InlineContent bool

	Spec *model.NodeSpec
}

// IsText reports whether this is the text node type.
func (t *NodeType) IsText() bool { return t.Name == "text" }

// IsLeaf reports whether nodes of this type hold no content.
func (t *NodeType) IsLeaf() bool { return t.Content == "" }

// IsTextblock reports whether this is a block holding inline content.
func (t *NodeType) IsTextblock() bool { return !t.Inline && t.InlineContent }

// InGroup reports whether the type belongs to group.
func (t *NodeType) InGroup(group string) bool {
	for _, g := range t.Groups {
		if g == group {
			return true
		}
	}
	return false
}

// Schema is the merged document schema of an editor.
type Schema struct {
	// PM is the validated prosemirror-go schema.
	PM *model.Schema

	nodes     map[string]*NodeType
	nodeOrder []string
	marks     map[string]*model.MarkSpec
	markOrder []string
}

// NewSchema validates node and mark specs and builds a Schema. The first
// node spec named "doc" is the top node.
func NewSchema(nodes []*model.NodeSpec, marks []*model.MarkSpec) (*Schema, error) {
	if marks == nil {
		marks = []*model.MarkSpec{}
	}
	pmSchema, err := model.NewSchema(&model.SchemaSpec{Nodes: nodes, Marks: marks})
	if err != nil {
		return nil, fmt.Errorf("building schema: %w", err)
	}

	s := &Schema{
		PM:    pmSchema,
		nodes: make(map[string]*NodeType, len(nodes)),
		marks: make(map[string]*model.MarkSpec, len(marks)),
	}

	for _, spec := range nodes {
		t := &NodeType{
			Name:    spec.Key,
			Groups:  strings.Fields(spec.Group),
			Content: spec.Content,
			Spec:    spec,
		}
		t.Inline = t.Name == "text" || t.InGroup("inline")
		s.nodes[t.Name] = t
		s.nodeOrder = append(s.nodeOrder, t.Name)
	}
	for _, t := range s.nodes {
		t.InlineContent = s.admitsInline(t.Content)
	}
	for _, spec := range marks {
		s.marks[spec.Key] = spec
		s.markOrder = append(s.markOrder, spec.Key)
	}

	return s, nil
}

// NodeType returns the node type called name.
func (s *Schema) NodeType(name string) (*NodeType, bool) {
	t, ok := s.nodes[name]
	return t, ok
}

// HasNode reports whether the schema defines the node type.
func (s *Schema) HasNode(name string) bool {
	_, ok := s.nodes[name]
	return ok
}

// HasMark reports whether the schema defines the mark type.
func (s *Schema) HasMark(name string) bool {
	_, ok := s.marks[name]
	return ok
}

// Nodes returns the node type names in spec order.
func (s *Schema) Nodes() []string {
	return append([]string(nil), s.nodeOrder...)
}

// Marks returns the mark type names in spec order.
func (s *Schema) Marks() []string {
	return append([]string(nil), s.markOrder...)
}

// Node creates a non-text node. attrs missing from the call take the
// spec defaults.
func (s *Schema) Node(name string, attrs map[string]any, content ...*Node) (*Node, error) {
	t, ok := s.nodes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownNodeType, name)
	}
	if t.IsText() {
		return nil, fmt.Errorf("%w: use Text for text nodes", ErrInvalidContent)
	}
	return &Node{Type: t, Attrs: s.defaultAttrs(t, attrs), Content: content}, nil
}

// Text creates a text node.
func (s *Schema) Text(text string, marks ...Mark) *Node {
	return &Node{Type: s.nodes["text"], Text: text, Marks: marks}
}

func (s *Schema) defaultAttrs(t *NodeType, attrs map[string]any) map[string]any {
	if t.Spec == nil || len(t.Spec.Attrs) == 0 {
		return attrs
	}
	out := make(map[string]any, len(t.Spec.Attrs))
	for name, spec := range t.Spec.Attrs {
		if spec != nil {
			out[name] = spec.Default
		}
	}
	for k, v := range attrs {
		out[k] = v
	}
	return out
}

// admitsInline reports whether a content expression names an inline node
// type or a group holding one.
func (s *Schema) admitsInline(expr string) bool {
	for _, token := range contentTokens(expr) {
		if t, ok := s.nodes[token]; ok {
			if t.Inline {
				return true
			}
			continue
		}
		for _, t := range s.nodes {
			if t.Inline && t.InGroup(token) {
				return true
			}
		}
	}
	return false
}

// contentTokens extracts the node and group names of a content expression.
func contentTokens(expr string) []string {
	return strings.FieldsFunc(expr, func(r rune) bool {
		return !(r == '_' || r == '-' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9')
	})
}
