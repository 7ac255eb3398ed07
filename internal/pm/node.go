package pm

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"unicode/utf8"
)

// Mark is a mark applied to inline content.
type Mark struct {
	Type  string         `json:"type"`
	Attrs map[string]any `json:"attrs,omitempty"`
}

// Eq reports whether two marks are the same.
func (m Mark) Eq(other Mark) bool {
	if m.Type != other.Type {
		return false
	}
	if len(m.Attrs) == 0 && len(other.Attrs) == 0 {
		return true
	}
	return reflect.DeepEqual(m.Attrs, other.Attrs)
}

func marksEqual(a, b []Mark) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Eq(b[i]) {
			return false
		}
	}
	return true
}

// HasMark reports whether marks contains a mark of the given type.
func HasMark(marks []Mark, markType string) bool {
	for _, m := range marks {
		if m.Type == markType {
			return true
		}
	}
	return false
}

// Node is an immutable document node. Steps never modify a node in place;
// they rebuild the path from the change to the root.
type Node struct {
	Type    *NodeType
	Attrs   map[string]any
	Content []*Node
	Text    string
	Marks   []Mark
}

// IsText reports whether the node is a text node.
func (n *Node) IsText() bool { return n.Type.IsText() }

// IsLeaf reports whether the node holds no content.
func (n *Node) IsLeaf() bool { return n.Type.IsLeaf() }

// IsInline reports whether the node is inline.
func (n *Node) IsInline() bool { return n.Type.Inline }

// IsTextblock reports whether the node is a block of inline content.
func (n *Node) IsTextblock() bool { return n.Type.IsTextblock() }

// NodeSize is the number of positions the node occupies in its parent.
func (n *Node) NodeSize() int {
	switch {
	case n.IsText():
		return utf8.RuneCountInString(n.Text)
	case n.IsLeaf():
		return 1
	default:
		return n.ContentSize() + 2
	}
}

// ContentSize is the total size of the node's children.
func (n *Node) ContentSize() int {
	size := 0
	for _, c := range n.Content {
		size += c.NodeSize()
	}
	return size
}

// ChildCount returns the number of direct children.
func (n *Node) ChildCount() int { return len(n.Content) }

// Child returns the child at index.
func (n *Node) Child(index int) *Node { return n.Content[index] }

// TextContent concatenates the text of all descendants.
func (n *Node) TextContent() string {
	if n.IsText() {
		return n.Text
	}
	var b strings.Builder
	n.Descendants(func(node *Node, _ int) bool {
		if node.IsText() {
			b.WriteString(node.Text)
		}
		return true
	})
	return b.String()
}

// Descendants calls fn for every descendant with its position relative to
// the start of n's content. Returning false skips the node's children.
func (n *Node) Descendants(fn func(node *Node, pos int) bool) {
	n.descend(0, fn)
}

func (n *Node) descend(start int, fn func(node *Node, pos int) bool) {
	pos := start
	for _, c := range n.Content {
		if fn(c, pos) && len(c.Content) > 0 {
			c.descend(pos+1, fn)
		}
		pos += c.NodeSize()
	}
}

// NodesBetween calls fn for each node overlapping the range [from, to).
func (n *Node) NodesBetween(from, to int, fn func(node *Node, pos int) bool) {
	n.between(from, to, 0, fn)
}

func (n *Node) between(from, to, start int, fn func(node *Node, pos int) bool) {
	pos := 0
	for _, c := range n.Content {
		if pos >= to {
			break
		}
		end := pos + c.NodeSize()
		if end > from && fn(c, start+pos) && len(c.Content) > 0 {
			inner := pos + 1
			c.between(max(0, from-inner), min(c.ContentSize(), to-inner), start+inner, fn)
		}
		pos = end
	}
}

// Eq reports structural equality.
func (n *Node) Eq(other *Node) bool {
	if n == other {
		return true
	}
	if n == nil || other == nil {
		return false
	}
	if n.Type.Name != other.Type.Name || n.Text != other.Text || !marksEqual(n.Marks, other.Marks) {
		return false
	}
	if !(len(n.Attrs) == 0 && len(other.Attrs) == 0) && !reflect.DeepEqual(n.Attrs, other.Attrs) {
		return false
	}
	if len(n.Content) != len(other.Content) {
		return false
	}
	for i := range n.Content {
		if !n.Content[i].Eq(other.Content[i]) {
			return false
		}
	}
	return true
}

func (n *Node) withContent(content []*Node) *Node {
	c := *n
	c.Content = content
	return &c
}

func (n *Node) withMarks(marks []Mark) *Node {
	c := *n
	c.Marks = marks
	return &c
}

// cut returns the runes [from, to) of a text node.
func (n *Node) cut(from, to int) *Node {
	runes := []rune(n.Text)
	if to > len(runes) {
		to = len(runes)
	}
	c := *n
	c.Text = string(runes[from:to])
	return &c
}

// String renders a compact debug form such as doc(paragraph("hi")).
func (n *Node) String() string {
	if n.IsText() {
		s := fmt.Sprintf("%q", n.Text)
		for i := len(n.Marks) - 1; i >= 0; i-- {
			s = n.Marks[i].Type + "(" + s + ")"
		}
		return s
	}
	if len(n.Content) == 0 {
		return n.Type.Name
	}
	parts := make([]string, len(n.Content))
	for i, c := range n.Content {
		parts[i] = c.String()
	}
	return n.Type.Name + "(" + strings.Join(parts, ", ") + ")"
}

// nodeJSON is the ProseMirror JSON form of a node.
type nodeJSON struct {
	Type    string         `json:"type"`
	Attrs   map[string]any `json:"attrs,omitempty"`
	Content []nodeJSON     `json:"content,omitempty"`
	Text    string         `json:"text,omitempty"`
	Marks   []Mark         `json:"marks,omitempty"`
}

// JSON returns the node in ProseMirror JSON form.
func (n *Node) JSON() map[string]any {
	raw, err := json.Marshal(n.toJSON())
	if err != nil {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}

// MarshalJSON implements json.Marshaler.
func (n *Node) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.toJSON())
}

func (n *Node) toJSON() nodeJSON {
	out := nodeJSON{Type: n.Type.Name, Attrs: n.Attrs, Text: n.Text, Marks: n.Marks}
	for _, c := range n.Content {
		out.Content = append(out.Content, c.toJSON())
	}
	return out
}

// NodeFromJSON builds a node from its ProseMirror JSON form. raw may be a
// map decoded from JSON or YAML, or a []byte holding JSON.
func NodeFromJSON(schema *Schema, raw any) (*Node, error) {
	var data []byte
	switch v := raw.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		var err error
		data, err = json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encoding document: %w", err)
		}
	}

	var nj nodeJSON
	if err := json.Unmarshal(data, &nj); err != nil {
		return nil, fmt.Errorf("decoding document: %w", err)
	}
	return schema.fromJSON(nj)
}

func (s *Schema) fromJSON(nj nodeJSON) (*Node, error) {
	t, ok := s.nodes[nj.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownNodeType, nj.Type)
	}
	for _, m := range nj.Marks {
		if !s.HasMark(m.Type) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownMarkType, m.Type)
		}
	}
	if t.IsText() {
		if nj.Text == "" {
			return nil, fmt.Errorf("%w: empty text node", ErrInvalidContent)
		}
		return &Node{Type: t, Text: nj.Text, Marks: nj.Marks}, nil
	}
	if t.IsLeaf() && len(nj.Content) > 0 {
		return nil, fmt.Errorf("%w: leaf node %q has content", ErrInvalidContent, t.Name)
	}

	node := &Node{Type: t, Attrs: s.defaultAttrs(t, nj.Attrs), Marks: nj.Marks}
	for _, cj := range nj.Content {
		child, err := s.fromJSON(cj)
		if err != nil {
			return nil, err
		}
		if child.IsInline() && !t.InlineContent {
			return nil, fmt.Errorf("%w: %q cannot hold inline %q", ErrInvalidContent, t.Name, child.Type.Name)
		}
		node.Content = append(node.Content, child)
	}
	return node, nil
}

// normalizeInline merges adjacent text nodes with equal marks and drops
// empty text nodes.
func normalizeInline(nodes []*Node) []*Node {
	out := make([]*Node, 0, len(nodes))
	for _, n := range nodes {
		if n.IsText() && n.Text == "" {
			continue
		}
		if len(out) > 0 {
			last := out[len(out)-1]
			if n.IsText() && last.IsText() && marksEqual(n.Marks, last.Marks) {
				merged := *last
				merged.Text = last.Text + n.Text
				out[len(out)-1] = &merged
				continue
			}
		}
		out = append(out, n)
	}
	return out
}
