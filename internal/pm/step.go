package pm

import "fmt"

// Step is one atomic document change.
type Step interface {
	// Apply returns the document with the step applied.
	Apply(doc *Node) (*Node, error)

	// Map maps a position in the document before the step to the
	// document after it.
	Map(pos int) int
}

// SetDocStep replaces the whole document.
type SetDocStep struct {
	Doc *Node

	size int
}

// Apply implements Step.
func (s *SetDocStep) Apply(doc *Node) (*Node, error) {
	s.size = s.Doc.ContentSize()
	return s.Doc, nil
}

// Map implements Step. Positions are clamped into the new document.
func (s *SetDocStep) Map(pos int) int {
	return min(max(pos, 0), s.size)
}

// InsertStep inserts inline nodes at Pos. Pos must lie in a textblock.
type InsertStep struct {
	Pos   int
	Nodes []*Node
}

// Apply implements Step.
func (s *InsertStep) Apply(doc *Node) (*Node, error) {
	r, err := doc.Resolve(s.Pos)
	if err != nil {
		return nil, err
	}
	parent := r.Parent()
	for _, n := range s.Nodes {
		if n.IsInline() != parent.Type.InlineContent {
			return nil, fmt.Errorf("%w: cannot insert %q into %q", ErrInvalidContent, n.Type.Name, parent.Type.Name)
		}
	}
	return replaceParent(r, insertChildren(parent, r.ParentOffset, s.Nodes)), nil
}

// Map implements Step.
func (s *InsertStep) Map(pos int) int {
	if pos < s.Pos {
		return pos
	}
	size := 0
	for _, n := range s.Nodes {
		size += n.NodeSize()
	}
	return pos + size
}

// DeleteStep removes the inline content between From and To. Both ends
// must lie in the same textblock.
type DeleteStep struct {
	From, To int
}

// Apply implements Step.
func (s *DeleteStep) Apply(doc *Node) (*Node, error) {
	if s.From > s.To {
		return nil, fmt.Errorf("%w: delete from %d past %d", ErrPositionOutOfRange, s.From, s.To)
	}
	from, err := doc.Resolve(s.From)
	if err != nil {
		return nil, err
	}
	to, err := doc.Resolve(s.To)
	if err != nil {
		return nil, err
	}
	if from.Depth != to.Depth || from.Parent() != to.Parent() {
		return nil, fmt.Errorf("%w: delete range crosses node boundaries", ErrInvalidContent)
	}

	parent := from.Parent()
	lo, hi := from.ParentOffset, to.ParentOffset
	var out []*Node
	pos := 0
	for _, c := range parent.Content {
		size := c.NodeSize()
		end := pos + size
		switch {
		case end <= lo || pos >= hi:
			out = append(out, c)
		case c.IsText():
			if lo > pos {
				out = append(out, c.cut(0, lo-pos))
			}
			if hi < end {
				out = append(out, c.cut(hi-pos, size))
			}
		}
		pos = end
	}
	return replaceParent(from, parent.withContent(normalizeInline(out))), nil
}

// Map implements Step.
func (s *DeleteStep) Map(pos int) int {
	switch {
	case pos <= s.From:
		return pos
	case pos >= s.To:
		return pos - (s.To - s.From)
	default:
		return s.From
	}
}

// MarkStep adds or removes a mark on the inline content in [From, To).
type MarkStep struct {
	From, To int
	Mark     Mark
	Remove   bool
}

// Apply implements Step.
func (s *MarkStep) Apply(doc *Node) (*Node, error) {
	if s.From < 0 || s.To > doc.ContentSize() || s.From > s.To {
		return nil, fmt.Errorf("%w: mark range [%d, %d)", ErrPositionOutOfRange, s.From, s.To)
	}
	return s.mark(doc, 0), nil
}

func (s *MarkStep) mark(node *Node, start int) *Node {
	if len(node.Content) == 0 {
		return node
	}
	changed := false
	out := make([]*Node, 0, len(node.Content))
	pos := start
	for _, c := range node.Content {
		size := c.NodeSize()
		end := pos + size
		switch {
		case end <= s.From || pos >= s.To:
			out = append(out, c)
		case c.IsInline():
			lo := max(s.From, pos) - pos
			hi := min(s.To, end) - pos
			if c.IsText() {
				if lo > 0 {
					out = append(out, c.cut(0, lo))
				}
				out = append(out, c.cut(lo, hi).withMarks(s.apply(c.Marks)))
				if hi < size {
					out = append(out, c.cut(hi, size))
				}
			} else {
				out = append(out, c.withMarks(s.apply(c.Marks)))
			}
			changed = true
		default:
			inner := s.mark(c, pos+1)
			if inner != c {
				changed = true
			}
			out = append(out, inner)
		}
		pos = end
	}
	if !changed {
		return node
	}
	if node.Type.InlineContent {
		out = normalizeInline(out)
	}
	return node.withContent(out)
}

func (s *MarkStep) apply(marks []Mark) []Mark {
	out := make([]Mark, 0, len(marks)+1)
	for _, m := range marks {
		if m.Type != s.Mark.Type {
			out = append(out, m)
		}
	}
	if !s.Remove {
		out = append(out, s.Mark)
	}
	return out
}

// Map implements Step.
func (s *MarkStep) Map(pos int) int { return pos }

// AttrStep sets one attribute of the node starting at Pos.
type AttrStep struct {
	Pos   int
	Attr  string
	Value any
}

// Apply implements Step.
func (s *AttrStep) Apply(doc *Node) (*Node, error) {
	r, err := doc.Resolve(s.Pos)
	if err != nil {
		return nil, err
	}
	target := r.NodeAfter()
	if target == nil || target.IsText() {
		return nil, fmt.Errorf("%w: no node at %d", ErrInvalidContent, s.Pos)
	}
	attrs := make(map[string]any, len(target.Attrs)+1)
	for k, v := range target.Attrs {
		attrs[k] = v
	}
	attrs[s.Attr] = s.Value
	updated := *target
	updated.Attrs = attrs

	parent := r.Parent()
	content := append([]*Node(nil), parent.Content...)
	content[r.Index(r.Depth)] = &updated
	return replaceParent(r, parent.withContent(content)), nil
}

// Map implements Step.
func (s *AttrStep) Map(pos int) int { return pos }

// insertChildren inserts nodes into parent at offset, splitting a text
// node when the offset falls inside one.
func insertChildren(parent *Node, offset int, nodes []*Node) *Node {
	out := make([]*Node, 0, len(parent.Content)+len(nodes)+1)
	inserted := false
	pos := 0
	for _, c := range parent.Content {
		size := c.NodeSize()
		switch {
		case !inserted && offset <= pos:
			out = append(out, nodes...)
			out = append(out, c)
			inserted = true
		case !inserted && offset < pos+size && c.IsText():
			k := offset - pos
			out = append(out, c.cut(0, k))
			out = append(out, nodes...)
			out = append(out, c.cut(k, size))
			inserted = true
		default:
			out = append(out, c)
		}
		pos += size
	}
	if !inserted {
		out = append(out, nodes...)
	}
	if parent.Type.InlineContent {
		out = normalizeInline(out)
	}
	return parent.withContent(out)
}

// replaceParent rebuilds the ancestors of r's parent around replacement
// and returns the new root.
func replaceParent(r *ResolvedPos, replacement *Node) *Node {
	node := replacement
	for d := r.Depth; d > 0; d-- {
		holder := r.path[d-1]
		content := append([]*Node(nil), holder.node.Content...)
		content[holder.index] = node
		node = holder.node.withContent(content)
	}
	return node
}
