package pm

import "fmt"

type pathEntry struct {
	node   *Node
	index  int
	offset int
}

// ResolvedPos is a document position with context about the nodes
// around it.
type ResolvedPos struct {
	Pos          int
	Depth        int
	ParentOffset int

	path []pathEntry
}

// Resolve resolves pos inside n's content.
func (n *Node) Resolve(pos int) (*ResolvedPos, error) {
	if pos < 0 || pos > n.ContentSize() {
		return nil, fmt.Errorf("%w: %d not in [0, %d]", ErrPositionOutOfRange, pos, n.ContentSize())
	}

	var path []pathEntry
	start := 0
	parentOffset := pos
	node := n
	for {
		index, offset := node.findIndex(parentOffset)
		rem := parentOffset - offset
		path = append(path, pathEntry{node: node, index: index, offset: start + offset})
		if rem == 0 {
			break
		}
		child := node.Content[index]
		if child.IsText() {
			break
		}
		parentOffset = rem - 1
		start += offset + 1
		node = child
	}

	return &ResolvedPos{
		Pos:          pos,
		Depth:        len(path) - 1,
		ParentOffset: parentOffset,
		path:         path,
	}, nil
}

// findIndex returns the index of the child containing pos and the offset
// at which that child starts. A position on a boundary resolves to the
// child after it.
func (n *Node) findIndex(pos int) (int, int) {
	if pos == 0 {
		return 0, 0
	}
	if pos >= n.ContentSize() {
		return len(n.Content), n.ContentSize()
	}
	cur := 0
	for i, c := range n.Content {
		end := cur + c.NodeSize()
		if end >= pos {
			if end == pos {
				return i + 1, end
			}
			return i, cur
		}
		cur = end
	}
	return len(n.Content), cur
}

// Parent returns the innermost node containing the position.
func (r *ResolvedPos) Parent() *Node { return r.path[r.Depth].node }

// Doc returns the root node the position was resolved in.
func (r *ResolvedPos) Doc() *Node { return r.path[0].node }

// Node returns the ancestor at depth.
func (r *ResolvedPos) Node(depth int) *Node { return r.path[r.resolveDepth(depth)].node }

// Index returns the index into the ancestor at depth.
func (r *ResolvedPos) Index(depth int) int { return r.path[r.resolveDepth(depth)].index }

// Start returns the position at the start of the ancestor at depth.
func (r *ResolvedPos) Start(depth int) int {
	depth = r.resolveDepth(depth)
	if depth == 0 {
		return 0
	}
	return r.path[depth-1].offset + 1
}

// End returns the position at the end of the ancestor at depth.
func (r *ResolvedPos) End(depth int) int {
	depth = r.resolveDepth(depth)
	return r.Start(depth) + r.Node(depth).ContentSize()
}

// Before returns the position directly before the ancestor at depth.
// depth must be at least one.
func (r *ResolvedPos) Before(depth int) int {
	depth = r.resolveDepth(depth)
	if depth == 0 {
		return 0
	}
	return r.path[depth-1].offset
}

// After returns the position directly after the ancestor at depth.
func (r *ResolvedPos) After(depth int) int {
	depth = r.resolveDepth(depth)
	if depth == 0 {
		return r.Doc().ContentSize()
	}
	return r.path[depth-1].offset + r.path[depth].node.NodeSize()
}

func (r *ResolvedPos) resolveDepth(depth int) int {
	if depth < 0 {
		return r.Depth + depth
	}
	if depth > r.Depth {
		return r.Depth
	}
	return depth
}

// textOffset is the distance from the start of the child at Index to Pos.
func (r *ResolvedPos) textOffset() int {
	return r.Pos - r.path[r.Depth].offset
}

// NodeAfter returns the node directly after the position, or nil. When the
// position is inside a text node only the part after it is returned.
func (r *ResolvedPos) NodeAfter() *Node {
	parent := r.Parent()
	index := r.path[r.Depth].index
	if index == len(parent.Content) {
		return nil
	}
	child := parent.Content[index]
	if off := r.textOffset(); off > 0 {
		return child.cut(off, child.NodeSize())
	}
	return child
}

// NodeBefore returns the node directly before the position, or nil. When
// the position is inside a text node only the part before it is returned.
func (r *ResolvedPos) NodeBefore() *Node {
	parent := r.Parent()
	index := r.path[r.Depth].index
	if off := r.textOffset(); off > 0 {
		return parent.Content[index].cut(0, off)
	}
	if index == 0 {
		return nil
	}
	return parent.Content[index-1]
}

// Marks returns the marks active at the position.
func (r *ResolvedPos) Marks() []Mark {
	if before := r.NodeBefore(); before != nil && before.IsInline() {
		return before.Marks
	}
	if after := r.NodeAfter(); after != nil && after.IsInline() {
		return after.Marks
	}
	return nil
}

// NodeRange is a node with the positions bounding it.
type NodeRange struct {
	Node *Node
	Pos  int
	End  int
}

// RangeBefore locates the node directly before the position.
func (r *ResolvedPos) RangeBefore() (NodeRange, bool) {
	node := r.NodeBefore()
	if node == nil {
		return NodeRange{}, false
	}
	return NodeRange{Node: node, Pos: r.Pos - node.NodeSize(), End: r.Pos}, true
}

// RangeAfter locates the node directly after the position.
func (r *ResolvedPos) RangeAfter() (NodeRange, bool) {
	node := r.NodeAfter()
	if node == nil {
		return NodeRange{}, false
	}
	return NodeRange{Node: node, Pos: r.Pos, End: r.Pos + node.NodeSize()}, true
}
