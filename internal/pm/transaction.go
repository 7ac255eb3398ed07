package pm

import (
	"fmt"
	"time"
)

// Selection is a text selection between Anchor and Head.
type Selection struct {
	Anchor int
	Head   int
}

// Cursor returns an empty selection at pos.
func Cursor(pos int) Selection { return Selection{Anchor: pos, Head: pos} }

// From returns the lower bound.
func (s Selection) From() int { return min(s.Anchor, s.Head) }

// To returns the upper bound.
func (s Selection) To() int { return max(s.Anchor, s.Head) }

// Empty reports whether the selection is a cursor.
func (s Selection) Empty() bool { return s.Anchor == s.Head }

func (s Selection) clamp(size int) Selection {
	return Selection{Anchor: min(max(s.Anchor, 0), size), Head: min(max(s.Head, 0), size)}
}

// Transaction accumulates steps against a state. It is not safe for
// concurrent use.
type Transaction struct {
	Time time.Time

	schema       *Schema
	before       *Node
	doc          *Node
	steps        []Step
	selection    Selection
	selectionSet bool
	meta         map[string]any
}

// Doc returns the document with all steps applied so far.
func (tr *Transaction) Doc() *Node { return tr.doc }

// Before returns the document the transaction started from.
func (tr *Transaction) Before() *Node { return tr.before }

// Steps returns the applied steps.
func (tr *Transaction) Steps() []Step { return append([]Step(nil), tr.steps...) }

// DocChanged reports whether any step was applied.
func (tr *Transaction) DocChanged() bool { return len(tr.steps) > 0 }

// Selection returns the selection the transaction will leave behind.
func (tr *Transaction) Selection() Selection { return tr.selection }

// SelectionSet reports whether SetSelection was called.
func (tr *Transaction) SelectionSet() bool { return tr.selectionSet }

// Step applies a step and maps the selection through it.
func (tr *Transaction) Step(step Step) error {
	doc, err := step.Apply(tr.doc)
	if err != nil {
		return err
	}
	tr.doc = doc
	tr.steps = append(tr.steps, step)
	tr.selection = Selection{Anchor: step.Map(tr.selection.Anchor), Head: step.Map(tr.selection.Head)}.clamp(doc.ContentSize())
	return nil
}

// SetSelection replaces the selection.
func (tr *Transaction) SetSelection(sel Selection) *Transaction {
	tr.selection = sel.clamp(tr.doc.ContentSize())
	tr.selectionSet = true
	return tr
}

// SetMeta stores metadata for plugins to read.
func (tr *Transaction) SetMeta(key string, value any) *Transaction {
	if tr.meta == nil {
		tr.meta = make(map[string]any)
	}
	tr.meta[key] = value
	return tr
}

// Meta returns the metadata stored under key.
func (tr *Transaction) Meta(key string) any { return tr.meta[key] }

// SetDoc replaces the whole document.
func (tr *Transaction) SetDoc(doc *Node) error {
	return tr.Step(&SetDocStep{Doc: doc})
}

// InsertText inserts text at pos carrying the marks active there.
func (tr *Transaction) InsertText(text string, pos int) error {
	if text == "" {
		return nil
	}
	r, err := tr.doc.Resolve(pos)
	if err != nil {
		return err
	}
	return tr.Step(&InsertStep{Pos: pos, Nodes: []*Node{tr.schema.Text(text, r.Marks()...)}})
}

// InsertNode inserts an inline node at pos.
func (tr *Transaction) InsertNode(pos int, node *Node) error {
	return tr.Step(&InsertStep{Pos: pos, Nodes: []*Node{node}})
}

// Delete removes inline content between from and to.
func (tr *Transaction) Delete(from, to int) error {
	if from == to {
		return nil
	}
	return tr.Step(&DeleteStep{From: from, To: to})
}

// AddMark adds a mark to the inline content in [from, to).
func (tr *Transaction) AddMark(from, to int, mark Mark) error {
	if !tr.schema.HasMark(mark.Type) {
		return fmt.Errorf("%w: %q", ErrUnknownMarkType, mark.Type)
	}
	return tr.Step(&MarkStep{From: from, To: to, Mark: mark})
}

// RemoveMark removes marks of the given type from [from, to).
func (tr *Transaction) RemoveMark(from, to int, markType string) error {
	return tr.Step(&MarkStep{From: from, To: to, Mark: Mark{Type: markType}, Remove: true})
}

// SetNodeAttr sets one attribute of the node starting at pos.
func (tr *Transaction) SetNodeAttr(pos int, attr string, value any) error {
	return tr.Step(&AttrStep{Pos: pos, Attr: attr, Value: value})
}
