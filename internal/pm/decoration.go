package pm

import "sort"

// DecorationKind distinguishes widget and node decorations.
type DecorationKind int

const (
	// WidgetDecoration places an element at a single position.
	WidgetDecoration DecorationKind = iota
	// NodeDecoration adds attributes to the node spanning From..To.
	NodeDecoration
)

func (k DecorationKind) String() string {
	switch k {
	case WidgetDecoration:
		return "widget"
	case NodeDecoration:
		return "node"
	default:
		return "unknown"
	}
}

// Decoration is a view-only annotation of the document.
type Decoration struct {
	Kind    DecorationKind
	From    int
	To      int
	Element Element
	Key     string
	Attrs   map[string]string
}

// Widget creates a widget decoration at pos.
func Widget(pos int, element Element, key string) Decoration {
	return Decoration{Kind: WidgetDecoration, From: pos, To: pos, Element: element, Key: key}
}

// NodeDeco creates a node decoration for the node spanning from..to.
func NodeDeco(from, to int, attrs map[string]string) Decoration {
	return Decoration{Kind: NodeDecoration, From: from, To: to, Attrs: attrs}
}

// DecorationSet is an immutable, position-ordered set of decorations.
type DecorationSet struct {
	decos []Decoration
}

// EmptyDecorations is the shared empty set.
var EmptyDecorations = &DecorationSet{}

// CreateDecorations builds a set. An empty input returns EmptyDecorations.
func CreateDecorations(decos ...Decoration) *DecorationSet {
	if len(decos) == 0 {
		return EmptyDecorations
	}
	sorted := append([]Decoration(nil), decos...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].From < sorted[j].From })
	return &DecorationSet{decos: sorted}
}

// MergeDecorations combines sets.
func MergeDecorations(sets ...*DecorationSet) *DecorationSet {
	var all []Decoration
	for _, s := range sets {
		if s != nil {
			all = append(all, s.decos...)
		}
	}
	return CreateDecorations(all...)
}

// Len returns the number of decorations.
func (s *DecorationSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.decos)
}

// All returns the decorations in position order.
func (s *DecorationSet) All() []Decoration {
	if s == nil {
		return nil
	}
	return append([]Decoration(nil), s.decos...)
}

// Find returns decorations overlapping [from, to].
func (s *DecorationSet) Find(from, to int) []Decoration {
	var out []Decoration
	for _, d := range s.All() {
		if d.To >= from && d.From <= to {
			out = append(out, d)
		}
	}
	return out
}
