// Package pm is the document-model boundary the editor core consumes.
//
// It holds the pieces the framework needs from a ProseMirror-style toolkit:
// a schema (validated by github.com/cozy/prosemirror-go/model), an immutable
// node tree with position resolution, transactions built from steps, editor
// state with plugin fields, decorations, and the View and Element
// interfaces a rendering adapter implements. HeadlessView is a layout-free
// View used by tools and tests.
//
// Positions follow ProseMirror conventions: entering or leaving a non-leaf
// node counts as one position, a leaf node has size one, and text counts
// one position per rune.
package pm
