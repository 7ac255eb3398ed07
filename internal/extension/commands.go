package extension

import "github.com/dshills/loom/internal/pm"

// MarkActive reports whether every text node in [from, to) carries the
// mark. An empty range checks the marks at from.
func MarkActive(state *pm.State, markType string, from, to int) bool {
	if from == to {
		r, err := state.Doc.Resolve(from)
		if err != nil {
			return false
		}
		return pm.HasMark(r.Marks(), markType)
	}
	found, all := false, true
	state.Doc.NodesBetween(from, to, func(node *pm.Node, _ int) bool {
		if node.IsText() {
			found = true
			if !pm.HasMark(node.Marks, markType) {
				all = false
			}
		}
		return all
	})
	return found && all
}

// ToggleMark returns a command that removes the mark from the selection
// when the whole selection carries it and adds it otherwise. It does not
// apply to an empty selection.
func ToggleMark(markType string, attrs func() map[string]any) Command {
	return func(props CommandProps) bool {
		state := props.State
		if !state.Schema.HasMark(markType) {
			return false
		}
		sel := state.Selection
		if sel.Empty() {
			return false
		}
		if props.Dispatch == nil {
			return true
		}

		tr := state.Tr()
		var err error
		if MarkActive(state, markType, sel.From(), sel.To()) {
			err = tr.RemoveMark(sel.From(), sel.To(), markType)
		} else {
			mark := pm.Mark{Type: markType}
			if attrs != nil {
				mark.Attrs = attrs()
			}
			err = tr.AddMark(sel.From(), sel.To(), mark)
		}
		if err != nil {
			return false
		}
		props.Dispatch(tr)
		return true
	}
}
