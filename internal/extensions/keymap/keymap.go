// Package keymap routes key presses to commands.
//
// Bindings are looked up in this order: keymaps registered through the
// "keymap" custom handler, newest first; then the keymaps of every
// KeymapContributor in priority order; then the base keymap unless
// excludeBaseKeymap is set. The first binding whose command applies
// consumes the event.
package keymap

import (
	"fmt"
	"slices"
	"sort"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rivo/uniseg"
	"go.uber.org/zap"

	"github.com/dshills/loom/internal/extension"
	"github.com/dshills/loom/internal/handler"
	"github.com/dshills/loom/internal/option"
	"github.com/dshills/loom/internal/pm"
)

// Name is the extension name.
const Name = "keymap"

// HandlerKey is the custom handler key for extra keymaps.
const HandlerKey = "keymap"

// Spec is the option spec.
var Spec = option.Spec{
	Defaults: option.Values{
		"selectParentNodeOnEscape": false,
		"excludeBaseKeymap":        false,
		"undoInputRuleOnBackspace": true,
		"defaultBindingMethod":     nil,
	},
	CustomHandlerKeys: []string{HandlerKey},
}

// Bindings maps chords to commands.
type Bindings map[string]extension.Command

// Extension is the base keymap.
type Extension struct {
	*extension.Base

	store extension.Store
}

// New creates the extension.
func New(opts option.Values) (*Extension, error) {
	e := &Extension{}
	base, err := extension.NewBase(extension.Config{
		Name:               Name,
		Priority:           extension.PriorityLow,
		Spec:               Spec,
		OnAddCustomHandler: e.addKeymap,
	}, opts)
	if err != nil {
		return nil, err
	}
	if fn := base.Option("defaultBindingMethod"); fn != nil {
		if _, ok := fn.(func(*pm.Event) bool); !ok {
			return nil, fmt.Errorf("%w: defaultBindingMethod must be func(*pm.Event) bool, got %T", option.ErrInvalidExtensionOptions, fn)
		}
	}
	e.Base = base
	return e, nil
}

func (e *Extension) addKeymap(key string, value any) (*handler.Disposer, error) {
	var b Bindings
	switch v := value.(type) {
	case Bindings:
		b = v
	case map[string]extension.Command:
		b = v
	default:
		return nil, fmt.Errorf("%w: %s expects keymap.Bindings, got %T", handler.ErrInvalidExtensionHandler, key, value)
	}
	return e.Slots().Set(key, uuid.NewString(), b, nil)
}

// OnCreate implements extension.Initializer.
func (e *Extension) OnCreate(store extension.Store) error {
	e.store = store
	return nil
}

// Commands implements extension.CommandContributor.
func (e *Extension) Commands() map[string]extension.Command {
	return map[string]extension.Command{
		"deleteBackward":   deleteBy(-1),
		"deleteForward":    deleteBy(1),
		"selectAll":        selectAll,
		"selectParentNode": selectParentNode,
	}
}

// BaseKeymap returns the base bindings for the current options.
func (e *Extension) BaseKeymap() map[string]string {
	if e.Options().Bool("excludeBaseKeymap") {
		return nil
	}
	km := map[string]string{
		"Backspace":     "deleteBackward",
		"Mod-Backspace": "deleteBackward",
		"Delete":        "deleteForward",
		"Mod-Delete":    "deleteForward",
		"Mod-a":         "selectAll",
	}
	if e.Options().Bool("selectParentNodeOnEscape") {
		km["Escape"] = "selectParentNode"
	}
	return km
}

// CreatePlugin implements extension.PluginContributor.
func (e *Extension) CreatePlugin() *pm.Plugin {
	return &pm.Plugin{
		Key: Name,
		DOMEvents: map[string]pm.DOMEventHandler{
			"keydown": e.handleKeydown,
		},
	}
}

func (e *Extension) handleKeydown(view pm.View, event *pm.Event) bool {
	if e.store == nil {
		return false
	}
	props := extension.CommandProps{
		State: view.State(),
		View:  view,
		Dispatch: func(tr *pm.Transaction) {
			if err := e.store.Dispatch(tr); err != nil {
				e.store.Logger().Warn("keymap dispatch failed", zap.Error(err))
			}
		},
	}

	// Custom keymaps, newest first
	custom := e.Slots().Values(HandlerKey)
	for i := len(custom) - 1; i >= 0; i-- {
		if cmd := lookup(custom[i].(Bindings), event); cmd != nil && cmd(props) {
			event.PreventDefault()
			return true
		}
	}

	// Backspace first undoes an input rule when that command exists.
	if event.Key == "Backspace" && e.Options().Bool("undoInputRuleOnBackspace") {
		if ok, err := e.store.RunCommand("undoInputRule"); err == nil && ok {
			event.PreventDefault()
			return true
		}
	}

	for _, name := range e.commandsFor(event) {
		ok, err := e.store.RunCommand(name)
		if err != nil {
			e.store.Logger().Debug("keymap command failed", zap.String("command", name), zap.Error(err))
			continue
		}
		if ok {
			event.PreventDefault()
			return true
		}
	}

	if fn, ok := e.Option("defaultBindingMethod").(func(*pm.Event) bool); ok && fn != nil {
		return fn(event)
	}
	return false
}

// commandsFor returns the command names bound to event, contributors in
// priority order first and the base keymap last.
func (e *Extension) commandsFor(event *pm.Event) []string {
	var names []string
	add := func(km map[string]string) {
		chords := make([]string, 0, len(km))
		for chord := range km {
			chords = append(chords, chord)
		}
		sort.Strings(chords)
		for _, chord := range chords {
			if ParseChord(chord).Matches(event) && !slices.Contains(names, km[chord]) {
				names = append(names, km[chord])
			}
		}
	}
	for _, ext := range e.store.Extensions() {
		kc, ok := ext.(extension.KeymapContributor)
		if !ok {
			continue
		}
		if ex, ok := ext.(interface{ Excluded(string) bool }); ok && ex.Excluded("keymap") {
			continue
		}
		add(kc.Keymap())
	}
	add(e.BaseKeymap())
	return names
}

func lookup(b Bindings, event *pm.Event) extension.Command {
	chords := make([]string, 0, len(b))
	for chord := range b {
		chords = append(chords, chord)
	}
	sort.Strings(chords)
	for _, chord := range chords {
		if ParseChord(chord).Matches(event) {
			return b[chord]
		}
	}
	return nil
}

func deleteBy(dir int) extension.Command {
	return func(props extension.CommandProps) bool {
		state := props.State
		sel := state.Selection
		from, to := sel.From(), sel.To()
		if sel.Empty() {
			r, err := state.Doc.Resolve(sel.Head)
			if err != nil || !r.Parent().Type.InlineContent {
				return false
			}
			if dir < 0 {
				if r.ParentOffset == 0 {
					return false
				}
				from = to - clusterSize(r.NodeBefore(), true)
			} else {
				if r.ParentOffset == r.Parent().ContentSize() {
					return false
				}
				to = from + clusterSize(r.NodeAfter(), false)
			}
		}
		if props.Dispatch == nil {
			return true
		}
		tr := state.Tr()
		if err := tr.Delete(from, to); err != nil {
			return false
		}
		props.Dispatch(tr)
		return true
	}
}

// clusterSize returns the size of the grapheme cluster at the end (last)
// or start of a text node, so that combined characters and emoji
// sequences are deleted whole. Other nodes have their own size.
func clusterSize(node *pm.Node, last bool) int {
	if node == nil {
		return 1
	}
	if !node.IsText() {
		return node.NodeSize()
	}
	g := uniseg.NewGraphemes(node.Text)
	n := 1
	for g.Next() {
		n = utf8.RuneCountInString(g.Str())
		if !last {
			break
		}
	}
	return n
}

func selectAll(props extension.CommandProps) bool {
	size := props.State.Doc.ContentSize()
	sel := props.State.Selection
	if sel.From() == 0 && sel.To() == size {
		return false
	}
	if props.Dispatch != nil {
		props.Dispatch(props.State.Tr().SetSelection(pm.Selection{Anchor: 0, Head: size}))
	}
	return true
}

// selectParentNode widens the selection to the enclosing block.
func selectParentNode(props extension.CommandProps) bool {
	state := props.State
	r, err := state.Doc.Resolve(state.Selection.From())
	if err != nil || r.Depth == 0 {
		return false
	}
	target := pm.Selection{Anchor: r.Start(r.Depth), Head: r.End(r.Depth)}
	if target == state.Selection {
		return false
	}
	if props.Dispatch != nil {
		props.Dispatch(state.Tr().SetSelection(target))
	}
	return true
}
