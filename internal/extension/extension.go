package extension

import (
	"github.com/cozy/prosemirror-go/model"
	"go.uber.org/zap"

	"github.com/dshills/loom/internal/handler"
	"github.com/dshills/loom/internal/loop"
	"github.com/dshills/loom/internal/option"
	"github.com/dshills/loom/internal/pm"
)

// Extension is the option and handler surface every extension exposes.
type Extension interface {
	// Name is unique within a manager.
	Name() string

	// Priority orders the extension; the "priority" option overrides the
	// built-in value.
	Priority() Priority

	// Options returns a copy of the resolved options.
	Options() option.Values

	// SetOptions updates dynamic options.
	SetOptions(update option.Values) error

	// AddHandler subscribes to a declared handler key.
	AddHandler(key string, fn handler.Func) (*handler.Disposer, error)

	// AddCustomHandler registers a value under a declared custom handler key.
	AddCustomHandler(key string, value any) (*handler.Disposer, error)
}

// SchemaContributor adds node and mark types to the schema.
type SchemaContributor interface {
	NodeSpecs() []*model.NodeSpec
	MarkSpecs() []*model.MarkSpec
}

// PluginContributor adds a document plugin.
type PluginContributor interface {
	CreatePlugin() *pm.Plugin
}

// CommandContributor adds named commands.
type CommandContributor interface {
	Commands() map[string]Command
}

// KeymapContributor binds key chords to command names.
type KeymapContributor interface {
	Keymap() map[string]string
}

// Initializer is called once the manager has built its schema and before
// the initial state exists.
type Initializer interface {
	OnCreate(store Store) error
}

// Destroyer is called when the manager is destroyed.
type Destroyer interface {
	OnDestroy()
}

// CommandProps is passed to a command. Dispatch is nil for a dry run that
// only checks whether the command applies.
type CommandProps struct {
	State    *pm.State
	Dispatch func(tr *pm.Transaction)
	View     pm.View
	Args     []any
}

// Command runs against the current state and reports whether it applied.
type Command func(props CommandProps) bool

// Store is the manager surface available to extensions after creation.
type Store interface {
	// ID identifies the document.
	ID() string
	State() *pm.State
	Dispatch(tr *pm.Transaction) error
	Schema() *pm.Schema
	Extensions() []Extension
	RunCommand(name string, args ...any) (bool, error)
	Scheduler() loop.Scheduler
	Logger() *zap.Logger
	PluginState(key string) any

	// AddHandler subscribes to manager events such as "change".
	AddHandler(key string, fn handler.Func) (*handler.Disposer, error)
}
