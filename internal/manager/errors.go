package manager

import "errors"

// Manager errors.
var (
	// ErrDuplicateExtensionNames is returned when two different extension
	// types share a name.
	ErrDuplicateExtensionNames = errors.New("duplicate extension names")

	// ErrManagerDestroyed is returned by every call after Destroy.
	ErrManagerDestroyed = errors.New("manager destroyed")

	// ErrNotCreated is returned by calls that need Create to have run.
	ErrNotCreated = errors.New("manager not created")

	// ErrAlreadyCreated is returned when Create runs twice.
	ErrAlreadyCreated = errors.New("manager already created")

	// ErrExtensionNotFound is returned by lookups that find nothing.
	ErrExtensionNotFound = errors.New("extension not found")

	// ErrCommandNotFound is returned for unknown command names.
	ErrCommandNotFound = errors.New("command not found")

	// ErrStaleTransaction is returned for a transaction built from a state
	// that is no longer current.
	ErrStaleTransaction = errors.New("transaction does not apply to the current state")

	// ErrInvalidCombined is returned for seed values that are neither an
	// extension nor a preset.
	ErrInvalidCombined = errors.New("not an extension or preset")
)
