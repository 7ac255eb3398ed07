package option

import "errors"

// Option registry errors.
var (
	// ErrInvalidExtensionOptions is returned when an option key is unknown,
	// a handler option is not invocable, or a static option is updated
	// after construction.
	ErrInvalidExtensionOptions = errors.New("invalid extension options")
)
