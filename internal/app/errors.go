package app

import (
	"errors"
	"fmt"
)

// Application errors.
var (
	// ErrShutdown is returned by calls made after Shutdown.
	ErrShutdown = errors.New("application shut down")

	// ErrStoreRequired is returned when persist is enabled without a
	// store path.
	ErrStoreRequired = errors.New("persist needs store.path")

	// ErrInvalidDocument is returned for a document source that is not a
	// JSON object.
	ErrInvalidDocument = errors.New("document is not a JSON object")
)

// InitError reports which component failed to start.
type InitError struct {
	Component string
	Err       error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("initializing %s: %v", e.Component, e.Err)
}

func (e *InitError) Unwrap() error {
	return e.Err
}
