package handler

import "errors"

// Handler dispatch errors.
var (
	// ErrInvalidExtensionHandler is returned when a handler or custom
	// handler is registered under a key that was not declared.
	ErrInvalidExtensionHandler = errors.New("invalid extension handler")
)
