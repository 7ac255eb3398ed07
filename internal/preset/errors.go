package preset

import "errors"

// ErrExtensionNotFound is returned when a preset has no member of the
// requested type.
var ErrExtensionNotFound = errors.New("extension not found in preset")
