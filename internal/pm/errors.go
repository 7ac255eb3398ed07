package pm

import "errors"

// Document model errors.
var (
	// ErrPositionOutOfRange is returned when a position lies outside a document.
	ErrPositionOutOfRange = errors.New("position out of range")

	// ErrUnknownNodeType is returned for a node type missing from the schema.
	ErrUnknownNodeType = errors.New("unknown node type")

	// ErrUnknownMarkType is returned for a mark type missing from the schema.
	ErrUnknownMarkType = errors.New("unknown mark type")

	// ErrInvalidContent is returned when a step would place content where
	// its parent cannot hold it.
	ErrInvalidContent = errors.New("invalid content")
)
