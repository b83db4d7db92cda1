package library

import (
	"errors"

	"local-gallery/internal/pathset"
)

var (
	// ErrUnknownRoot is returned by read helpers for a root that has never
	// been referenced by an event. Writers create such roots implicitly.
	ErrUnknownRoot = errors.New("unknown root")

	// ErrInvalidRecord marks a record that cannot be stored, such as one
	// with a negative size.
	ErrInvalidRecord = errors.New("invalid record")

	// ErrUnknownEvent is returned for nil or unsupported event values.
	ErrUnknownEvent = errors.New("unknown event type")
)

// MalformedPathError reports a path that could not be normalized. Records
// carrying such paths are skipped; the rest of their batch still applies.
type MalformedPathError = pathset.MalformedPathError
