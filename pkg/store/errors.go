package store

import "errors"

var (
	// ErrNotFound indicates the requested row does not exist.
	ErrNotFound = errors.New("store: not found")

	// ErrContentTooLong indicates create_user_memory's content exceeds the
	// configured maximum (spec.md §4.2).
	ErrContentTooLong = errors.New("store: content_too_long")

	// ErrDuplicateSourceURL indicates a Source insert collided with an
	// existing normalized URL for the same run (spec.md §3 invariant).
	ErrDuplicateSourceURL = errors.New("store: duplicate source url for run")

	// ErrApprovalTerminal indicates an attempt to decide an already-terminal
	// approval; callers should treat this as a no-op, not a hard failure.
	ErrApprovalTerminal = errors.New("store: approval already terminal")
)
