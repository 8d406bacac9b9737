package store

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a referenced thread does not exist.
var ErrNotFound = errors.New("thread not found")

// ErrInvalidCursor is returned when a pagination cursor cannot be decoded.
var ErrInvalidCursor = errors.New("invalid cursor")

// PersistenceError wraps a failed database or batch operation with enough
// context that callers never have to interpret driver errors directly.
type PersistenceError struct {
	Op       string
	ThreadID string
	Err      error
}

func (e *PersistenceError) Error() string {
	if e.ThreadID != "" {
		return fmt.Sprintf("store: %s failed for thread %s: %v", e.Op, e.ThreadID, e.Err)
	}
	return fmt.Sprintf("store: %s failed: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func persistErr(op, threadID string, err error) error {
	return &PersistenceError{Op: op, ThreadID: threadID, Err: err}
}
