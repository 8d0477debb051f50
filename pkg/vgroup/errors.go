package vgroup

import (
	"errors"
	"fmt"
)

// Sentinel errors wrapped by FatalError.
var (
	// ErrInvalidArgument indicates a reservation request violating its preconditions.
	ErrInvalidArgument = errors.New("invalid reservation request")
	// ErrIndexExhausted indicates the diagram package cannot host more variables.
	ErrIndexExhausted = errors.New("variable index space exhausted")
	// ErrUnknownHandle indicates a handle that was never issued or was already consumed.
	ErrUnknownHandle = errors.New("unknown or already consumed handle")
	// ErrCorruptForest indicates an internal inconsistency in the group forest.
	ErrCorruptForest = errors.New("group forest is inconsistent")
	// ErrClosed indicates the allocator has been torn down.
	ErrClosed = errors.New("allocator is closed")
)

// FatalError reports a failure the allocator cannot recover from locally:
// index exhaustion, misuse of a handle, an inconsistent forest, or a failing
// diagram package. Sharing conflicts are never reported as errors.
type FatalError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *FatalError) Error() string {
	return fmt.Sprintf("vgroup: %s: %v", e.Op, e.Err)
}

// Unwrap exposes the underlying cause.
func (e *FatalError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether err carries a FatalError.
func IsFatal(err error) bool {
	var fatalErr *FatalError

	return errors.As(err, &fatalErr)
}

func fatal(op string, err error) error {
	if err == nil {
		return nil
	}

	var fatalErr *FatalError
	if errors.As(err, &fatalErr) {
		return err
	}

	return &FatalError{Op: op, Err: err}
}
