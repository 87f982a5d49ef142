// Package logerr holds the error classes shared by the log core and its
// storage handlers. Callers classify failures with errors.Is.
package logerr

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument reports malformed length, level, module or name input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotFound reports an unknown module, log, or evicted entry.
	ErrNotFound = errors.New("not found")
	// ErrFull reports exhausted registry capacity or backend storage.
	ErrFull = errors.New("full")
	// ErrUnsupported reports a capability disabled by configuration or absent
	// from a handler.
	ErrUnsupported = errors.New("unsupported")
	// ErrIO reports a storage medium failure.
	ErrIO = errors.New("io failure")
	// ErrCorrupt reports a header that failed to decode or a truncated entry.
	ErrCorrupt = errors.New("corrupt entry")
)

// ErrDuplicate reports a module id or log name that is already registered.
// It is an InvalidArgument.
var ErrDuplicate = fmt.Errorf("duplicate: %w", ErrInvalidArgument)

// IO wraps a medium error so that it matches ErrIO while keeping the cause.
func IO(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrIO, err)
}
