package store

import (
	"errors"
	"fmt"
)

// Read errors
var (
	// ErrNotModified indicates the stored content still matches the cache token.
	ErrNotModified = errors.New("not modified since")

	// ErrNotFound indicates the resource does not exist.
	ErrNotFound = errors.New("resource not found")

	// ErrIsDirectory indicates the resource names a directory.
	ErrIsDirectory = errors.New("resource is a directory")
)

// Write errors
var (
	// ErrConflict indicates the resource was modified after the writer's snapshot.
	ErrConflict = errors.New("resource modified since last read")

	// ErrReadonly indicates the resource is write protected.
	ErrReadonly = errors.New("resource is read-only")
)

// Error is a failed store operation.
type Error struct {
	Op       string
	Resource string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Resource, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Wrap annotates err with the operation and resource. Nil stays nil.
func Wrap(op, resource string, err error) error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	return &Error{Op: op, Resource: resource, Err: err}
}

func IsNotModified(err error) bool { return errors.Is(err, ErrNotModified) }

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

func IsConflict(err error) bool { return errors.Is(err, ErrConflict) }
