package document

import (
	"errors"

	"github.com/iw2rmb/quire/store"
)

// Store errors, re-exported so callers need not import store to classify.
var (
	ErrNotModified = store.ErrNotModified
	ErrNotFound    = store.ErrNotFound
	ErrConflict    = store.ErrConflict
	ErrReadonly    = store.ErrReadonly
)

// Controller errors
var (
	// ErrSaveFirst is returned when an operation would discard unsaved edits.
	ErrSaveFirst = errors.New("document has unsaved changes; save first")

	// ErrUnknownEncoding is returned for an encoding name that cannot be resolved.
	ErrUnknownEncoding = errors.New("unknown encoding")

	// ErrDisposed is returned internally once the controller loop has stopped.
	// Public methods translate it to a nil result.
	ErrDisposed = errors.New("document disposed")
)

// StoreError is a failed transport operation.
type StoreError = store.Error

func IsNotFound(err error) bool { return store.IsNotFound(err) }

func IsConflict(err error) bool { return store.IsConflict(err) }

func IsNotModified(err error) bool { return store.IsNotModified(err) }

func ignoreDisposed(err error) error {
	if errors.Is(err, ErrDisposed) {
		return nil
	}
	return err
}
