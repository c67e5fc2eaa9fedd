// Package store defines the backing-store contract a document.Controller
// persists through: a resource is read with an optional cache token and
// written with the last known modification time and change tag so the store
// can refuse a stale overwrite.
//
// Implementations live in subpackages (memstore, filestore, badgerstore,
// gcsstore). All of them return the sentinel errors below, wrapped in
// *Error, so callers classify failures with errors.Is.
package store

import (
	"context"
	"time"
)

// Store reads and writes whole documents.
type Store interface {
	// Read returns the current content of resource. When opts.ETag matches
	// the stored change tag the store returns ErrNotModified instead.
	Read(ctx context.Context, resource string, opts ReadOptions) (ReadResult, error)

	// Write replaces the content of resource and returns the new snapshot.
	// It returns ErrConflict when the stored resource changed after the
	// snapshot described by opts.ModTime/opts.ETag.
	Write(ctx context.Context, resource string, content string, opts WriteOptions) (Snapshot, error)
}

// Snapshot is the last known identity of a stored resource.
type Snapshot struct {
	Resource    string
	ModTime     time.Time
	ETag        string
	ContentKind string
	IsDir       bool
	Size        int64
}

// IsZero reports whether the snapshot was never assigned.
func (s Snapshot) IsZero() bool {
	return s.Resource == "" && s.ModTime.IsZero() && s.ETag == ""
}

type ReadOptions struct {
	// ETag is a cache-validation token. Empty forces a full read.
	ETag string

	// Encoding overrides detection when non-empty.
	Encoding string
}

type ReadResult struct {
	Content  string
	Encoding string
	Snapshot Snapshot
}

type WriteOptions struct {
	// ModTime and ETag describe the snapshot the content was based on.
	ModTime time.Time
	ETag    string

	Encoding string

	OverwriteReadonly   bool
	OverwriteEncoding   bool
	IgnoreModifiedSince bool
}

// CheckModifiedSince returns ErrConflict when current is newer than the
// snapshot the writer based its content on.
func CheckModifiedSince(current Snapshot, opts WriteOptions) error {
	if opts.IgnoreModifiedSince || opts.ETag == "" {
		return nil
	}
	if current.ETag == opts.ETag {
		return nil
	}
	if !opts.ModTime.IsZero() && !current.ModTime.After(opts.ModTime) {
		return nil
	}
	return ErrConflict
}
