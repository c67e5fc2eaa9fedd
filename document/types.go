package document

import (
	"context"
	"time"

	"github.com/iw2rmb/quire/buffer"
	"github.com/iw2rmb/quire/store"
)

// Buffer is the editing collaborator. *buffer.Buffer implements it.
type Buffer interface {
	// Content returns the text and its alternative version marker, read
	// atomically. Equal markers mean equal content.
	Content() (string, uint64)

	// Checkpoint closes the current undo group.
	Checkpoint()

	// SetText replaces the content and reports a buffer.ChangeReload.
	SetText(text string)

	Subscribe(fn func(buffer.Change)) (unsubscribe func())
}

var _ Buffer = (*buffer.Buffer)(nil)

// Snapshot is the last known identity of the stored resource.
type Snapshot = store.Snapshot

// SaveContext describes the save a participant runs for.
type SaveContext struct {
	Auto     bool
	Resource string
	Version  uint64
}

// SaveParticipant runs synchronously on the controller loop right before
// every write and may mutate the buffer. It must not call blocking
// Controller methods (Save, Load, Revert, SetEncoding, Dispose). A returned
// error is logged and the save proceeds.
type SaveParticipant interface {
	Participate(ctx context.Context, c *Controller, sc SaveContext) error
}

type SaveParticipantFunc func(ctx context.Context, c *Controller, sc SaveContext) error

func (f SaveParticipantFunc) Participate(ctx context.Context, c *Controller, sc SaveContext) error {
	return f(ctx, c, sc)
}

// ErrorHandler receives every failed save and every failed explicit load or
// revert. It runs on the controller loop and must not call blocking
// Controller methods.
type ErrorHandler interface {
	HandleError(ctx context.Context, c *Controller, err error)
}

type ErrorHandlerFunc func(ctx context.Context, c *Controller, err error)

func (f ErrorHandlerFunc) HandleError(ctx context.Context, c *Controller, err error) {
	f(ctx, c, err)
}

// Telemetry receives save and load outcomes. Implementations must not block.
type Telemetry interface {
	SaveStarted(auto bool)
	SaveFinished(auto bool, d time.Duration, err error)
	LoadFinished(d time.Duration, err error)
	StateChanged(from, to State)
}

type nopTelemetry struct{}

func (nopTelemetry) SaveStarted(bool)                        {}
func (nopTelemetry) SaveFinished(bool, time.Duration, error) {}
func (nopTelemetry) LoadFinished(time.Duration, error)       {}
func (nopTelemetry) StateChanged(State, State)               {}

// SaveOptions tune a manual save.
type SaveOptions struct {
	// Force writes even when the document is clean.
	Force bool

	// IgnoreModifiedSince skips the store's stale-write check. Used to
	// overwrite external changes while in conflict mode.
	IgnoreModifiedSince bool

	OverwriteReadonly bool

	// Reason is recorded on the save span and in logs.
	Reason string
}

func (o SaveOptions) merge(other SaveOptions) SaveOptions {
	o.Force = o.Force || other.Force
	o.IgnoreModifiedSince = o.IgnoreModifiedSince || other.IgnoreModifiedSince
	o.OverwriteReadonly = o.OverwriteReadonly || other.OverwriteReadonly
	if o.Reason == "" {
		o.Reason = other.Reason
	}
	return o
}

type LoadOptions struct {
	// Force skips the cache token so the store always returns content.
	Force bool
}

// EncodingMode selects how SetEncoding applies a new encoding.
type EncodingMode int

const (
	// EncodingEncode re-persists the current text in the new encoding.
	EncodingEncode EncodingMode = iota
	// EncodingDecode re-reads the stored bytes with the new encoding.
	EncodingDecode
)

func (m EncodingMode) String() string {
	switch m {
	case EncodingEncode:
		return "encode"
	case EncodingDecode:
		return "decode"
	default:
		return "unknown"
	}
}
