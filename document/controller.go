package document

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/iw2rmb/quire/buffer"
	"github.com/iw2rmb/quire/internal/textenc"
	"github.com/iw2rmb/quire/store"
)

// Controller keeps one Buffer synchronized with one stored resource.
type Controller struct {
	id     string
	buf    Buffer
	store  store.Store
	opts   Options
	log    *slog.Logger
	clock  Clock
	tel    Telemetry
	tracer tracer

	loop        *loop
	events      *bus
	reads       singleflight.Group
	unsubscribe func()
	disposeOnce sync.Once

	inboxMu sync.Mutex
	inbox   []buffer.Change

	// Owned by the loop goroutine.
	version  versionTracker
	dirty    dirtyState
	guard    conflictGuard
	backing  backingState
	enc      encodingState
	autosave autosaveState
	pending  map[uint64]*Operation
	next     *queuedSave

	savedMarker     uint64
	materializing   bool
	raced           bool
	resolved        bool
	disposed        bool
	lastSaveAttempt time.Time
	lastState       State

	status atomic.Pointer[status]
}

// status is what queries read; it is republished after every loop task.
type status struct {
	dirty           bool
	resolved        bool
	disposed        bool
	saving          bool
	state           State
	version         uint64
	lastSaveAttempt time.Time
	snapshot        Snapshot
	hasSnapshot     bool
	encoding        string
}

// New creates a controller over buf and st. The buffer's current content is
// treated as persisted until the first Load says otherwise.
func New(buf Buffer, st store.Store, opts Options) (*Controller, error) {
	if buf == nil {
		return nil, errors.New("document: nil buffer")
	}
	if st == nil {
		return nil, errors.New("document: nil store")
	}
	opts = opts.withDefaults()

	var preferred string
	if opts.Encoding != "" {
		canon, err := textenc.Canonical(opts.Encoding)
		if err != nil {
			return nil, errors.Join(ErrUnknownEncoding, err)
		}
		preferred = canon
	}

	id := uuid.NewString()
	c := &Controller{
		id:      id,
		buf:     buf,
		store:   st,
		opts:    opts,
		log:     opts.Logger.With(slog.String("document", id), slog.String("resource", opts.Resource)),
		clock:   opts.Clock,
		tel:     opts.Telemetry,
		tracer:  newTracer(opts.Tracing),
		events:  newBus(),
		pending: map[uint64]*Operation{},
		enc:     encodingState{preferred: preferred},
		autosave: autosaveState{
			mode:  opts.Autosave,
			delay: opts.AutosaveDelay,
		},
	}
	_, c.savedMarker = buf.Content()
	c.publish()
	c.loop = newLoop(c.publish)
	c.unsubscribe = buf.Subscribe(c.onBufferChange)
	return c, nil
}

func (c *Controller) ID() string { return c.id }

func (c *Controller) Resource() string { return c.opts.Resource }

// Buffer returns the buffer the controller observes. Save participants use it
// to mutate content.
func (c *Controller) Buffer() Buffer { return c.buf }

// Subscribe registers fn for lifecycle events. Events are delivered in order
// on a dispatcher goroutine; fn may call Controller methods.
func (c *Controller) Subscribe(fn func(Event)) (unsubscribe func()) {
	return c.events.subscribe(fn)
}

func (c *Controller) IsDirty() bool { return c.status.Load().dirty }

func (c *Controller) IsResolved() bool { return c.status.Load().resolved }

func (c *Controller) IsDisposed() bool { return c.status.Load().disposed }

// Saving reports whether a write is in flight, whatever State reports.
func (c *Controller) Saving() bool { return c.status.Load().saving }

func (c *Controller) State() State { return c.status.Load().state }

// Version is the logical version of the in-memory content.
func (c *Controller) Version() uint64 { return c.status.Load().version }

func (c *Controller) LastSaveAttempt() time.Time { return c.status.Load().lastSaveAttempt }

// LastModified is the modification time of the held snapshot, zero when
// unresolved.
func (c *Controller) LastModified() time.Time { return c.status.Load().snapshot.ModTime }

// Snapshot returns the held store snapshot.
func (c *Controller) Snapshot() (Snapshot, bool) {
	s := c.status.Load()
	return s.snapshot, s.hasSnapshot
}

// Encoding is the effective encoding.
func (c *Controller) Encoding() string { return c.status.Load().encoding }

// EnterConflictMode suspends autosave until the next successful save or
// load. Manual saves stay allowed.
func (c *Controller) EnterConflictMode(ctx context.Context) error {
	return ignoreDisposed(c.loop.call(ctx, func() {
		if c.disposed || c.guard.conflictMode {
			return
		}
		c.guard.conflictMode = true
		c.cancelAutosave()
		c.log.Info("conflict mode entered")
		c.emit(Event{Kind: EventConflict, Version: c.version.current()})
	}))
}

// SetAutosave changes the autosave policy. Enabling it on a dirty document
// schedules an autosave.
func (c *Controller) SetAutosave(ctx context.Context, mode AutosaveMode, delay time.Duration) error {
	return ignoreDisposed(c.loop.call(ctx, func() {
		if c.disposed {
			return
		}
		c.autosave.mode = mode
		if delay > 0 {
			c.autosave.delay = delay
		}
		c.cancelAutosave()
		if c.dirty.dirty {
			c.scheduleAutosave(c.version.current())
		}
	}))
}

// Dispose detaches from the buffer and stops notifications. A save already
// in flight still completes. Later calls are no-ops.
func (c *Controller) Dispose() {
	c.disposeOnce.Do(func() {
		c.unsubscribe()
		_ = c.loop.call(context.Background(), func() {
			c.disposed = true
			c.cancelAutosave()
			c.events.close()
			if c.next != nil {
				c.next.op.complete(nil)
				c.next = nil
			}
			c.log.Debug("document disposed", "pending_saves", len(c.pending))
			c.maybeClose()
		})
	})
}

// Done is closed once the controller is disposed and its last save has
// finished.
func (c *Controller) Done() <-chan struct{} { return c.loop.Done() }

func (c *Controller) maybeClose() {
	if c.disposed && len(c.pending) == 0 {
		c.loop.close()
	}
}

func (c *Controller) emit(e Event) {
	if c.disposed {
		return
	}
	c.events.emit(e)
}

func (c *Controller) handleError(ctx context.Context, err error) {
	if c.disposed {
		return
	}
	c.opts.ErrorHandler.HandleError(ctx, c, err)
}

func (c *Controller) currentState() State {
	switch {
	case c.guard.conflictMode:
		return StateConflict
	case c.guard.errorMode:
		return StateError
	case !c.dirty.dirty:
		return StateSaved
	case len(c.pending) > 0:
		return StatePendingSave
	default:
		return StateDirty
	}
}

// publish refreshes the status read by queries. It runs on the loop.
func (c *Controller) publish() {
	state := c.currentState()
	if state != c.lastState {
		c.tel.StateChanged(c.lastState, state)
		c.lastState = state
	}
	c.status.Store(&status{
		dirty:           c.dirty.dirty,
		resolved:        c.resolved,
		disposed:        c.disposed,
		saving:          len(c.pending) > 0,
		state:           state,
		version:         c.version.current(),
		lastSaveAttempt: c.lastSaveAttempt,
		snapshot:        c.backing.snap,
		hasSnapshot:     c.backing.set,
		encoding:        c.enc.effective(),
	})
}

// finish publishes state before completing op so a caller woken by op sees
// the outcome in queries.
func (c *Controller) finish(op *Operation, err error) {
	c.publish()
	op.complete(err)
}

// onBufferChange runs on the mutating goroutine.
func (c *Controller) onBufferChange(ch buffer.Change) {
	c.inboxMu.Lock()
	c.inbox = append(c.inbox, ch)
	c.inboxMu.Unlock()
	c.loop.post(c.drainInbox)
}

func (c *Controller) drainInbox() {
	c.inboxMu.Lock()
	changes := c.inbox
	c.inbox = nil
	c.inboxMu.Unlock()

	for _, ch := range changes {
		c.handleChange(ch)
	}
}

func (c *Controller) handleChange(ch buffer.Change) {
	if c.disposed {
		return
	}
	v := c.version.advance()
	if c.materializing {
		if ch.Kind == buffer.ChangeReload {
			return
		}
		c.raced = true
	}

	if c.autosave.mode == AutosaveOff && ch.AlternativeVersion == c.savedMarker {
		wasDirty := c.dirty.dirty
		// Conflict mode survives: only a load or save resolves it.
		c.dirty.markClean(v, v)
		c.cancelAutosave()
		if wasDirty {
			c.log.Debug("undo reached saved content", "version", v)
			c.emit(Event{Kind: EventReverted, Version: v})
		}
		return
	}

	c.markDirty()
	c.scheduleAutosave(v)
}

// materialize replaces the buffer content without marking the document
// dirty. It returns the new content marker and false when an edit raced
// with the replacement.
func (c *Controller) materialize(text string) (uint64, bool) {
	c.drainInbox()
	c.materializing = true
	c.raced = false
	c.buf.SetText(text)
	c.drainInbox()
	c.materializing = false
	_, marker := c.buf.Content()
	return marker, !c.raced
}
