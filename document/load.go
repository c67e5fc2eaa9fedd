package document

import (
	"context"
	"fmt"

	"github.com/iw2rmb/quire/store"
)

// Load reads the resource into the buffer. It does nothing while the
// document is dirty, so unsaved edits are never discarded. Without
// opts.Force the held change tag is sent as a cache token.
func (c *Controller) Load(ctx context.Context, opts LoadOptions) error {
	op := newOperation()
	err := c.loop.call(ctx, func() {
		c.whenSettled(func() {
			if c.disposed || c.dirty.dirty {
				op.complete(nil)
				return
			}
			c.startLoad(ctx, opts.Force, func(_ bool, err error) error {
				if err != nil {
					c.handleError(ctx, err)
				}
				return err
			}).chain(op)
		}, op)
	})
	if err != nil {
		return ignoreDisposed(err)
	}
	return op.Wait(ctx)
}

// Revert discards unsaved edits by reloading from the store. A resource
// that no longer exists reverts to empty content. On any other failure the
// previous dirty state is restored.
func (c *Controller) Revert(ctx context.Context) error {
	op := newOperation()
	err := c.loop.call(ctx, func() {
		c.cancelAutosave()
		c.whenSettled(func() { c.revert(ctx).chain(op) }, op)
	})
	if err != nil {
		return ignoreDisposed(err)
	}
	return op.Wait(ctx)
}

func (c *Controller) revert(ctx context.Context) *Operation {
	if c.disposed {
		return completedOperation(nil)
	}
	c.cancelAutosave()
	prev := c.saveDirtyState()
	c.dirty.dirty = false

	return c.startLoad(ctx, true, func(applied bool, err error) error {
		switch {
		case err == nil:
			if applied {
				c.emit(Event{Kind: EventReverted, Version: c.version.current()})
			}
			return nil
		case store.IsNotFound(err):
			marker, clean := c.materialize("")
			if clean {
				c.savedMarker = marker
				c.markClean(c.version.current())
			}
			c.emit(Event{Kind: EventReverted, Version: c.version.current()})
			return nil
		default:
			c.restoreDirtyState(prev)
			c.handleError(ctx, err)
			return err
		}
	})
}

// whenSettled runs fn on the loop once no save is in flight or queued. A
// read started beside a write could materialize content the write is about
// to replace. When the loop stops first, op completes with nil.
func (c *Controller) whenSettled(fn func(), op *Operation) {
	wait := c.inFlightSave()
	if wait == nil {
		fn()
		return
	}
	c.log.Debug("load deferred until the save in flight finishes")
	go func() {
		<-wait.Done()
		if !c.loop.post(func() { c.whenSettled(fn, op) }) {
			op.complete(nil)
		}
	}()
}

func (c *Controller) inFlightSave() *Operation {
	if c.next != nil {
		return c.next.op
	}
	for _, op := range c.pending {
		return op
	}
	return nil
}

// startLoad reads off the loop and applies the result on it. done runs on
// the loop with whether content was materialized and the read error.
func (c *Controller) startLoad(ctx context.Context, force bool, done func(applied bool, err error) error) *Operation {
	start := c.version.current()
	ropts := store.ReadOptions{Encoding: c.enc.preferred}
	if !force && c.backing.set {
		ropts.ETag = c.backing.snap.ETag
	}
	key := fmt.Sprintf("%t|%s|%s", force, ropts.ETag, ropts.Encoding)

	op := newOperation()
	resource := c.opts.Resource
	began := c.clock.Now()
	go func() {
		sctx, span := c.tracer.startLoad(ctx, c, force)
		v, err, shared := c.reads.Do(key, func() (any, error) {
			return c.store.Read(sctx, resource, ropts)
		})
		if store.IsNotModified(err) {
			endSpan(span, nil)
		} else {
			endSpan(span, err)
		}
		res, _ := v.(store.ReadResult)

		posted := c.loop.post(func() {
			c.tel.LoadFinished(c.clock.Now().Sub(began), err)
			if shared {
				c.log.Debug("load joined in-flight read")
			}
			applied, aerr := c.applyLoad(start, res, err)
			c.finish(op, done(applied, aerr))
		})
		if !posted {
			op.complete(nil)
		}
	}()
	return op
}

func (c *Controller) applyLoad(start uint64, res store.ReadResult, err error) (bool, error) {
	c.drainInbox()
	if err != nil {
		if store.IsNotModified(err) {
			c.markClean(start)
			return false, nil
		}
		c.log.Warn("load failed", "error", err)
		return false, err
	}
	if c.disposed || c.dirty.dirty {
		c.log.Debug("load result dropped, document changed during read")
		return false, nil
	}

	c.acceptSnapshot(res.Snapshot)
	c.adoptEncoding(res.Encoding)
	marker, clean := c.materialize(res.Content)
	c.resolved = true
	if clean {
		c.savedMarker = marker
		c.markClean(c.version.current())
	}
	c.log.Debug("document loaded", "version", c.version.current(), "encoding", c.enc.effective())
	return true, nil
}
