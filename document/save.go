package document

import (
	"context"
	"time"

	"github.com/iw2rmb/quire/store"
)

type saveRequest struct {
	ctx               context.Context
	auto              bool
	opts              SaveOptions
	overwriteEncoding bool
}

// queuedSave is the manual save that runs after the in-flight one. Every
// manual caller arriving meanwhile shares it.
type queuedSave struct {
	op  *Operation
	req saveRequest
}

// Save persists the current version and waits for the write. It returns nil
// when there is nothing to save. Concurrent calls for the same version share
// one write.
func (c *Controller) Save(ctx context.Context, opts SaveOptions) error {
	var op *Operation
	err := c.loop.call(ctx, func() {
		c.cancelAutosave()
		op = c.attemptSave(c.version.current(), saveRequest{ctx: ctx, opts: opts})
	})
	if err != nil {
		return ignoreDisposed(err)
	}
	return op.Wait(ctx)
}

func (c *Controller) attemptSave(v uint64, req saveRequest) *Operation {
	if op, ok := c.pending[v]; ok {
		return op
	}
	if c.disposed {
		return completedOperation(nil)
	}
	if (!c.dirty.dirty && !req.opts.Force) || v != c.version.current() {
		return completedOperation(nil)
	}
	if len(c.pending) > 0 {
		if req.auto {
			c.log.Debug("save in flight, autosave rescheduled", "version", v)
			c.scheduleAutosave(v)
			return completedOperation(nil)
		}
		return c.queueSave(req)
	}
	return c.startSave(req)
}

func (c *Controller) queueSave(req saveRequest) *Operation {
	if c.next == nil {
		c.next = &queuedSave{op: newOperation(), req: req}
		c.log.Debug("save in flight, manual save queued")
		return c.next.op
	}
	c.next.req.opts = c.next.req.opts.merge(req.opts)
	c.next.req.overwriteEncoding = c.next.req.overwriteEncoding || req.overwriteEncoding
	return c.next.op
}

func (c *Controller) runQueued() {
	q := c.next
	if q == nil || len(c.pending) > 0 {
		return
	}
	c.next = nil
	c.attemptSave(c.version.current(), q.req).chain(q.op)
}

func (c *Controller) startSave(req saveRequest) *Operation {
	c.guard.errorMode = false
	if c.autosave.mode == AutosaveOff {
		c.buf.Checkpoint()
	}
	if p := c.opts.Participant; p != nil {
		sc := SaveContext{Auto: req.auto, Resource: c.opts.Resource, Version: c.version.current()}
		if err := p.Participate(req.ctx, c, sc); err != nil {
			c.log.Warn("save participant failed", "error", err)
		}
		// The participant may have edited; save what it left behind.
		c.drainInbox()
	}

	v := c.version.current()
	c.lastSaveAttempt = c.clock.Now()
	content, marker := c.buf.Content()

	op := newOperation()
	c.pending[v] = op

	snap := c.backing.snap
	wopts := store.WriteOptions{
		ModTime:             snap.ModTime,
		ETag:                snap.ETag,
		Encoding:            c.enc.effective(),
		OverwriteReadonly:   req.opts.OverwriteReadonly,
		OverwriteEncoding:   req.overwriteEncoding,
		IgnoreModifiedSince: req.opts.IgnoreModifiedSince,
	}

	c.tel.SaveStarted(req.auto)
	c.log.Debug("save started", "version", v, "auto", req.auto, "reason", req.opts.Reason)

	ctx, span := c.tracer.startSave(context.WithoutCancel(req.ctx), c, v, req.auto, req.opts.Reason)
	started := c.clock.Now()
	resource := c.opts.Resource
	go func() {
		res, err := c.store.Write(ctx, resource, content, wopts)
		endSpan(span, err)
		c.loop.post(func() { c.finishSave(v, marker, req, res, err, started) })
	}()
	return op
}

func (c *Controller) finishSave(v, marker uint64, req saveRequest, snap Snapshot, err error, started time.Time) {
	op := c.pending[v]
	delete(c.pending, v)
	c.drainInbox()
	c.tel.SaveFinished(req.auto, c.clock.Now().Sub(started), err)

	if err != nil {
		c.guard.errorMode = true
		c.log.Warn("save failed", "version", v, "auto", req.auto, "error", err)
		c.handleError(req.ctx, err)
		c.emit(Event{Kind: EventSaveError, Version: v, Auto: req.auto, Err: err})
	} else {
		// The stored content now carries marker even if newer edits exist.
		c.savedMarker = marker
		if !c.markClean(v) {
			c.log.Debug("saved version superseded", "version", v, "current", c.version.current())
		}
		c.acceptSnapshot(snap)
		c.log.Debug("save finished", "version", v, "auto", req.auto)
		c.emit(Event{Kind: EventSaved, Version: v, Auto: req.auto})
	}

	if op != nil {
		c.finish(op, err)
	}
	c.runQueued()
	c.maybeClose()
}
