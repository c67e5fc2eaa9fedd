package document

import (
	"context"
	"time"
)

// autosaveState is either idle or AutosavePending(version, deadline). seq
// invalidates timers that fire after being superseded.
type autosaveState struct {
	mode  AutosaveMode
	delay time.Duration

	timer    Timer
	seq      uint64
	version  uint64
	deadline time.Time
}

func (a *autosaveState) armed() bool { return a.timer != nil }

// scheduleAutosave replaces any pending autosave with one for v.
func (c *Controller) scheduleAutosave(v uint64) {
	if c.autosave.mode != AutosaveAfterDelay || !c.guard.allowsAutosave() || c.disposed {
		return
	}
	c.cancelAutosave()

	seq := c.autosave.seq
	c.autosave.version = v
	c.autosave.deadline = c.clock.Now().Add(c.autosave.delay)
	c.autosave.timer = c.clock.AfterFunc(c.autosave.delay, func() {
		c.loop.post(func() { c.autosaveFired(seq, v) })
	})
}

// cancelAutosave has no effect beyond dropping the pending timer.
func (c *Controller) cancelAutosave() {
	if c.autosave.timer != nil {
		c.autosave.timer.Stop()
		c.autosave.timer = nil
	}
	c.autosave.seq++
}

func (c *Controller) autosaveFired(seq, v uint64) {
	if seq != c.autosave.seq {
		return
	}
	c.autosave.timer = nil
	if v != c.version.current() {
		return
	}
	c.attemptSave(v, saveRequest{ctx: context.Background(), auto: true})
}
