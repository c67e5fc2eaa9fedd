package document

type dirtyState struct {
	dirty     bool
	lastClean uint64
}

// markDirty reports whether this was a Clean to Dirty transition.
func (d *dirtyState) markDirty() bool {
	if d.dirty {
		return false
	}
	d.dirty = true
	return true
}

// markClean clears dirty only when at is still the current version; a newer
// edit otherwise wins.
func (d *dirtyState) markClean(at, current uint64) bool {
	if at != current {
		return false
	}
	d.dirty = false
	d.lastClean = at
	return true
}

// dirtySnapshot captures everything an optimistic revert may have to roll
// back.
type dirtySnapshot struct {
	dirty        bool
	conflictMode bool
	errorMode    bool
	lastClean    uint64
}

func (c *Controller) saveDirtyState() dirtySnapshot {
	return dirtySnapshot{
		dirty:        c.dirty.dirty,
		conflictMode: c.guard.conflictMode,
		errorMode:    c.guard.errorMode,
		lastClean:    c.dirty.lastClean,
	}
}

func (c *Controller) restoreDirtyState(s dirtySnapshot) {
	c.dirty.dirty = s.dirty
	c.dirty.lastClean = s.lastClean
	c.guard.conflictMode = s.conflictMode
	c.guard.errorMode = s.errorMode
}

func (c *Controller) markDirty() {
	if c.dirty.markDirty() {
		c.log.Debug("document dirty", "version", c.version.current())
		c.emit(Event{Kind: EventDirty, Version: c.version.current()})
	}
}

// markClean marks version at as persisted. It also leaves conflict mode.
func (c *Controller) markClean(at uint64) bool {
	if !c.dirty.markClean(at, c.version.current()) {
		return false
	}
	c.guard.conflictMode = false
	return true
}
