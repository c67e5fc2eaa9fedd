package document

// backingState holds the last known store snapshot.
type backingState struct {
	snap Snapshot
	set  bool
}

// accept stores s unless it is older than the held snapshot. The first
// snapshot is always accepted.
func (b *backingState) accept(s Snapshot) bool {
	if b.set && s.ModTime.Before(b.snap.ModTime) {
		return false
	}
	b.snap = s
	b.set = true
	return true
}

func (c *Controller) acceptSnapshot(s Snapshot) {
	if !c.backing.accept(s) {
		c.log.Debug("stale snapshot ignored",
			"mod_time", s.ModTime,
			"held_mod_time", c.backing.snap.ModTime,
		)
	}
}
