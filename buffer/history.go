package buffer

type bufferSnapshot struct {
	text   string
	cursor Pos
	sel    selectionState
	alt    uint64
}

type historyState struct {
	undo []bufferSnapshot
	redo []bufferSnapshot

	// open means the newest undo entry still absorbs consecutive typing.
	open bool
}

func (b *Buffer) snapshot() bufferSnapshot {
	return bufferSnapshot{
		text:   b.text(),
		cursor: b.cursor,
		sel:    b.sel,
		alt:    b.altVersion,
	}
}

func (b *Buffer) restore(s bufferSnapshot) {
	b.lines = splitLines(s.text)
	b.cursor = b.clampPos(s.cursor)
	b.altVersion = s.alt

	if !s.sel.active {
		b.sel = selectionState{}
		return
	}
	anchor := b.clampPos(s.sel.anchor)
	end := b.clampPos(s.sel.end)
	if NormalizeRange(Range{Start: anchor, End: end}).IsEmpty() {
		b.sel = selectionState{}
		return
	}
	b.sel = selectionState{active: true, anchor: anchor, end: end}
}

// recordUndo pushes prev as an undo stop. With coalesce set, consecutive
// typing folds into the open entry until the next Checkpoint.
func (b *Buffer) recordUndo(prev bufferSnapshot, coalesce bool) {
	b.hist.redo = nil
	if coalesce && b.hist.open {
		return
	}
	b.hist.open = coalesce

	limit := b.opt.HistoryLimit
	if limit <= 0 {
		return
	}
	b.hist.undo = append(b.hist.undo, prev)
	if len(b.hist.undo) > limit {
		b.hist.undo = b.hist.undo[len(b.hist.undo)-limit:]
	}
}

// Checkpoint closes the current undo group so that the present content is
// reachable again by undo.
func (b *Buffer) Checkpoint() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hist.open = false
}

func (b *Buffer) CanUndo() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.hist.undo) > 0
}

func (b *Buffer) CanRedo() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.hist.redo) > 0
}

func (b *Buffer) Undo() bool {
	undone := false
	b.mutate(func() (Change, bool) {
		if len(b.hist.undo) == 0 {
			return Change{}, false
		}
		cur := b.snapshot()
		change := b.beginChange(ChangeUndo)

		i := len(b.hist.undo) - 1
		prev := b.hist.undo[i]
		b.hist.undo = b.hist.undo[:i]
		b.hist.redo = append(b.hist.redo, cur)
		b.hist.open = false

		b.restore(prev)
		b.version++
		b.textVersion++
		undone = true
		if applied, ok := replacementAppliedEdit(cur.text, prev.text); ok {
			change.addAppliedEdit(applied)
		}
		return b.commitChange(change)
	})
	return undone
}

func (b *Buffer) Redo() bool {
	redone := false
	b.mutate(func() (Change, bool) {
		if len(b.hist.redo) == 0 {
			return Change{}, false
		}
		cur := b.snapshot()
		change := b.beginChange(ChangeRedo)

		i := len(b.hist.redo) - 1
		next := b.hist.redo[i]
		b.hist.redo = b.hist.redo[:i]
		b.hist.open = false

		if limit := b.opt.HistoryLimit; limit > 0 {
			b.hist.undo = append(b.hist.undo, cur)
			if len(b.hist.undo) > limit {
				b.hist.undo = b.hist.undo[len(b.hist.undo)-limit:]
			}
		}

		b.restore(next)
		b.version++
		b.textVersion++
		redone = true
		if applied, ok := replacementAppliedEdit(cur.text, next.text); ok {
			change.addAppliedEdit(applied)
		}
		return b.commitChange(change)
	})
	return redone
}
