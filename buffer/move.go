package buffer

type MoveUnit int

const (
	MoveGrapheme MoveUnit = iota
	MoveLine
	MoveDoc
)

type MoveDir int

const (
	DirLeft MoveDir = iota
	DirRight
	DirUp
	DirDown
	DirHome // line start (or doc start for MoveDoc)
	DirEnd  // line end (or doc end for MoveDoc)
)

type Move struct {
	Unit   MoveUnit
	Dir    MoveDir
	Extend bool // if true, updates selection anchor/end; if false clears selection
}

// Move moves the cursor. Cursor and selection moves bump Version but never
// TextVersion and never produce a Change.
func (b *Buffer) Move(m Move) {
	b.mu.Lock()
	defer b.mu.Unlock()

	prevCursor := b.cursor
	prevSel := b.sel
	nextCursor := b.clampPos(b.moveCursor(prevCursor, m))

	nextSel := selectionState{}
	if m.Extend {
		anchor := prevCursor
		if prevSel.active && prevSel.anchor != prevSel.end {
			anchor = prevSel.anchor
		}
		if anchor != nextCursor {
			nextSel = selectionState{active: true, anchor: anchor, end: nextCursor}
		}
	}

	if prevCursor == nextCursor && prevSel == nextSel {
		return
	}
	b.cursor = nextCursor
	b.sel = nextSel
	b.version++
}

func (b *Buffer) moveCursor(p Pos, m Move) Pos {
	row, col := p.Row, p.GraphemeCol
	lastRow := len(b.lines) - 1

	switch {
	case m.Unit == MoveDoc && (m.Dir == DirHome || m.Dir == DirUp):
		return Pos{}
	case m.Unit == MoveDoc && (m.Dir == DirEnd || m.Dir == DirDown):
		return Pos{Row: lastRow, GraphemeCol: len(b.lines[lastRow])}
	case m.Dir == DirHome:
		return Pos{Row: row}
	case m.Dir == DirEnd:
		return Pos{Row: row, GraphemeCol: len(b.lines[row])}
	case m.Dir == DirUp && row > 0:
		return Pos{Row: row - 1, GraphemeCol: min(col, len(b.lines[row-1]))}
	case m.Dir == DirDown && row < lastRow:
		return Pos{Row: row + 1, GraphemeCol: min(col, len(b.lines[row+1]))}
	case m.Unit == MoveGrapheme && m.Dir == DirLeft:
		if col > 0 {
			return Pos{Row: row, GraphemeCol: col - 1}
		}
		if row > 0 {
			return Pos{Row: row - 1, GraphemeCol: len(b.lines[row-1])}
		}
	case m.Unit == MoveGrapheme && m.Dir == DirRight:
		if col < len(b.lines[row]) {
			return Pos{Row: row, GraphemeCol: col + 1}
		}
		if row < lastRow {
			return Pos{Row: row + 1}
		}
	}
	return p
}
