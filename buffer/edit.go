package buffer

import (
	"strings"

	"github.com/iw2rmb/quire/internal/grapheme"
)

// InsertText inserts text at the cursor, or replaces the active selection.
// Single-grapheme insertions without a selection coalesce into one undo step.
func (b *Buffer) InsertText(s string) {
	b.mutate(func() (Change, bool) {
		r, hasSel := b.selection()
		if s == "" && !hasSel {
			return Change{}, false
		}
		if !hasSel {
			r = Range{Start: b.cursor, End: b.cursor}
		}
		typing := !hasSel && s != "\n" && grapheme.Count(s) == 1
		return b.replace(r, s, typing)
	})
}

// InsertGrapheme inserts a single grapheme cluster at the cursor, or replaces
// the active selection.
func (b *Buffer) InsertGrapheme(g string) {
	if g == "" {
		return
	}
	b.InsertText(g)
}

// InsertNewline inserts a line break at the cursor, or replaces the active
// selection.
func (b *Buffer) InsertNewline() {
	b.InsertText("\n")
}

// DeleteBackward applies backspace semantics.
func (b *Buffer) DeleteBackward() {
	b.mutate(func() (Change, bool) {
		if r, ok := b.selection(); ok {
			return b.replace(r, "", false)
		}
		row, col := b.cursor.Row, b.cursor.GraphemeCol
		switch {
		case row == 0 && col == 0:
			return Change{}, false
		case col > 0:
			return b.replace(Range{Start: Pos{Row: row, GraphemeCol: col - 1}, End: b.cursor}, "", false)
		default:
			// Join with previous line.
			start := Pos{Row: row - 1, GraphemeCol: len(b.lines[row-1])}
			return b.replace(Range{Start: start, End: b.cursor}, "", false)
		}
	})
}

// DeleteForward applies delete-key semantics.
func (b *Buffer) DeleteForward() {
	b.mutate(func() (Change, bool) {
		if r, ok := b.selection(); ok {
			return b.replace(r, "", false)
		}
		row, col := b.cursor.Row, b.cursor.GraphemeCol
		lastRow := len(b.lines) - 1
		switch {
		case row == lastRow && col == len(b.lines[lastRow]):
			return Change{}, false
		case col < len(b.lines[row]):
			return b.replace(Range{Start: b.cursor, End: Pos{Row: row, GraphemeCol: col + 1}}, "", false)
		default:
			// Join with next line.
			return b.replace(Range{Start: b.cursor, End: Pos{Row: row + 1, GraphemeCol: 0}}, "", false)
		}
	})
}

// DeleteSelection deletes the active selection, if any.
func (b *Buffer) DeleteSelection() {
	b.mutate(func() (Change, bool) {
		r, ok := b.selection()
		if !ok {
			return Change{}, false
		}
		return b.replace(r, "", false)
	})
}

// Apply applies a sequence of text edits in order as one undo step. Each
// edit's range is interpreted against the buffer state at the time that edit
// is applied; ranges are clamped into document bounds.
func (b *Buffer) Apply(edits ...TextEdit) {
	if len(edits) == 0 {
		return
	}
	b.mutate(func() (Change, bool) {
		prev := b.snapshot()
		change := b.beginChange(ChangeEdit)

		anyChanged := false
		lastCursor := b.cursor
		for _, e := range edits {
			nextCursor, applied, changed := b.replaceRange(e.Range, e.Text)
			if !changed {
				continue
			}
			anyChanged = true
			lastCursor = nextCursor
			change.addAppliedEdit(applied)
		}
		if !anyChanged {
			return Change{}, false
		}

		b.cursor = b.clampPos(lastCursor)
		b.sel = selectionState{}
		b.touchText()
		b.recordUndo(prev, false)
		return b.commitChange(change)
	})
}

func (b *Buffer) replace(r Range, text string, coalesce bool) (Change, bool) {
	prev := b.snapshot()
	change := b.beginChange(ChangeEdit)

	nextCursor, applied, changed := b.replaceRange(r, text)
	if !changed {
		return Change{}, false
	}
	b.cursor = nextCursor
	b.sel = selectionState{}
	b.touchText()
	b.recordUndo(prev, coalesce)
	change.addAppliedEdit(applied)
	return b.commitChange(change)
}

func (b *Buffer) replaceRange(r Range, text string) (nextCursor Pos, applied AppliedEdit, changed bool) {
	r = NormalizeRange(ClampRange(r, len(b.lines), b.lineLen))
	if r.IsEmpty() && text == "" {
		return b.cursor, AppliedEdit{}, false
	}

	startRow, startCol := r.Start.Row, r.Start.GraphemeCol
	endRow, endCol := r.End.Row, r.End.GraphemeCol
	deletedText := textForLinesRange(b.lines, r)
	if deletedText == text {
		return b.cursor, AppliedEdit{}, false
	}

	prefix := append([]string(nil), b.lines[startRow][:startCol]...)
	suffix := append([]string(nil), b.lines[endRow][endCol:]...)

	parts := strings.Split(text, "\n")
	ins := make([][]string, 0, len(parts))
	for _, p := range parts {
		ins = append(ins, grapheme.Split(p))
	}

	repl := make([][]string, 0, len(ins))
	if len(ins) == 1 {
		line := make([]string, 0, len(prefix)+len(ins[0])+len(suffix))
		line = append(line, prefix...)
		line = append(line, ins[0]...)
		line = append(line, suffix...)
		repl = append(repl, line)
		nextCursor = Pos{Row: startRow, GraphemeCol: len(prefix) + len(ins[0])}
	} else {
		repl = append(repl, append(prefix, ins[0]...))
		for i := 1; i < len(ins)-1; i++ {
			repl = append(repl, append([]string(nil), ins[i]...))
		}
		lastPart := ins[len(ins)-1]
		repl = append(repl, append(append([]string(nil), lastPart...), suffix...))
		nextCursor = Pos{Row: startRow + len(ins) - 1, GraphemeCol: len(lastPart)}
	}

	out := make([][]string, 0, len(b.lines)-(endRow-startRow)+len(repl))
	out = append(out, b.lines[:startRow]...)
	out = append(out, repl...)
	out = append(out, b.lines[endRow+1:]...)

	b.lines = out
	applied = AppliedEdit{
		RangeBefore: r,
		RangeAfter:  Range{Start: r.Start, End: nextCursor},
		InsertText:  text,
		DeletedText: deletedText,
	}
	return nextCursor, applied, true
}

func textForLinesRange(lines [][]string, r Range) string {
	r = NormalizeRange(r)
	if r.IsEmpty() {
		return ""
	}
	if r.Start.Row == r.End.Row {
		return grapheme.Join(lines[r.Start.Row][r.Start.GraphemeCol:r.End.GraphemeCol])
	}

	var sb strings.Builder
	for row := r.Start.Row; row <= r.End.Row; row++ {
		if row > r.Start.Row {
			sb.WriteByte('\n')
		}
		from, to := 0, len(lines[row])
		if row == r.Start.Row {
			from = r.Start.GraphemeCol
		}
		if row == r.End.Row {
			to = r.End.GraphemeCol
		}
		sb.WriteString(grapheme.Join(lines[row][from:to]))
	}
	return sb.String()
}
