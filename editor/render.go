package editor

import (
	"fmt"
	"strings"

	"github.com/iw2rmb/quire/buffer"
	graphemeutil "github.com/iw2rmb/quire/internal/grapheme"
)

func (m *Model) renderContent() string {
	lines := m.buf.Lines()
	if len(lines) == 0 {
		lines = []string{""}
	}
	cursor := m.buf.Cursor()
	sel, selOK := m.buf.Selection()
	if selOK {
		sel = buffer.NormalizeRange(sel)
	}

	digits := 0
	if m.cfg.ShowLineNums {
		digits = gutterDigits(len(lines))
	}

	out := make([]string, 0, len(lines))
	for row, line := range lines {
		var sb strings.Builder
		if m.cfg.ShowLineNums {
			numStyle := m.cfg.Style.LineNum
			if m.focused && row == cursor.Row {
				numStyle = m.cfg.Style.LineNumActive
			}
			sb.WriteString(numStyle.Render(fmt.Sprintf("%*d", digits, row+1)))
			sb.WriteString(m.cfg.Style.Gutter.Render(" "))
		}
		sb.WriteString(m.renderLine(line, row, cursor, sel, selOK))
		out = append(out, sb.String())
	}
	return strings.Join(out, "\n")
}

func (m *Model) renderLine(line string, row int, cursor buffer.Pos, sel buffer.Range, selOK bool) string {
	st := m.cfg.Style
	gs := graphemeutil.Split(line)

	cursorCol := -1
	if m.focused && row == cursor.Row {
		cursorCol = clampInt(cursor.GraphemeCol, 0, len(gs))
	}
	selStart, selEnd, hasSel := selectionCols(sel, selOK, row, len(gs))

	var sb strings.Builder
	for col, g := range gs {
		if g == "\t" {
			g = "    "
		}
		switch {
		case col == cursorCol:
			sb.WriteString(st.Cursor.Render(g))
		case hasSel && col >= selStart && col < selEnd:
			sb.WriteString(st.Selection.Render(g))
		default:
			sb.WriteString(st.Text.Render(g))
		}
	}
	if cursorCol == len(gs) {
		sb.WriteString(st.Cursor.Render(" "))
	}
	return sb.String()
}

// selectionCols returns the selected grapheme span of row, end exclusive.
func selectionCols(sel buffer.Range, ok bool, row, lineLen int) (start, end int, has bool) {
	if !ok || sel.IsEmpty() || row < sel.Start.Row || row > sel.End.Row {
		return 0, 0, false
	}
	start, end = 0, lineLen
	if row == sel.Start.Row {
		start = clampInt(sel.Start.GraphemeCol, 0, lineLen)
	}
	if row == sel.End.Row {
		end = clampInt(sel.End.GraphemeCol, start, lineLen)
	}
	return start, end, start < end
}

func gutterDigits(lineCount int) int {
	d := 1
	for n := max(lineCount, 1); n >= 10; n /= 10 {
		d++
	}
	return d
}
