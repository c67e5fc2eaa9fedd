package buffer

import (
	"strings"
	"sync"

	"github.com/iw2rmb/quire/internal/grapheme"
)

type Options struct {
	HistoryLimit int // default: 1000
}

type selectionState struct {
	active bool
	anchor Pos
	end    Pos
}

// Buffer is the editable document: text, cursor, selection and undo history.
//
// Version changes on any observable mutation (text, cursor, selection).
// TextVersion changes only when the text does. AlternativeVersion identifies
// the content itself: undoing back to an earlier state restores that state's
// alternative version, so two equal values mean equal content.
type Buffer struct {
	mu       sync.Mutex
	notifyMu sync.Mutex

	lines       [][]string
	version     uint64
	textVersion uint64
	altVersion  uint64
	altSeq      uint64

	cursor Pos
	sel    selectionState

	opt  Options
	hist historyState

	lastChange    Change
	hasLastChange bool

	subs   map[uint64]func(Change)
	subSeq uint64
}

func New(text string, opt Options) *Buffer {
	if opt.HistoryLimit == 0 {
		opt.HistoryLimit = 1000
	}
	return &Buffer{
		lines: splitLines(text),
		opt:   opt,
		subs:  map[uint64]func(Change){},
	}
}

func (b *Buffer) Text() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.text()
}

// Lines returns a copy of the document split into logical lines.
func (b *Buffer) Lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.lines))
	for _, line := range b.lines {
		out = append(out, grapheme.Join(line))
	}
	return out
}

func (b *Buffer) Version() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.version
}

func (b *Buffer) TextVersion() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.textVersion
}

// Content returns the text together with its alternative version, read
// atomically.
func (b *Buffer) Content() (string, uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.text(), b.altVersion
}

func (b *Buffer) AlternativeVersion() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.altVersion
}

func (b *Buffer) Cursor() Pos {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cursor
}

func (b *Buffer) SetCursor(p Pos) {
	b.mu.Lock()
	defer b.mu.Unlock()
	next := b.clampPos(p)
	if next == b.cursor {
		return
	}
	b.cursor = next
	b.version++
}

func (b *Buffer) Selection() (Range, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.selection()
}

func (b *Buffer) SetSelection(r Range) {
	b.mu.Lock()
	defer b.mu.Unlock()

	clamped := ClampRange(r, len(b.lines), b.lineLen)
	next := selectionState{active: true, anchor: clamped.Start, end: clamped.End}
	if NormalizeRange(clamped).IsEmpty() {
		next = selectionState{}
	}

	prevRange, prevOK := b.selection()
	nextRange, nextOK := Range{}, next.active
	if nextOK {
		nextRange = NormalizeRange(clamped)
	}

	b.sel = next
	if prevOK == nextOK && (!prevOK || prevRange == nextRange) {
		return
	}
	b.version++
}

func (b *Buffer) ClearSelection() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.selection(); !ok {
		b.sel = selectionState{}
		return
	}
	b.sel = selectionState{}
	b.version++
}

// SetText replaces the whole document, e.g. with content loaded from a store.
// The replacement is recorded in undo history and reported as ChangeReload.
func (b *Buffer) SetText(text string) {
	b.mutate(func() (Change, bool) {
		if b.text() == text {
			return Change{}, false
		}
		prev := b.snapshot()
		change := b.beginChange(ChangeReload)

		b.lines = splitLines(text)
		b.cursor = b.clampPos(b.cursor)
		b.sel = selectionState{}
		b.touchText()
		b.recordUndo(prev, false)
		if applied, ok := replacementAppliedEdit(prev.text, text); ok {
			change.addAppliedEdit(applied)
		}
		return b.commitChange(change)
	})
}

func (b *Buffer) text() string {
	var sb strings.Builder
	for i, line := range b.lines {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(grapheme.Join(line))
	}
	return sb.String()
}

func (b *Buffer) selection() (Range, bool) {
	if !b.sel.active {
		return Range{}, false
	}
	r := NormalizeRange(Range{Start: b.sel.anchor, End: b.sel.end})
	if r.IsEmpty() {
		return Range{}, false
	}
	return r, true
}

// touchText marks an effective text mutation and assigns fresh content identity.
func (b *Buffer) touchText() {
	b.version++
	b.textVersion++
	b.altSeq++
	b.altVersion = b.altSeq
}

func (b *Buffer) lineLen(row int) int {
	if row < 0 || row >= len(b.lines) {
		return 0
	}
	return len(b.lines[row])
}

func (b *Buffer) clampPos(p Pos) Pos {
	return ClampPos(p, len(b.lines), b.lineLen)
}

func splitLines(text string) [][]string {
	parts := strings.Split(text, "\n")
	lines := make([][]string, 0, len(parts))
	for _, s := range parts {
		lines = append(lines, grapheme.Split(s))
	}
	if len(lines) == 0 {
		lines = append(lines, nil)
	}
	return lines
}
