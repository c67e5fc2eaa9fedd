package buffer

// ChangeKind identifies what produced a change.
type ChangeKind uint8

const (
	ChangeEdit ChangeKind = iota
	ChangeUndo
	ChangeRedo
	// ChangeReload is a whole-document replacement via SetText.
	ChangeReload
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeEdit:
		return "edit"
	case ChangeUndo:
		return "undo"
	case ChangeRedo:
		return "redo"
	case ChangeReload:
		return "reload"
	default:
		return "unknown"
	}
}

// SelectionState captures normalized selection state at a point in time.
type SelectionState struct {
	Active bool
	Range  Range
}

// AppliedEdit describes one effective edit in a change transaction.
type AppliedEdit struct {
	RangeBefore Range
	RangeAfter  Range
	InsertText  string
	DeletedText string
}

// Change is a normalized, versioned text mutation payload.
//
// VersionBefore/VersionAfter are text versions. AlternativeVersion is the
// content identity after the change.
type Change struct {
	Kind               ChangeKind
	VersionBefore      uint64
	VersionAfter       uint64
	AlternativeVersion uint64
	CursorBefore       Pos
	CursorAfter        Pos
	SelectionBefore    SelectionState
	SelectionAfter     SelectionState
	AppliedEdits       []AppliedEdit
}

type changeBuilder struct {
	kind            ChangeKind
	versionBefore   uint64
	cursorBefore    Pos
	selectionBefore SelectionState
	appliedEdits    []AppliedEdit
}

// LastChange returns the most recent effective change.
func (b *Buffer) LastChange() (Change, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.hasLastChange {
		return Change{}, false
	}
	return cloneChange(b.lastChange), true
}

// Subscribe registers fn for every effective text change. Callbacks run on
// the mutating goroutine, in mutation order, after the buffer lock has been
// released; they may read the buffer but must not mutate it.
func (b *Buffer) Subscribe(fn func(Change)) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}
	b.mu.Lock()
	b.subSeq++
	id := b.subSeq
	b.subs[id] = fn
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

// mutate runs fn under the buffer lock and delivers the resulting change.
func (b *Buffer) mutate(fn func() (Change, bool)) {
	b.notifyMu.Lock()
	defer b.notifyMu.Unlock()

	b.mu.Lock()
	change, ok := fn()
	var subs []func(Change)
	if ok {
		subs = make([]func(Change), 0, len(b.subs))
		for _, s := range b.subs {
			subs = append(subs, s)
		}
	}
	b.mu.Unlock()

	for _, s := range subs {
		s(cloneChange(change))
	}
}

func cloneChange(in Change) Change {
	out := in
	out.AppliedEdits = append([]AppliedEdit(nil), in.AppliedEdits...)
	return out
}

func selectionStateFromInternal(sel selectionState) SelectionState {
	if !sel.active {
		return SelectionState{}
	}
	r := NormalizeRange(Range{Start: sel.anchor, End: sel.end})
	if r.IsEmpty() {
		return SelectionState{}
	}
	return SelectionState{Active: true, Range: r}
}

func (b *Buffer) beginChange(kind ChangeKind) changeBuilder {
	return changeBuilder{
		kind:            kind,
		versionBefore:   b.textVersion,
		cursorBefore:    b.cursor,
		selectionBefore: selectionStateFromInternal(b.sel),
	}
}

func (cb *changeBuilder) addAppliedEdit(edit AppliedEdit) {
	edit.RangeBefore = NormalizeRange(edit.RangeBefore)
	edit.RangeAfter = NormalizeRange(edit.RangeAfter)
	cb.appliedEdits = append(cb.appliedEdits, edit)
}

func (b *Buffer) commitChange(cb changeBuilder) (Change, bool) {
	if b.textVersion == cb.versionBefore {
		return Change{}, false
	}
	b.lastChange = Change{
		Kind:               cb.kind,
		VersionBefore:      cb.versionBefore,
		VersionAfter:       b.textVersion,
		AlternativeVersion: b.altVersion,
		CursorBefore:       cb.cursorBefore,
		CursorAfter:        b.cursor,
		SelectionBefore:    cb.selectionBefore,
		SelectionAfter:     selectionStateFromInternal(b.sel),
		AppliedEdits:       append([]AppliedEdit(nil), cb.appliedEdits...),
	}
	b.hasLastChange = true
	return cloneChange(b.lastChange), true
}

func replacementAppliedEdit(beforeText, afterText string) (AppliedEdit, bool) {
	if beforeText == afterText {
		return AppliedEdit{}, false
	}
	return AppliedEdit{
		RangeBefore: fullDocumentRange(beforeText),
		RangeAfter:  fullDocumentRange(afterText),
		InsertText:  afterText,
		DeletedText: beforeText,
	}, true
}

func fullDocumentRange(text string) Range {
	lines := splitLines(text)
	lastRow := len(lines) - 1
	return Range{
		Start: Pos{Row: 0, GraphemeCol: 0},
		End:   Pos{Row: lastRow, GraphemeCol: len(lines[lastRow])},
	}
}
