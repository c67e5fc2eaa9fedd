package buffer

import "testing"

func TestBuffer_InsertText_MultiLine(t *testing.T) {
	b := New("ab", Options{})
	b.SetCursor(Pos{Row: 0, GraphemeCol: 1})
	tv := b.TextVersion()

	b.InsertText("X\nY")
	if got, want := b.Text(), "aX\nYb"; got != want {
		t.Fatalf("text=%q, want %q", got, want)
	}
	if got, want := b.Cursor(), (Pos{Row: 1, GraphemeCol: 1}); got != want {
		t.Fatalf("cursor=%v, want %v", got, want)
	}
	if got := b.TextVersion(); got != tv+1 {
		t.Fatalf("text version=%d, want %d", got, tv+1)
	}
}

func TestBuffer_InsertText_ReplacesSelection(t *testing.T) {
	b := New("hello", Options{})
	b.SetSelection(Range{Start: Pos{Row: 0, GraphemeCol: 1}, End: Pos{Row: 0, GraphemeCol: 4}})

	b.InsertText("i")
	if got, want := b.Text(), "hio"; got != want {
		t.Fatalf("text=%q, want %q", got, want)
	}
	if _, ok := b.Selection(); ok {
		t.Fatalf("expected selection cleared")
	}
}

func TestBuffer_DeleteBackward_JoinsLinesAtSOL(t *testing.T) {
	b := New("ab\ncd", Options{})
	b.SetCursor(Pos{Row: 1, GraphemeCol: 0})

	b.DeleteBackward()
	if got, want := b.Text(), "abcd"; got != want {
		t.Fatalf("text=%q, want %q", got, want)
	}
	if got, want := b.Cursor(), (Pos{Row: 0, GraphemeCol: 2}); got != want {
		t.Fatalf("cursor=%v, want %v", got, want)
	}
}

func TestBuffer_DeleteForward_JoinsLinesAtEOL(t *testing.T) {
	b := New("ab\ncd", Options{})
	b.SetCursor(Pos{Row: 0, GraphemeCol: 2})

	b.DeleteForward()
	if got, want := b.Text(), "abcd"; got != want {
		t.Fatalf("text=%q, want %q", got, want)
	}
}

func TestBuffer_Delete_NoOpsDoNotBumpVersion(t *testing.T) {
	b := New("ab", Options{})
	tv, alt := b.TextVersion(), b.AlternativeVersion()

	b.DeleteBackward()
	b.SetCursor(Pos{Row: 0, GraphemeCol: 2})
	b.DeleteForward()
	b.DeleteSelection()

	if got := b.TextVersion(); got != tv {
		t.Fatalf("text version=%d, want %d", got, tv)
	}
	if got := b.AlternativeVersion(); got != alt {
		t.Fatalf("alternative version=%d, want %d", got, alt)
	}
}

func TestBuffer_DeleteBackward_RemovesWholeGraphemeCluster(t *testing.T) {
	b := New("xé", Options{})
	b.SetCursor(Pos{Row: 0, GraphemeCol: 2})

	b.DeleteBackward()
	if got, want := b.Text(), "x"; got != want {
		t.Fatalf("text=%q, want %q", got, want)
	}
}

func TestBuffer_Apply_SequentialAgainstEvolvingState(t *testing.T) {
	b := New("abc", Options{})
	b.Apply(
		TextEdit{Range: Range{Start: Pos{Row: 0, GraphemeCol: 0}, End: Pos{Row: 0, GraphemeCol: 1}}, Text: "X"},
		TextEdit{Range: Range{Start: Pos{Row: 0, GraphemeCol: 3}, End: Pos{Row: 0, GraphemeCol: 3}}, Text: "\nZ"},
	)
	if got, want := b.Text(), "Xbc\nZ"; got != want {
		t.Fatalf("text=%q, want %q", got, want)
	}
	if ok := b.Undo(); !ok {
		t.Fatalf("expected Undo=true")
	}
	if got, want := b.Text(), "abc"; got != want {
		t.Fatalf("after undo text=%q, want %q", got, want)
	}
}

func TestBuffer_SetText_ReplacesDocument(t *testing.T) {
	b := New("old", Options{})
	tv := b.TextVersion()

	b.SetText("new\ncontent")
	if got, want := b.Text(), "new\ncontent"; got != want {
		t.Fatalf("text=%q, want %q", got, want)
	}
	if got := b.TextVersion(); got != tv+1 {
		t.Fatalf("text version=%d, want %d", got, tv+1)
	}

	b.SetText("new\ncontent")
	if got := b.TextVersion(); got != tv+1 {
		t.Fatalf("identical SetText bumped text version to %d", got)
	}
}
