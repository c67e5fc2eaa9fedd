package document

// conflictGuard holds the two sticky mode flags.
//
// conflictMode suppresses autosave until the next markClean. errorMode is
// set when a save fails and cleared when the next save starts.
type conflictGuard struct {
	conflictMode bool
	errorMode    bool
}

func (g *conflictGuard) allowsAutosave() bool { return !g.conflictMode }
