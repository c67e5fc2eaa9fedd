package editor

// ScrollPolicy controls whether the viewport may move without the cursor.
type ScrollPolicy int

const (
	// ScrollAllowManual lets the mouse wheel scroll the viewport.
	ScrollAllowManual ScrollPolicy = iota
	// ScrollFollowCursorOnly ignores mouse input; only cursor moves scroll.
	ScrollFollowCursorOnly
)
