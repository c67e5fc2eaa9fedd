package editor

import "github.com/iw2rmb/quire/buffer"

// DefaultHistoryLimit bounds undo history for buffers the editor creates.
const DefaultHistoryLimit = 1000

// Config configures the editor Model.
type Config struct {
	// Buffer is edited in place when set. Hosts share it with a document
	// controller. When nil, the editor creates its own buffer from Text.
	Buffer *buffer.Buffer
	Text   string

	ShowLineNums bool
	ReadOnly     bool
	Style        Style

	// KeyMap defaults to DefaultKeyMap when left zero.
	KeyMap       KeyMap
	Clipboard    Clipboard
	ScrollPolicy ScrollPolicy

	// Forwarded to buffer.Options when the editor creates the buffer.
	HistoryLimit int
}

func (c Config) withDefaults() Config {
	if len(c.KeyMap.Left.Keys()) == 0 {
		c.KeyMap = DefaultKeyMap()
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = DefaultHistoryLimit
	}
	return c
}
