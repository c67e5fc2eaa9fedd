package editor

// Clipboard backs copy, cut and paste. Failures are ignored: the buffer is
// left unchanged and the UI keeps running.
type Clipboard interface {
	ReadText() (string, error)
	WriteText(s string) error
}
