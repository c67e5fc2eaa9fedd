// Package editor provides a Bubble Tea text editor component backed by the
// buffer package.
//
// The editor owns input handling, viewport scrolling, and grapheme-aware
// rendering. It never persists anything: hosts pair the shared buffer with a
// document.Controller and drive saves from their own key bindings.
package editor
