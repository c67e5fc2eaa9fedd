// Package buffer implements the editable document model that a
// document.Controller keeps in sync with its backing store.
//
// Coordinates are 0-based (Row, GraphemeCol) in grapheme clusters.
// Ranges are half-open selections in document coordinates: [Start, End).
//
// Every effective text mutation bumps TextVersion, produces a Change and is
// delivered to subscribers after the buffer lock is released. A Buffer is
// safe for concurrent use.
package buffer
