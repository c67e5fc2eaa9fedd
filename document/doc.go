// Package document keeps an editable buffer synchronized with a backing
// store.
//
// A Controller observes buffer changes, tracks a logical version and a dirty
// flag, saves manually or after an autosave delay, detects stale writes via
// the store's modification time and change tag, and exposes a lifecycle state
// (Saved, Dirty, PendingSave, Conflict, Error) plus a stream of Events.
//
// Each Controller runs its own event loop. Controller state is only touched
// from loop tasks; public methods post a task and wait for it. Store I/O and
// autosave timers run off the loop and post their continuation back, so two
// operations never interleave inside the controller. Concurrent saves of the
// same version share one Operation, and at most one write is in flight per
// document.
package document
