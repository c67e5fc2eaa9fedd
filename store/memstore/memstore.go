// Package memstore is an in-memory store.Store for tests, examples and
// scratch documents. Modification times are strictly increasing per store and
// change tags are derived from a write counter.
//
// Test hooks let callers hold writes in flight, inject failures and simulate
// external modification.
package memstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/iw2rmb/quire/internal/textenc"
	"github.com/iw2rmb/quire/store"
)

type Options struct {
	// Now supplies modification times. Default: time.Now.
	Now func() time.Time
}

// WriteCall records one Write invocation.
type WriteCall struct {
	Resource string
	Content  string
	Opts     store.WriteOptions
}

// Store keeps encoded documents in memory.
type Store struct {
	mu      sync.Mutex
	now     func() time.Time
	records map[string]record
	seq     uint64
	last    time.Time

	writes   []WriteCall
	reads    int
	gate     chan struct{}
	writeErr []error
	readErr  []error
}

type record struct {
	data     []byte
	modTime  time.Time
	etag     string
	readonly bool
}

var _ store.Store = (*Store)(nil)

func New(opts Options) *Store {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Store{now: opts.Now, records: map[string]record{}}
}

// Put stores content as if it was written by someone else and returns the
// resulting snapshot.
func (s *Store) Put(resource, content, encoding string) (store.Snapshot, error) {
	data, err := textenc.Encode(content, encoding)
	if err != nil {
		return store.Snapshot{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.records[resource]
	rec.data = data
	rec.modTime = s.tick()
	rec.etag = s.nextETag()
	s.records[resource] = rec
	return snapshotOf(resource, rec), nil
}

// PutAt is Put with an explicit modification time.
func (s *Store) PutAt(resource, content string, modTime time.Time) store.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.records[resource]
	rec.data = []byte(content)
	rec.modTime = modTime
	rec.etag = s.nextETag()
	if modTime.After(s.last) {
		s.last = modTime
	}
	s.records[resource] = rec
	return snapshotOf(resource, rec)
}

// Remove deletes resource.
func (s *Store) Remove(resource string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, resource)
}

func (s *Store) SetReadonly(resource string, readonly bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.records[resource]; ok {
		rec.readonly = readonly
		s.records[resource] = rec
	}
}

// Content returns the decoded stored content.
func (s *Store) Content(resource string) (string, bool) {
	s.mu.Lock()
	rec, ok := s.records[resource]
	s.mu.Unlock()
	if !ok {
		return "", false
	}
	text, _, err := textenc.Decode(rec.data, "")
	if err != nil {
		return "", false
	}
	return text, true
}

// Bytes returns the raw stored bytes.
func (s *Store) Bytes(resource string) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.records[resource].data...)
}

// Hold blocks every subsequent Write until release is called.
func (s *Store) Hold() (release func()) {
	gate := make(chan struct{})
	s.mu.Lock()
	s.gate = gate
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			if s.gate == gate {
				s.gate = nil
			}
			s.mu.Unlock()
			close(gate)
		})
	}
}

// FailWrite makes the next Write return err.
func (s *Store) FailWrite(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeErr = append(s.writeErr, err)
}

// FailRead makes the next Read return err.
func (s *Store) FailRead(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readErr = append(s.readErr, err)
}

// Writes returns the recorded Write calls, including ones still held.
func (s *Store) Writes() []WriteCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]WriteCall(nil), s.writes...)
}

// Reads returns how many times Read was called.
func (s *Store) Reads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

func (s *Store) Read(ctx context.Context, resource string, opts store.ReadOptions) (store.ReadResult, error) {
	if err := ctx.Err(); err != nil {
		return store.ReadResult{}, store.Wrap("read", resource, err)
	}
	s.mu.Lock()
	s.reads++
	if n := len(s.readErr); n > 0 {
		err := s.readErr[0]
		s.readErr = s.readErr[1:]
		s.mu.Unlock()
		return store.ReadResult{}, store.Wrap("read", resource, err)
	}
	rec, ok := s.records[resource]
	s.mu.Unlock()

	if !ok {
		return store.ReadResult{}, store.Wrap("read", resource, store.ErrNotFound)
	}
	if opts.ETag != "" && opts.ETag == rec.etag {
		return store.ReadResult{}, store.Wrap("read", resource, store.ErrNotModified)
	}
	text, enc, err := textenc.Decode(rec.data, opts.Encoding)
	if err != nil {
		return store.ReadResult{}, store.Wrap("read", resource, err)
	}
	return store.ReadResult{Content: text, Encoding: enc, Snapshot: snapshotOf(resource, rec)}, nil
}

func (s *Store) Write(ctx context.Context, resource, content string, opts store.WriteOptions) (store.Snapshot, error) {
	s.mu.Lock()
	s.writes = append(s.writes, WriteCall{Resource: resource, Content: content, Opts: opts})
	gate := s.gate
	s.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return store.Snapshot{}, store.Wrap("write", resource, ctx.Err())
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if n := len(s.writeErr); n > 0 {
		err := s.writeErr[0]
		s.writeErr = s.writeErr[1:]
		return store.Snapshot{}, store.Wrap("write", resource, err)
	}

	rec, exists := s.records[resource]
	if exists {
		if err := store.CheckModifiedSince(snapshotOf(resource, rec), opts); err != nil {
			return store.Snapshot{}, store.Wrap("write", resource, err)
		}
		if rec.readonly && !opts.OverwriteReadonly {
			return store.Snapshot{}, store.Wrap("write", resource, store.ErrReadonly)
		}
	}

	data, err := textenc.Encode(content, opts.Encoding)
	if err != nil {
		return store.Snapshot{}, store.Wrap("write", resource, err)
	}
	rec.data = data
	rec.modTime = s.tick()
	rec.etag = s.nextETag()
	rec.readonly = false
	s.records[resource] = rec
	return snapshotOf(resource, rec), nil
}

// tick returns a modification time strictly after every earlier one.
func (s *Store) tick() time.Time {
	t := s.now()
	if !t.After(s.last) {
		t = s.last.Add(time.Millisecond)
	}
	s.last = t
	return t
}

func (s *Store) nextETag() string {
	s.seq++
	return fmt.Sprintf("m%d", s.seq)
}

func snapshotOf(resource string, rec record) store.Snapshot {
	return store.Snapshot{
		Resource:    resource,
		ModTime:     rec.modTime,
		ETag:        rec.etag,
		ContentKind: "text/plain",
		Size:        int64(len(rec.data)),
	}
}
