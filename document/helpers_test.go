package document

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iw2rmb/quire/buffer"
	"github.com/iw2rmb/quire/store/memstore"
)

const testResource = "notes.txt"

type manualClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*manualTimer
}

type manualTimer struct {
	clock   *manualClock
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Unix(0, 0)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{clock: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves time forward and fires due timers in deadline order.
func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*manualTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && !t.at.After(c.now) {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
	for _, t := range due {
		t.f()
	}
}

func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

type fixture struct {
	c     *Controller
	buf   *buffer.Buffer
	store *memstore.Store
	clock *manualClock

	mu     sync.Mutex
	events []Event
	errs   []error
}

type fixtureOption func(*Options)

func withAutosave(delay time.Duration) fixtureOption {
	return func(o *Options) {
		o.Autosave = AutosaveAfterDelay
		o.AutosaveDelay = delay
	}
}

// newFixture stores text, loads it into a fresh controller and starts
// recording events.
func newFixture(t *testing.T, text string, opts ...fixtureOption) *fixture {
	t.Helper()

	f := &fixture{
		buf:   buffer.New("", buffer.Options{}),
		clock: newManualClock(),
	}
	f.store = memstore.New(memstore.Options{Now: f.clock.Now})
	_, err := f.store.Put(testResource, text, "")
	require.NoError(t, err)

	o := DefaultOptions()
	o.Resource = testResource
	o.Clock = f.clock
	o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	o.ErrorHandler = ErrorHandlerFunc(func(_ context.Context, _ *Controller, err error) {
		f.mu.Lock()
		f.errs = append(f.errs, err)
		f.mu.Unlock()
	})
	for _, fn := range opts {
		fn(&o)
	}

	f.c, err = New(f.buf, f.store, o)
	require.NoError(t, err)
	t.Cleanup(f.c.Dispose)

	require.NoError(t, f.c.Load(context.Background(), LoadOptions{}))
	require.Equal(t, text, f.buf.Text())

	f.c.Subscribe(func(e Event) {
		f.mu.Lock()
		f.events = append(f.events, e)
		f.mu.Unlock()
	})
	return f
}

// flush waits until every task queued on the controller loop so far ran.
func (f *fixture) flush(t *testing.T) {
	t.Helper()
	require.NoError(t, f.c.loop.call(context.Background(), func() {}))
}

// onLoop runs fn on the controller loop.
func (f *fixture) onLoop(t *testing.T, fn func()) {
	t.Helper()
	require.NoError(t, f.c.loop.call(context.Background(), fn))
}

func (f *fixture) edit(t *testing.T, s string) {
	t.Helper()
	f.buf.InsertText(s)
	f.flush(t)
}

func (f *fixture) kinds() []EventKind {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]EventKind, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.Kind)
	}
	return out
}

func (f *fixture) handled() []error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]error(nil), f.errs...)
}

func (f *fixture) waitKinds(t *testing.T, want ...EventKind) {
	t.Helper()
	require.Eventually(t, func() bool {
		got := f.kinds()
		if len(got) != len(want) {
			return false
		}
		for i := range got {
			if got[i] != want[i] {
				return false
			}
		}
		return true
	}, time.Second, time.Millisecond, "events=%v, want %v", f.kinds(), want)
}

func (f *fixture) waitWrites(t *testing.T, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return len(f.store.Writes()) == n },
		time.Second, time.Millisecond, "writes=%d, want %d", len(f.store.Writes()), n)
}

func ctxTimeout(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}
