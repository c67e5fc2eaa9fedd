package document

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoop_RunsTasksInOrder(t *testing.T) {
	var afters int
	l := newLoop(func() { afters++ })

	var got []int
	for i := range 100 {
		require.True(t, l.post(func() { got = append(got, i) }))
	}
	var seen int
	require.NoError(t, l.call(context.Background(), func() { seen = afters }))

	require.Len(t, got, 100)
	for i, v := range got {
		require.Equal(t, i, v)
	}
	assert.Equal(t, 100, seen)
}

func TestLoop_PostFromTask(t *testing.T) {
	l := newLoop(nil)
	done := make(chan struct{})
	l.post(func() {
		l.post(func() { close(done) })
	})
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("nested task did not run")
	}
}

func TestLoop_CloseDrainsQueued(t *testing.T) {
	l := newLoop(nil)
	var mu sync.Mutex
	ran := 0
	start := make(chan struct{})
	l.post(func() {
		<-start
		l.close()
		mu.Lock()
		ran++
		mu.Unlock()
	})
	l.post(func() {
		mu.Lock()
		ran++
		mu.Unlock()
	})
	close(start)

	select {
	case <-l.Done():
	case <-time.After(time.Second):
		t.Fatal("loop did not exit")
	}
	mu.Lock()
	assert.Equal(t, 2, ran)
	mu.Unlock()

	assert.False(t, l.post(func() {}))
	assert.ErrorIs(t, l.call(context.Background(), func() {}), ErrDisposed)
}

func TestLoop_CallHonorsContext(t *testing.T) {
	l := newLoop(nil)
	block := make(chan struct{})
	l.post(func() { <-block })
	defer close(block)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, l.call(ctx, func() {}), context.DeadlineExceeded)
}

func TestOperation(t *testing.T) {
	op := newOperation()
	assert.NoError(t, op.Err())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, op.Wait(ctx), context.Canceled)

	dst := newOperation()
	op.chain(dst)
	op.complete(ErrConflict)
	op.complete(nil)

	require.ErrorIs(t, dst.Wait(context.Background()), ErrConflict)
	assert.ErrorIs(t, op.Err(), ErrConflict)
	assert.NoError(t, completedOperation(nil).Wait(context.Background()))
}

func TestDirtyState(t *testing.T) {
	var d dirtyState

	assert.True(t, d.markDirty())
	assert.False(t, d.markDirty(), "already dirty")

	assert.False(t, d.markClean(3, 4), "superseded")
	assert.True(t, d.dirty)

	assert.True(t, d.markClean(4, 4))
	assert.False(t, d.dirty)
	assert.Equal(t, uint64(4), d.lastClean)
}

func TestDirtySnapshotRestore(t *testing.T) {
	c := &Controller{}
	c.dirty = dirtyState{dirty: true, lastClean: 7}
	c.guard = conflictGuard{conflictMode: true, errorMode: true}

	snap := c.saveDirtyState()
	c.dirty = dirtyState{}
	c.guard = conflictGuard{}

	c.restoreDirtyState(snap)
	assert.Equal(t, dirtyState{dirty: true, lastClean: 7}, c.dirty)
	assert.Equal(t, conflictGuard{conflictMode: true, errorMode: true}, c.guard)
}

func TestVersionTracker(t *testing.T) {
	var v versionTracker
	assert.Equal(t, uint64(0), v.current())
	assert.Equal(t, uint64(1), v.advance())
	assert.Equal(t, uint64(2), v.advance())
	assert.Equal(t, uint64(2), v.current())
}

func TestBus_DeliversInOrderAndStopsOnClose(t *testing.T) {
	b := newBus()
	var mu sync.Mutex
	var got []EventKind
	unsub := b.subscribe(func(e Event) {
		mu.Lock()
		got = append(got, e.Kind)
		mu.Unlock()
	})
	other := 0
	b.subscribe(func(Event) {
		mu.Lock()
		other++
		mu.Unlock()
	})

	b.emit(Event{Kind: EventDirty})
	b.emit(Event{Kind: EventSaved})
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2
	}, time.Second, time.Millisecond)

	unsub()
	unsub()
	b.emit(Event{Kind: EventReverted})
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return other == 3
	}, time.Second, time.Millisecond)
	b.close()
	b.emit(Event{Kind: EventSaveError})
	<-b.q.Done()

	mu.Lock()
	assert.Equal(t, []EventKind{EventDirty, EventSaved}, got)
	assert.Equal(t, 3, other)
	mu.Unlock()
}
