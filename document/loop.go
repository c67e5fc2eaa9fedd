package document

import (
	"context"
	"sync"
)

// loop runs posted tasks one at a time, in order, on a single goroutine.
// The queue is unbounded so post never blocks; it is safe to post from
// inside a task.
type loop struct {
	mu     sync.Mutex
	tasks  []func()
	closed bool
	wake   chan struct{}
	done   chan struct{}

	// after runs on the loop goroutine after every task.
	after func()
}

func newLoop(after func()) *loop {
	l := &loop{
		wake:  make(chan struct{}, 1),
		done:  make(chan struct{}),
		after: after,
	}
	go l.run()
	return l
}

// post enqueues fn. It reports false once the loop is closed.
func (l *loop) post(fn func()) bool {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return false
	}
	l.tasks = append(l.tasks, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// call runs fn on the loop and waits for it. It returns ErrDisposed when the
// loop is closed and ctx.Err() when the caller gives up first; fn still runs
// in that case.
func (l *loop) call(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	if !l.post(func() {
		defer close(done)
		fn()
	}) {
		return ErrDisposed
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// close stops accepting tasks. Tasks already queued still run, then the
// loop goroutine exits.
func (l *loop) close() {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Done is closed when the loop goroutine has exited.
func (l *loop) Done() <-chan struct{} { return l.done }

func (l *loop) run() {
	defer close(l.done)
	for {
		l.mu.Lock()
		if len(l.tasks) == 0 {
			closed := l.closed
			l.mu.Unlock()
			if closed {
				return
			}
			<-l.wake
			continue
		}
		fn := l.tasks[0]
		l.tasks[0] = nil
		l.tasks = l.tasks[1:]
		l.mu.Unlock()

		fn()
		if l.after != nil {
			l.after()
		}
	}
}
