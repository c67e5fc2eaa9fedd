package document

import (
	"context"
	"sync"
)

// Operation is the completion handle of a save or load. Callers that join
// an in-flight operation share the same handle.
type Operation struct {
	done chan struct{}
	once sync.Once
	err  error
}

func newOperation() *Operation {
	return &Operation{done: make(chan struct{})}
}

func completedOperation(err error) *Operation {
	op := newOperation()
	op.complete(err)
	return op
}

func (o *Operation) complete(err error) {
	o.once.Do(func() {
		o.err = err
		close(o.done)
	})
}

// Done is closed when the operation finished.
func (o *Operation) Done() <-chan struct{} { return o.done }

// Err returns the outcome. It is only meaningful after Done is closed.
func (o *Operation) Err() error {
	select {
	case <-o.done:
		return o.err
	default:
		return nil
	}
}

// Wait blocks until the operation finished or ctx is done.
func (o *Operation) Wait(ctx context.Context) error {
	select {
	case <-o.done:
		return o.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// chain completes dst with the outcome of o.
func (o *Operation) chain(dst *Operation) {
	go func() {
		<-o.done
		dst.complete(o.err)
	}()
}
