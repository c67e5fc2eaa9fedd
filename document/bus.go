package document

import "sync"

// bus delivers events on its own loop so subscribers may call back into the
// controller.
type bus struct {
	q *loop

	mu     sync.Mutex
	subs   []subscriber
	seq    uint64
	closed bool
}

type subscriber struct {
	id uint64
	fn func(Event)
}

func newBus() *bus {
	return &bus{q: newLoop(nil)}
}

func (b *bus) subscribe(fn func(Event)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return func() {}
	}
	b.seq++
	id := b.seq
	b.subs = append(b.subs, subscriber{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			for i, s := range b.subs {
				if s.id == id {
					b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
					return
				}
			}
		})
	}
}

func (b *bus) emit(e Event) {
	b.q.post(func() {
		b.mu.Lock()
		if b.closed {
			b.mu.Unlock()
			return
		}
		subs := append([]subscriber(nil), b.subs...)
		b.mu.Unlock()

		for _, s := range subs {
			s.fn(e)
		}
	})
}

// close drops undelivered events and stops the dispatcher.
func (b *bus) close() {
	b.mu.Lock()
	b.closed = true
	b.subs = nil
	b.mu.Unlock()
	b.q.close()
}
