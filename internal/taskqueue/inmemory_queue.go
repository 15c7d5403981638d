package taskqueue

import (
	"sync"
	"sync/atomic"
)

// state is the buffer shared by all Senders and the Receiver of one queue.
type state[T any] struct {
	mu      sync.Mutex
	cond    *sync.Cond
	items   []T
	senders int
	closed  bool
}

// Sender is the producing half of a queue. It is safe for concurrent use.
type Sender[T any] struct {
	st     *state[T]
	closed atomic.Bool
}

// Receiver is the consuming half of a queue.
//
// Recv may be called from any goroutine, but the queue only guarantees FIFO
// delivery when a single consumer drains it; use SharedReceiver to enforce
// that.
type Receiver[T any] struct {
	st *state[T]
}

// New creates an unbounded queue and returns its two halves.
func New[T any]() (*Sender[T], *Receiver[T]) {
	st := &state[T]{senders: 1}
	st.cond = sync.NewCond(&st.mu)
	return &Sender[T]{st: st}, &Receiver[T]{st: st}
}

// Send appends v to the queue. It never blocks on the consumer.
func (s *Sender[T]) Send(v T) error {
	if s.closed.Load() {
		return ErrSenderClosed
	}

	st := s.st
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.closed {
		return ErrReceiverClosed
	}
	st.items = append(st.items, v)
	st.cond.Signal()
	return nil
}

// Clone returns a new Sender attached to the same queue. Each clone must be
// closed independently for the Receiver to observe disconnection.
func (s *Sender[T]) Clone() *Sender[T] {
	st := s.st
	st.mu.Lock()
	st.senders++
	st.mu.Unlock()
	return &Sender[T]{st: st}
}

// Close detaches this Sender from the queue. Closing twice is a no-op.
func (s *Sender[T]) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}

	st := s.st
	st.mu.Lock()
	st.senders--
	if st.senders == 0 {
		st.cond.Broadcast()
	}
	st.mu.Unlock()
}

// Recv removes and returns the oldest item, blocking until one is available.
// Once the queue is drained and no Sender remains it returns ErrDisconnected.
func (r *Receiver[T]) Recv() (T, error) {
	st := r.st
	st.mu.Lock()
	defer st.mu.Unlock()

	for len(st.items) == 0 {
		if st.senders == 0 {
			var zero T
			return zero, ErrDisconnected
		}
		st.cond.Wait()
	}
	return st.pop(), nil
}

// TryRecv returns the oldest item without blocking.
func (r *Receiver[T]) TryRecv() (T, bool) {
	st := r.st
	st.mu.Lock()
	defer st.mu.Unlock()

	if len(st.items) == 0 {
		var zero T
		return zero, false
	}
	return st.pop(), true
}

// Len returns the number of buffered items.
func (r *Receiver[T]) Len() int {
	st := r.st
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.items)
}

// Close rejects further sends. Buffered items can still be received.
func (r *Receiver[T]) Close() {
	st := r.st
	st.mu.Lock()
	st.closed = true
	st.mu.Unlock()
}

// pop must be called with mu held and at least one item buffered.
func (st *state[T]) pop() T {
	v := st.items[0]
	var zero T
	st.items[0] = zero
	st.items = st.items[1:]
	if len(st.items) == 0 {
		st.items = nil
	}
	return v
}
