package taskqueue

import (
	"sync"
	"sync/atomic"
)

// SharedReceiver lets successive consumers take turns owning a Receiver.
//
// A holder that exits abnormally calls Poison instead of Unlock. Poisoning
// does not lose anything: the next holder gets the same Receiver, with every
// buffered item intact, and is told that it recovered a poisoned lock.
type SharedReceiver[T any] struct {
	mu       sync.Mutex
	rx       *Receiver[T]
	poisoned atomic.Bool
}

// Share wraps rx for exclusive hand-over between consumers.
func Share[T any](rx *Receiver[T]) *SharedReceiver[T] {
	return &SharedReceiver[T]{rx: rx}
}

// Lock blocks until no other consumer holds the receiver. recovered reports
// whether the previous holder poisoned the lock; the poison is cleared.
func (s *SharedReceiver[T]) Lock() (rx *Receiver[T], recovered bool) {
	s.mu.Lock()
	recovered = s.poisoned.Swap(false)
	return s.rx, recovered
}

// Unlock releases the receiver after a normal exit.
func (s *SharedReceiver[T]) Unlock() {
	s.mu.Unlock()
}

// Poison releases the receiver after an abnormal exit.
func (s *SharedReceiver[T]) Poison() {
	s.poisoned.Store(true)
	s.mu.Unlock()
}

// Poisoned reports whether the last holder released the lock by Poison and
// nobody has acquired it since.
func (s *SharedReceiver[T]) Poisoned() bool {
	return s.poisoned.Load()
}
