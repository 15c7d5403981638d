// Package taskqueue provides the unbounded multi-producer, single-consumer
// queue that feeds raven's background delivery worker.
//
// A queue is created as a pair: a Sender, which may be cloned and used from
// any goroutine, and a Receiver, which is meant to be drained by exactly one
// consumer at a time. SharedReceiver wraps a Receiver in a lock so that
// successive worker generations can hand the consumer side over to each
// other, including after a worker died while holding it.
package taskqueue

import "errors"

var (
	// ErrDisconnected is returned by Recv when the queue is empty and every
	// Sender has been closed.
	ErrDisconnected = errors.New("taskqueue: all senders closed")

	// ErrReceiverClosed is returned by Send once the Receiver was closed.
	ErrReceiverClosed = errors.New("taskqueue: receiver closed")

	// ErrSenderClosed is returned by Send on a Sender that was closed.
	ErrSenderClosed = errors.New("taskqueue: sender closed")
)
