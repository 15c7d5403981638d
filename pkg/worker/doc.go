// Package worker provides the self-healing background worker that raven uses
// to deliver events off the caller's goroutine.
//
// A SingleWorker owns an unbounded queue, a processing function and an
// immutable parameter value shared by every invocation of that function.
// Exactly one worker goroutine consumes the queue at any time.
//
// # Supervision
//
// The worker follows a one-for-one, lazy restart strategy:
//
//   - New spawns the first worker goroutine and waits for it to report
//     itself alive, so the first Submit never has to respawn.
//   - If the processing function panics, the panic is recovered at the
//     worker boundary, the liveness flag is cleared and the goroutine exits.
//     Nothing is restarted eagerly.
//   - The next Submit sees the cleared flag, spawns a replacement, waits for
//     its handshake and then enqueues.
//
// No goroutine exists while the worker is idle after a failure, at the cost
// of a short window in which a submission racing a dying worker may sit in
// the queue until the following Submit, or be processed by either
// generation.
//
// # Queue hand-over
//
// The consumer side of the queue is guarded by a lock. A worker that dies
// while holding it poisons the lock; the next worker recovers it and keeps
// every buffered item.
//
// # Guarantees
//
//   - Processing on one SingleWorker is strictly serial.
//   - Items submitted to a live worker are processed in submission order.
//   - Submit never waits for processing and never reports the outcome.
//   - There is no drain on shutdown; queued items are lost at process exit.
package worker
