package worker

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/petrijr/raven/internal/taskqueue"
	"github.com/petrijr/raven/pkg/api"
)

// Processor handles one item with the worker's shared parameters.
//
// A Processor has no error return: failures are either handled inside it or
// surface as a panic, which ends the current worker generation.
type Processor[T, P any] func(params P, item T)

// Config tunes a SingleWorker. The zero value is usable.
type Config struct {
	// Logger receives worker lifecycle logs. Defaults to slog.Default().
	Logger *slog.Logger

	// Observer receives OnWorkerSpawned / OnWorkerFailed callbacks.
	Observer api.Observer
}

// PanicError is reported to the Observer when a Processor panics.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("worker: processor panicked: %v", e.Value)
}

// Unwrap exposes the panic value when it is itself an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// SingleWorker runs a Processor on a single background goroutine fed by an
// unbounded queue, and replaces that goroutine lazily if it dies.
//
// Submit is safe for concurrent use. Items are processed one at a time and
// in submission order within one worker generation. When the Processor
// panics the worker goroutine ends; the next Submit notices and spawns a
// replacement before enqueuing. Items submitted while a worker is dying may
// be processed by the replacement or not at all.
type SingleWorker[T, P any] struct {
	params P
	fn     Processor[T, P]

	sender   *taskqueue.Sender[T]
	queue    *taskqueue.Receiver[T]
	receiver *taskqueue.SharedReceiver[T]

	alive      atomic.Bool
	generation atomic.Uint64
	spawnMu    sync.Mutex

	logger   *slog.Logger
	observer api.Observer
}

// New creates a SingleWorker with default config. It blocks until the first
// worker goroutine is alive.
func New[T, P any](params P, fn Processor[T, P]) *SingleWorker[T, P] {
	return NewWithConfig(params, fn, Config{})
}

// NewWithConfig creates a SingleWorker with the given config. It blocks
// until the first worker goroutine is alive, so the first Submit never has
// to respawn.
func NewWithConfig[T, P any](params P, fn Processor[T, P], cfg Config) *SingleWorker[T, P] {
	if fn == nil {
		panic("worker: nil Processor")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Observer == nil {
		cfg.Observer = api.NoopObserver{}
	}

	tx, rx := taskqueue.New[T]()
	w := &SingleWorker[T, P]{
		params:   params,
		fn:       fn,
		sender:   tx,
		queue:    rx,
		receiver: taskqueue.Share(rx),
		logger:   cfg.Logger,
		observer: cfg.Observer,
	}

	w.spawnMu.Lock()
	w.spawn()
	w.spawnMu.Unlock()
	return w
}

// Submit hands item to the worker. It never waits for processing; it only
// blocks while a dead worker is being replaced. Delivery is best-effort and
// nothing about the outcome is reported to the caller.
func (w *SingleWorker[T, P]) Submit(item T) {
	if !w.alive.Load() {
		w.respawn()
	}
	_ = w.sender.Send(item)
}

// Alive reports whether a worker goroutine is currently bound to the queue.
// The value may be stale by the time the caller looks at it.
func (w *SingleWorker[T, P]) Alive() bool {
	return w.alive.Load()
}

// Generation returns how many worker goroutines have been spawned.
func (w *SingleWorker[T, P]) Generation() uint64 {
	return w.generation.Load()
}

// Pending returns the number of items waiting in the queue.
func (w *SingleWorker[T, P]) Pending() int {
	return w.queue.Len()
}

func (w *SingleWorker[T, P]) respawn() {
	w.spawnMu.Lock()
	defer w.spawnMu.Unlock()

	// Another submitter may have replaced the worker while we waited.
	if w.alive.Load() {
		return
	}
	w.spawn()
}

// spawn starts a worker goroutine and waits until it reports itself alive
// or exits. Callers hold spawnMu, so no other worker can be starting.
func (w *SingleWorker[T, P]) spawn() {
	gen := w.generation.Add(1)
	ready := make(chan struct{})

	go w.run(gen, ready)
	<-ready
}

func (w *SingleWorker[T, P]) run(gen uint64, ready chan<- struct{}) {
	ctx := context.Background()
	signal := sync.OnceFunc(func() { close(ready) })
	defer signal()

	rx, recovered := w.receiver.Lock()
	if recovered {
		w.logger.Warn("worker: recovered queue from a failed worker",
			slog.Uint64("generation", gen),
		)
	}

	defer func() {
		r := recover()
		if r == nil {
			w.receiver.Unlock()
			return
		}
		w.receiver.Poison()

		err := &PanicError{Value: r, Stack: debug.Stack()}
		w.logger.Error("worker: processor panicked, worker exiting",
			slog.Uint64("generation", gen),
			slog.Any("panic", r),
		)
		w.observer.OnWorkerFailed(ctx, gen, err)
	}()

	w.observer.OnWorkerSpawned(ctx, gen)

	guard := markAlive(&w.alive)
	defer guard.release()
	signal()

	for {
		item, err := rx.Recv()
		if err != nil {
			runtime.Gosched()
			continue
		}
		w.fn(w.params, item)
	}
}
