package api

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Observer receives callbacks from the background worker and the client for
// logging and metrics.
//
// Callbacks run on the worker goroutine or on the submitting goroutine and
// must be fast and non-blocking. They must not submit events themselves.
type Observer interface {
	// OnWorkerSpawned is called when a worker goroutine has bound itself to
	// the queue. generation counts workers ever spawned, starting at 1.
	OnWorkerSpawned(ctx context.Context, generation uint64)

	// OnWorkerFailed is called when the processing function panicked and the
	// worker of the given generation is gone.
	OnWorkerFailed(ctx context.Context, generation uint64, err error)

	// OnEventQueued is called after an event was handed to the worker queue.
	OnEventQueued(ctx context.Context, ev *Event)

	// OnEventSent is called after the transport accepted an event.
	OnEventSent(ctx context.Context, ev *Event, d time.Duration)

	// OnEventFailed is called when the transport returned an error.
	OnEventFailed(ctx context.Context, ev *Event, err error, d time.Duration)
}

// NoopObserver is an Observer that does nothing.
// It is used as the default when no observer is configured.
type NoopObserver struct{}

func (NoopObserver) OnWorkerSpawned(ctx context.Context, generation uint64)            {}
func (NoopObserver) OnWorkerFailed(ctx context.Context, generation uint64, err error)  {}
func (NoopObserver) OnEventQueued(ctx context.Context, ev *Event)                      {}
func (NoopObserver) OnEventSent(ctx context.Context, ev *Event, d time.Duration)       {}
func (NoopObserver) OnEventFailed(ctx context.Context, ev *Event, err error, d time.Duration) {
}

// CompositeObserver fans out callbacks to multiple observers.
type CompositeObserver struct {
	observers []Observer
}

// NewCompositeObserver creates an Observer that forwards callbacks to each
// non-nil observer in obs.
func NewCompositeObserver(obs ...Observer) Observer {
	filtered := make([]Observer, 0, len(obs))
	for _, o := range obs {
		if o != nil {
			filtered = append(filtered, o)
		}
	}
	if len(filtered) == 0 {
		return NoopObserver{}
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &CompositeObserver{observers: filtered}
}

func (c *CompositeObserver) OnWorkerSpawned(ctx context.Context, generation uint64) {
	for _, o := range c.observers {
		o.OnWorkerSpawned(ctx, generation)
	}
}

func (c *CompositeObserver) OnWorkerFailed(ctx context.Context, generation uint64, err error) {
	for _, o := range c.observers {
		o.OnWorkerFailed(ctx, generation, err)
	}
}

func (c *CompositeObserver) OnEventQueued(ctx context.Context, ev *Event) {
	for _, o := range c.observers {
		o.OnEventQueued(ctx, ev)
	}
}

func (c *CompositeObserver) OnEventSent(ctx context.Context, ev *Event, d time.Duration) {
	for _, o := range c.observers {
		o.OnEventSent(ctx, ev, d)
	}
}

func (c *CompositeObserver) OnEventFailed(ctx context.Context, ev *Event, err error, d time.Duration) {
	for _, o := range c.observers {
		o.OnEventFailed(ctx, ev, err, d)
	}
}

// LoggingObserver writes structured logs using log/slog.
type LoggingObserver struct {
	Logger *slog.Logger
}

// NewLoggingObserver creates an Observer that logs worker and delivery
// events using the provided slog.Logger. If logger is nil, slog.Default()
// is used.
func NewLoggingObserver(logger *slog.Logger) Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingObserver{Logger: logger}
}

func (o *LoggingObserver) OnWorkerSpawned(ctx context.Context, generation uint64) {
	o.Logger.DebugContext(ctx, "worker_spawned",
		slog.Uint64("generation", generation),
	)
}

func (o *LoggingObserver) OnWorkerFailed(ctx context.Context, generation uint64, err error) {
	o.Logger.ErrorContext(ctx, "worker_failed",
		slog.Uint64("generation", generation),
		slog.Any("error", err),
	)
}

func (o *LoggingObserver) OnEventQueued(ctx context.Context, ev *Event) {
	o.Logger.DebugContext(ctx, "event_queued",
		slog.String("event_id", ev.EventID),
		slog.String("level", string(ev.Level)),
		slog.String("logger", ev.Logger),
	)
}

func (o *LoggingObserver) OnEventSent(ctx context.Context, ev *Event, d time.Duration) {
	o.Logger.DebugContext(ctx, "event_sent",
		slog.String("event_id", ev.EventID),
		slog.Duration("duration", d),
	)
}

func (o *LoggingObserver) OnEventFailed(ctx context.Context, ev *Event, err error, d time.Duration) {
	o.Logger.WarnContext(ctx, "event_failed",
		slog.String("event_id", ev.EventID),
		slog.Duration("duration", d),
		slog.Any("error", err),
	)
}

// BasicMetrics collects simple counters and aggregate send durations.
// It implements Observer, and can be combined with LoggingObserver via
// NewCompositeObserver.
type BasicMetrics struct {
	NoopObserver

	workersSpawned    atomic.Int64
	workerFailures    atomic.Int64
	eventsQueued      atomic.Int64
	eventsSent        atomic.Int64
	eventsFailed      atomic.Int64
	totalSendDuration atomic.Int64 // nanoseconds
}

// BasicMetricsSnapshot is an immutable snapshot of BasicMetrics.
type BasicMetricsSnapshot struct {
	WorkersSpawned int64
	WorkerFailures int64

	EventsQueued  int64
	EventsSent    int64
	EventsFailed  int64
	PendingEvents int64

	AvgSendDuration time.Duration
}

func (m *BasicMetrics) OnWorkerSpawned(ctx context.Context, generation uint64) {
	m.workersSpawned.Add(1)
}

func (m *BasicMetrics) OnWorkerFailed(ctx context.Context, generation uint64, err error) {
	m.workerFailures.Add(1)
}

func (m *BasicMetrics) OnEventQueued(ctx context.Context, ev *Event) {
	m.eventsQueued.Add(1)
}

func (m *BasicMetrics) OnEventSent(ctx context.Context, ev *Event, d time.Duration) {
	m.eventsSent.Add(1)
	m.totalSendDuration.Add(d.Nanoseconds())
}

func (m *BasicMetrics) OnEventFailed(ctx context.Context, ev *Event, err error, d time.Duration) {
	m.eventsFailed.Add(1)
}

// Snapshot returns a snapshot of the current metrics.
func (m *BasicMetrics) Snapshot() BasicMetricsSnapshot {
	queued := m.eventsQueued.Load()
	sent := m.eventsSent.Load()
	failed := m.eventsFailed.Load()
	totalNs := m.totalSendDuration.Load()

	var avg time.Duration
	if sent > 0 {
		avg = time.Duration(totalNs / sent)
	}

	// Events lost to a dead worker never reach sent or failed, so pending
	// is an upper bound.
	return BasicMetricsSnapshot{
		WorkersSpawned:  m.workersSpawned.Load(),
		WorkerFailures:  m.workerFailures.Load(),
		EventsQueued:    queued,
		EventsSent:      sent,
		EventsFailed:    failed,
		PendingEvents:   queued - sent - failed,
		AvgSendDuration: avg,
	}
}
