// Package metrics exports client activity as Prometheus collectors.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/petrijr/raven/pkg/api"
)

// Namespace prefixes every metric name.
const Namespace = "raven"

// PrometheusObserver is an api.Observer backed by Prometheus collectors.
type PrometheusObserver struct {
	workersSpawned prometheus.Counter
	workerFailures prometheus.Counter
	generation     prometheus.Gauge

	eventsQueued *prometheus.CounterVec
	eventsSent   *prometheus.CounterVec
	eventsFailed *prometheus.CounterVec
	pending      prometheus.Gauge
	sendDuration *prometheus.HistogramVec
}

// Ensure PrometheusObserver implements api.Observer.
var _ api.Observer = (*PrometheusObserver)(nil)

// NewPrometheusObserver creates the collectors and registers them with reg.
// A nil reg uses prometheus.DefaultRegisterer. Collectors that are already
// registered are reused.
func NewPrometheusObserver(reg prometheus.Registerer) (*PrometheusObserver, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	o := &PrometheusObserver{
		workersSpawned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "workers_spawned_total",
			Help:      "Worker goroutines started, including replacements.",
		}),
		workerFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "worker_failures_total",
			Help:      "Worker goroutines that ended with a panic.",
		}),
		generation: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "worker_generation",
			Help:      "Generation of the most recently started worker.",
		}),
		eventsQueued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "events_queued_total",
			Help:      "Events handed to the worker.",
		}, []string{"level"}),
		eventsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "events_sent_total",
			Help:      "Events accepted by the transport.",
		}, []string{"level"}),
		eventsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "events_failed_total",
			Help:      "Events the transport failed to deliver.",
		}, []string{"level"}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "pending_events",
			Help:      "Events queued but not yet sent or failed. Events lost with a dead worker stay counted.",
		}),
		sendDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "send_duration_seconds",
			Help:      "Time spent in Transport.Send.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"outcome"}),
	}

	var err error
	if o.workersSpawned, err = register(reg, o.workersSpawned); err != nil {
		return nil, err
	}
	if o.workerFailures, err = register(reg, o.workerFailures); err != nil {
		return nil, err
	}
	if o.generation, err = register(reg, o.generation); err != nil {
		return nil, err
	}
	if o.eventsQueued, err = register(reg, o.eventsQueued); err != nil {
		return nil, err
	}
	if o.eventsSent, err = register(reg, o.eventsSent); err != nil {
		return nil, err
	}
	if o.eventsFailed, err = register(reg, o.eventsFailed); err != nil {
		return nil, err
	}
	if o.pending, err = register(reg, o.pending); err != nil {
		return nil, err
	}
	if o.sendDuration, err = register(reg, o.sendDuration); err != nil {
		return nil, err
	}

	return o, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, fmt.Errorf("metrics: register collector: %w", err)
	}
	return c, nil
}

func (o *PrometheusObserver) OnWorkerSpawned(ctx context.Context, generation uint64) {
	o.workersSpawned.Inc()
	o.generation.Set(float64(generation))
}

func (o *PrometheusObserver) OnWorkerFailed(ctx context.Context, generation uint64, err error) {
	o.workerFailures.Inc()
}

func (o *PrometheusObserver) OnEventQueued(ctx context.Context, ev *api.Event) {
	o.eventsQueued.WithLabelValues(string(ev.Level)).Inc()
	o.pending.Inc()
}

func (o *PrometheusObserver) OnEventSent(ctx context.Context, ev *api.Event, d time.Duration) {
	o.eventsSent.WithLabelValues(string(ev.Level)).Inc()
	o.pending.Dec()
	o.sendDuration.WithLabelValues("sent").Observe(d.Seconds())
}

func (o *PrometheusObserver) OnEventFailed(ctx context.Context, ev *api.Event, err error, d time.Duration) {
	o.eventsFailed.WithLabelValues(string(ev.Level)).Inc()
	o.pending.Dec()
	o.sendDuration.WithLabelValues("failed").Observe(d.Seconds())
}

// Handler serves the metrics gathered by g, or the default gatherer when g
// is nil.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
