package raven

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/petrijr/raven/internal/panichook"
	"github.com/petrijr/raven/internal/transport"
	"github.com/petrijr/raven/pkg/api"
	"github.com/petrijr/raven/pkg/worker"
)

// PanicLogger is the logger name of events produced by the panic handler.
const PanicLogger = "panic"

// DefaultTimeout bounds a single transport send.
const DefaultTimeout = 30 * time.Second

// delivery is the immutable context handed to every worker generation.
type delivery struct {
	cred      api.Credential
	transport api.Transport
	observer  api.Observer
	timeout   time.Duration
}

func deliver(d delivery, ev *api.Event) {
	ctx := context.Background()
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	start := time.Now()
	err := d.transport.Send(ctx, d.cred, ev)
	if err != nil {
		d.observer.OnEventFailed(ctx, ev, err, time.Since(start))
		return
	}
	d.observer.OnEventSent(ctx, ev, time.Since(start))
}

// Client reports events to a Sentry-compatible server from a background
// worker. All methods are safe for concurrent use and none of them wait for
// network I/O.
type Client struct {
	settings api.Settings
	cred     api.Credential
	worker   *worker.SingleWorker[*api.Event, delivery]
	observer api.Observer
	logger   *slog.Logger

	hookMu sync.Mutex
	hooks  []panichook.Registration
}

// Option configures a Client.
type Option func(*options)

type options struct {
	transport api.Transport
	observer  api.Observer
	logger    *slog.Logger
	timeout   time.Duration
}

// WithTransport replaces the default HTTP transport.
func WithTransport(t api.Transport) Option {
	return func(o *options) { o.transport = t }
}

// WithObserver replaces the default LoggingObserver.
func WithObserver(obs api.Observer) Option {
	return func(o *options) { o.observer = obs }
}

// WithLogger sets the logger used by the client, its worker and the default
// transport and observer.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithTimeout bounds each transport send. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// New creates a client whose settings carry the given identifiers and the
// default device.
func New(serverName, release, environment string, cred api.Credential, opts ...Option) *Client {
	settings := api.DefaultSettings()
	settings.ServerName = serverName
	settings.Release = release
	settings.Environment = environment
	return NewFromSettings(settings, cred, opts...)
}

// NewFromSettings creates a client with explicit settings. It returns once
// the background worker is running.
func NewFromSettings(settings api.Settings, cred api.Credential, opts ...Option) *Client {
	o := options{timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.observer == nil {
		o.observer = api.NewLoggingObserver(o.logger)
	}
	if o.transport == nil {
		o.transport = transport.NewHTTPTransport(transport.HTTPConfig{Logger: o.logger})
	}

	d := delivery{
		cred:      cred,
		transport: o.transport,
		observer:  o.observer,
		timeout:   o.timeout,
	}
	w := worker.NewWithConfig(d, deliver, worker.Config{
		Logger:   o.logger,
		Observer: o.observer,
	})

	return &Client{
		settings: settings,
		cred:     cred,
		worker:   w,
		observer: o.observer,
		logger:   o.logger,
	}
}

// Settings returns the identifiers copied into every event.
func (c *Client) Settings() api.Settings {
	return c.settings
}

// Credential returns the credential events are sent with.
func (c *Client) Credential() api.Credential {
	return c.cred
}

// Alive reports whether the background worker is running.
func (c *Client) Alive() bool {
	return c.worker.Alive()
}

// Pending returns the number of events waiting to be sent.
func (c *Client) Pending() int {
	return c.worker.Pending()
}

// LogEvent queues a copy of a pre-built event. The caller may keep using ev.
// A nil event is ignored.
func (c *Client) LogEvent(ev *api.Event) {
	if ev == nil {
		return
	}
	c.submit(ev.Clone())
}

func (c *Client) submit(ev *api.Event) {
	c.observer.OnEventQueued(context.Background(), ev)
	c.worker.Submit(ev)
}

// Log builds and queues an event. A nil fingerprint defaults to
// [logger, level, culprit].
func (c *Client) Log(logger string, level api.Level, message, culprit string, fingerprint []string) {
	if fingerprint == nil {
		fingerprint = api.DefaultFingerprint(logger, level, culprit)
	}
	opts := c.settings.EventOptions()
	opts.Culprit = culprit
	opts.Fingerprint = fingerprint
	c.submit(api.NewEvent(logger, level, message, opts))
}

// Fatal queues a fatal event with the default fingerprint.
func (c *Client) Fatal(logger, message, culprit string) {
	c.Log(logger, api.LevelFatal, message, culprit, nil)
}

// Error queues an error event with the default fingerprint.
func (c *Client) Error(logger, message, culprit string) {
	c.Log(logger, api.LevelError, message, culprit, nil)
}

// Warning queues a warning event with the default fingerprint.
func (c *Client) Warning(logger, message, culprit string) {
	c.Log(logger, api.LevelWarning, message, culprit, nil)
}

// Info queues an info event with the default fingerprint.
func (c *Client) Info(logger, message, culprit string) {
	c.Log(logger, api.LevelInfo, message, culprit, nil)
}

// Debug queues a debug event with the default fingerprint.
func (c *Client) Debug(logger, message, culprit string) {
	c.Log(logger, api.LevelDebug, message, culprit, nil)
}

// PanicEvent builds the fatal event reported for a recovered panic.
func (c *Client) PanicEvent(info *PanicInfo) *api.Event {
	opts := c.settings.EventOptions()
	opts.Culprit = info.Location
	opts.Frames = stackFrames(info.Frames)
	return api.NewEvent(PanicLogger, api.LevelFatal, info.Message, opts)
}

func stackFrames(frames []panichook.Frame) []api.StackFrame {
	out := make([]api.StackFrame, 0, len(frames))
	for _, f := range frames {
		out = append(out, api.StackFrame{
			Filename: f.File,
			Function: f.Function,
			Lineno:   f.Line,
		})
	}
	return out
}

// RegisterPanicHandler installs a process-wide panic handler that queues a
// fatal event for every panic dispatched through Recover, Repanic or Go.
// After queuing it calls secondary, if non-nil, and then the handler that
// was installed before, unless that was the platform default. Registering
// again on the same client replaces the earlier handler instead of chaining
// to it. Failures inside the handler are swallowed.
func (c *Client) RegisterPanicHandler(secondary func(*PanicInfo)) {
	c.hookMu.Lock()
	defer c.hookMu.Unlock()

	r := &panicReporter{client: c, secondary: secondary}
	prev := panichook.Swap(panichook.Registration{Handler: r.handle, Owner: r})

	// A reporter of this client is replaced, not chained, so one panic
	// still queues one event.
	next := prev.Handler
	if own, ok := prev.Owner.(*panicReporter); ok && own.client == c {
		next = nil
		if p := own.prev.Load(); p != nil {
			next = p.h
		}
	}
	r.prev.Store(&prevHandler{h: next})
	c.hooks = append(c.hooks, prev)
}

// UnregisterPanicHandler restores the handler that was in effect before
// the most recent RegisterPanicHandler. It does nothing if no handler is
// registered.
func (c *Client) UnregisterPanicHandler() {
	c.hookMu.Lock()
	defer c.hookMu.Unlock()

	n := len(c.hooks)
	if n == 0 {
		return
	}
	prev := c.hooks[n-1]
	c.hooks = c.hooks[:n-1]
	panichook.Swap(prev)
}

type prevHandler struct {
	h panichook.Handler
}

type panicReporter struct {
	client    *Client
	secondary func(*PanicInfo)
	prev      atomic.Pointer[prevHandler]
}

func (r *panicReporter) handle(info *PanicInfo) {
	guard(func() { r.client.submit(r.client.PanicEvent(info)) })
	if r.secondary != nil {
		guard(func() { r.secondary(info) })
	}
	if p := r.prev.Load(); p != nil && p.h != nil {
		guard(func() { p.h(info) })
	}
}

func guard(fn func()) {
	defer func() {
		_ = recover()
	}()
	fn()
}
