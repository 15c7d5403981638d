package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/petrijr/raven/pkg/api"
)

// TracerName is the instrumentation name used for send spans.
const TracerName = "github.com/petrijr/raven/transport"

const maxErrorBody = 4 << 10

// StatusError is returned when the store endpoint answers with a non-2xx
// status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("transport: store endpoint returned %d: %s", e.StatusCode, e.Body)
}

// HTTPConfig configures an HTTPTransport. The zero value is usable.
type HTTPConfig struct {
	// Client performs the requests. Defaults to a client with a 10s timeout.
	Client *http.Client

	// Compress gzips request bodies and sets Content-Encoding.
	Compress bool

	// Limiter, if set, throttles sends. Waiting happens on the worker
	// goroutine and counts against the send context.
	Limiter *rate.Limiter

	// Tracer creates one span per send. Defaults to the global provider.
	Tracer trace.Tracer

	// Logger receives debug logs for each response.
	Logger *slog.Logger
}

// HTTPTransport POSTs events to the store endpoint of a Sentry-compatible
// server.
type HTTPTransport struct {
	client   *http.Client
	compress bool
	limiter  *rate.Limiter
	tracer   trace.Tracer
	logger   *slog.Logger
}

// Ensure HTTPTransport implements api.Transport.
var _ api.Transport = (*HTTPTransport)(nil)

// NewHTTPTransport creates an HTTPTransport.
func NewHTTPTransport(cfg HTTPConfig) *HTTPTransport {
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: 10 * time.Second}
	}
	if cfg.Tracer == nil {
		cfg.Tracer = otel.Tracer(TracerName)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &HTTPTransport{
		client:   cfg.Client,
		compress: cfg.Compress,
		limiter:  cfg.Limiter,
		tracer:   cfg.Tracer,
		logger:   cfg.Logger,
	}
}

// Send delivers ev to cred's store endpoint.
func (t *HTTPTransport) Send(ctx context.Context, cred api.Credential, ev *api.Event) error {
	ctx, span := t.tracer.Start(ctx, "raven.send",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("raven.event_id", ev.EventID),
			attribute.String("raven.level", string(ev.Level)),
			attribute.String("raven.project_id", cred.ProjectID),
		),
	)
	defer span.End()

	status, err := t.send(ctx, cred, ev)
	if status != 0 {
		span.SetAttributes(attribute.Int("http.status_code", status))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

func (t *HTTPTransport) send(ctx context.Context, cred api.Credential, ev *api.Event) (int, error) {
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return 0, fmt.Errorf("transport: rate limit: %w", err)
		}
	}

	body, err := EncodeEvent(ev)
	if err != nil {
		return 0, fmt.Errorf("transport: encode event: %w", err)
	}
	if t.compress {
		if body, err = Compress(body); err != nil {
			return 0, fmt.Errorf("transport: compress event: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cred.StoreURL(), bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("transport: build request: %w", err)
	}
	req.Header.Set("X-Sentry-Auth", cred.AuthHeader(time.Now()))
	req.SetBasicAuth(cred.Key, cred.Secret)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", api.SDKName+"/"+api.SDKVersion)
	if t.compress {
		req.Header.Set("Content-Encoding", "gzip")
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("transport: post event: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	t.logger.DebugContext(ctx, "transport: store response",
		slog.String("event_id", ev.EventID),
		slog.Int("status", resp.StatusCode),
		slog.String("body", string(respBody)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, &StatusError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	return resp.StatusCode, nil
}
