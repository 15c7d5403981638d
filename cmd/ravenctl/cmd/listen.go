package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/petrijr/raven/internal/devsink"
	"github.com/petrijr/raven/internal/transport"
	"github.com/petrijr/raven/pkg/api"
	"github.com/petrijr/raven/pkg/metrics"
)

// observingTransport reports archive writes to an observer so the listen
// command can expose them as metrics.
type observingTransport struct {
	next     api.Transport
	observer api.Observer
}

func (o observingTransport) Send(ctx context.Context, cred api.Credential, ev *api.Event) error {
	o.observer.OnEventQueued(ctx, ev)
	start := time.Now()
	if err := o.next.Send(ctx, cred, ev); err != nil {
		o.observer.OnEventFailed(ctx, ev, err, time.Since(start))
		return err
	}
	o.observer.OnEventSent(ctx, ev, time.Since(start))
	return nil
}

func newListenCommand(a *app) *cobra.Command {
	var (
		addr        string
		key         string
		secret      string
		withMetrics bool
	)

	c := &cobra.Command{
		Use:   "listen",
		Short: "Run a local store endpoint that archives events into SQLite",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.config()
			if err != nil {
				return err
			}
			logger, err := a.logger(cfg)
			if err != nil {
				return err
			}

			db, err := transport.OpenSQLite(cfg.ArchivePath)
			if err != nil {
				return err
			}
			defer db.Close()
			archive, err := transport.NewSQLiteTransport(db)
			if err != nil {
				return err
			}

			var sink api.Transport = archive
			reg := prometheus.NewRegistry()
			if withMetrics {
				obs, err := metrics.NewPrometheusObserver(reg)
				if err != nil {
					return err
				}
				sink = observingTransport{next: archive, observer: obs}
			}

			server := devsink.New(devsink.Config{
				Sink:   sink,
				Key:    key,
				Secret: secret,
				Logger: logger,
			})
			router := server.Router()
			if withMetrics {
				router.Handle("/metrics", metrics.Handler(reg)).Methods(http.MethodGet)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, addr, router, logger, cfg.ArchivePath)
		},
	}

	f := c.Flags()
	f.StringVar(&addr, "addr", "127.0.0.1:9000", "listen address")
	f.StringVar(&key, "key", "", "required public key (empty accepts any)")
	f.StringVar(&secret, "secret", "", "required secret (empty accepts any)")
	f.BoolVar(&withMetrics, "metrics", true, "expose Prometheus metrics on /metrics")
	return c
}

func serve(ctx context.Context, addr string, h http.Handler, logger *slog.Logger, archivePath string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("ravenctl: listening",
			slog.String("addr", addr),
			slog.String("archive", archivePath),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen %s: %w", addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	logger.Info("ravenctl: shutting down")
	return srv.Shutdown(shutdownCtx)
}
