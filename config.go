package raven

import (
	"fmt"
	"os"

	"golang.org/x/time/rate"

	"github.com/petrijr/raven/internal/logging"
	"github.com/petrijr/raven/internal/transport"
	"github.com/petrijr/raven/pkg/api"
	"github.com/petrijr/raven/pkg/config"
)

// NewFromConfig builds a client from a loaded Config. Options passed
// explicitly take precedence over the ones derived from cfg.
//
// With the sqlite transport the archive database stays open for the life
// of the process.
func NewFromConfig(cfg config.Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cred, err := api.ParseDSN(cfg.DSN)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if err != nil {
		return nil, err
	}

	var tr api.Transport
	switch cfg.Transport {
	case config.TransportHTTP:
		hc := transport.HTTPConfig{Compress: cfg.Compress, Logger: logger}
		if cfg.RateLimit > 0 {
			hc.Limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst)
		}
		tr = transport.NewHTTPTransport(hc)
	case config.TransportSQLite:
		db, err := transport.OpenSQLite(cfg.ArchivePath)
		if err != nil {
			return nil, err
		}
		st, err := transport.NewSQLiteTransport(db)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		tr = st
	case config.TransportMemory:
		tr = transport.NewMemoryTransport()
	default:
		return nil, fmt.Errorf("%w: unknown transport %q", config.ErrInvalidConfig, cfg.Transport)
	}

	settings := api.DefaultSettings()
	settings.ServerName = cfg.ServerName
	settings.Release = cfg.Release
	settings.Environment = cfg.Environment

	base := []Option{
		WithLogger(logger),
		WithTransport(tr),
		WithTimeout(cfg.Timeout),
	}
	return NewFromSettings(settings, cred, append(base, opts...)...), nil
}
