package raven

import (
	"database/sql"

	"github.com/petrijr/raven/internal/panichook"
	"github.com/petrijr/raven/internal/transport"
	"github.com/petrijr/raven/pkg/api"
)

// Re-export key types so users don't need to dig into pkg/api.

type (
	Event                = api.Event
	EventOptions         = api.EventOptions
	Level                = api.Level
	StackFrame           = api.StackFrame
	StackTrace           = api.StackTrace
	Device               = api.Device
	Settings             = api.Settings
	Credential           = api.Credential
	Transport            = api.Transport
	TransportFunc        = api.TransportFunc
	Observer             = api.Observer
	LoggingObserver      = api.LoggingObserver
	BasicMetrics         = api.BasicMetrics
	BasicMetricsSnapshot = api.BasicMetricsSnapshot
	CompositeObserver    = api.CompositeObserver
	NoopObserver         = api.NoopObserver

	// PanicInfo describes a recovered panic handed to panic handlers.
	PanicInfo = panichook.Info
	// PanicFrame is one frame of PanicInfo.Frames.
	PanicFrame = panichook.Frame

	HTTPConfig      = transport.HTTPConfig
	HTTPTransport   = transport.HTTPTransport
	SQLiteTransport = transport.SQLiteTransport
	MemoryTransport = transport.MemoryTransport
	ArchivedEvent   = transport.ArchivedEvent
	StatusError     = transport.StatusError
)

// Re-export level values.

const (
	LevelFatal   = api.LevelFatal
	LevelError   = api.LevelError
	LevelWarning = api.LevelWarning
	LevelInfo    = api.LevelInfo
	LevelDebug   = api.LevelDebug
)

var ErrInvalidDSN = api.ErrInvalidDSN

// Re-export common helpers.

var (
	ParseDSN             = api.ParseDSN
	MustParseDSN         = api.MustParseDSN
	DefaultSettings      = api.DefaultSettings
	NewEvent             = api.NewEvent
	NewLoggingObserver   = api.NewLoggingObserver
	NewCompositeObserver = api.NewCompositeObserver
)

// Panic hook helpers. Recover and Repanic must be deferred directly:
//
//	defer raven.Recover()
var (
	Recover = panichook.Recover
	Repanic = panichook.Repanic
	Go      = panichook.Go
)

// Transport constructors.
// These wrap internal/transport so external callers never need to import
// internal packages.

// NewHTTPTransport returns a transport posting to the store endpoint.
func NewHTTPTransport(cfg HTTPConfig) *HTTPTransport {
	return transport.NewHTTPTransport(cfg)
}

// NewSQLiteTransport returns a transport archiving events into db.
func NewSQLiteTransport(db *sql.DB) (*SQLiteTransport, error) {
	return transport.NewSQLiteTransport(db)
}

// OpenSQLite opens a SQLite database with the bundled driver.
func OpenSQLite(path string) (*sql.DB, error) {
	return transport.OpenSQLite(path)
}

// NewMemoryTransport returns a transport that records events in memory.
func NewMemoryTransport() *MemoryTransport {
	return transport.NewMemoryTransport()
}
