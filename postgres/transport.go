// Package postgres provides a raven Transport that stores events in a
// PostgreSQL table.
package postgres

import (
	"database/sql"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver

	"github.com/petrijr/raven"

	psink "github.com/petrijr/raven/postgres/internal/sink"
)

// Sink is the Postgres-backed transport.
type Sink = psink.PostgresSink

// StoredEvent is one stored row.
type StoredEvent = psink.StoredEvent

// Open opens a database using the pgx stdlib driver.
func Open(dsn string) (*sql.DB, error) {
	return sql.Open("pgx", dsn)
}

// NewTransport creates the raven_events table if needed and returns a
// transport writing to it.
func NewTransport(db *sql.DB) (*Sink, error) {
	return psink.NewPostgresSink(db)
}

// Ensure Sink implements raven.Transport.
var _ raven.Transport = (*Sink)(nil)
