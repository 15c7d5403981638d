package transport

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/petrijr/raven/pkg/api"
)

// SQLiteTransport archives events into a local SQLite database instead of
// sending them over the network. It is useful offline, in development, and
// as the storage behind the ravenctl dev server.
type SQLiteTransport struct {
	db *sql.DB
}

// ArchivedEvent is one row of the archive.
type ArchivedEvent struct {
	ID        int64
	ProjectID string
	StoredAt  time.Time
	Event     *api.Event
}

// Ensure SQLiteTransport implements api.Transport.
var _ api.Transport = (*SQLiteTransport)(nil)

// OpenSQLite opens (creating if needed) a SQLite database at path using the
// modernc.org/sqlite driver. ":memory:" is accepted.
func OpenSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("transport: open sqlite %s: %w", path, err)
	}
	// A single connection keeps ":memory:" databases shared and serializes
	// writers.
	db.SetMaxOpenConns(1)
	return db, nil
}

// NewSQLiteTransport initializes the events table in the given DB and
// returns a new transport.
func NewSQLiteTransport(db *sql.DB) (*SQLiteTransport, error) {
	s := &SQLiteTransport{db: db}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteTransport) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			event_id TEXT NOT NULL UNIQUE,
			project_id TEXT NOT NULL,
			level TEXT NOT NULL,
			logger TEXT NOT NULL,
			message TEXT NOT NULL,
			culprit TEXT,
			payload BLOB NOT NULL,
			stored_at INTEGER NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("transport: init sqlite schema: %w", err)
	}
	return nil
}

// Send stores ev. Storing the same event id twice keeps the first copy.
func (s *SQLiteTransport) Send(ctx context.Context, cred api.Credential, ev *api.Event) error {
	payload, err := EncodeEvent(ev)
	if err != nil {
		return fmt.Errorf("transport: encode event: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO events (event_id, project_id, level, logger, message, culprit, payload, stored_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.EventID,
		cred.ProjectID,
		string(ev.Level),
		ev.Logger,
		ev.Message,
		ev.Culprit,
		payload,
		time.Now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("transport: archive event %s: %w", ev.EventID, err)
	}
	return nil
}

// List returns up to limit archived events, newest first. A limit <= 0
// returns everything.
func (s *SQLiteTransport) List(ctx context.Context, limit int) ([]ArchivedEvent, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project_id, stored_at, payload
		FROM events
		ORDER BY id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("transport: list events: %w", err)
	}
	defer rows.Close()

	var out []ArchivedEvent
	for rows.Next() {
		var (
			a        ArchivedEvent
			storedAt int64
			payload  []byte
		)
		if err := rows.Scan(&a.ID, &a.ProjectID, &storedAt, &payload); err != nil {
			return nil, err
		}
		ev, err := DecodeEvent(payload)
		if err != nil {
			return nil, fmt.Errorf("transport: decode archived event %d: %w", a.ID, err)
		}
		a.StoredAt = time.Unix(0, storedAt)
		a.Event = ev
		out = append(out, a)
	}
	return out, rows.Err()
}

// Count returns the number of archived events.
func (s *SQLiteTransport) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
