package sink

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/petrijr/raven/pkg/api"
)

// PostgresSink implements api.Transport using a PostgreSQL table.
//
// Schema (created automatically if missing):
//
//	CREATE TABLE IF NOT EXISTS raven_events (
//	    event_id    TEXT PRIMARY KEY,
//	    project_id  TEXT NOT NULL,
//	    level       TEXT NOT NULL,
//	    logger      TEXT NOT NULL,
//	    message     TEXT NOT NULL,
//	    culprit     TEXT NOT NULL DEFAULT '',
//	    payload     JSONB NOT NULL,
//	    received_at TIMESTAMPTZ NOT NULL DEFAULT now()
//	);
type PostgresSink struct {
	db *sql.DB
}

// StoredEvent is one row of raven_events.
type StoredEvent struct {
	ProjectID  string
	ReceivedAt time.Time
	Event      *api.Event
}

// NewPostgresSink creates the required schema if needed and returns a sink.
func NewPostgresSink(db *sql.DB) (*PostgresSink, error) {
	s := &PostgresSink{db: db}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

// Ensure PostgresSink implements api.Transport.
var _ api.Transport = (*PostgresSink)(nil)

func (s *PostgresSink) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS raven_events (
			event_id    TEXT PRIMARY KEY,
			project_id  TEXT NOT NULL,
			level       TEXT NOT NULL,
			logger      TEXT NOT NULL,
			message     TEXT NOT NULL,
			culprit     TEXT NOT NULL DEFAULT '',
			payload     JSONB NOT NULL,
			received_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS raven_events_received_at_idx
			ON raven_events (received_at DESC);
	`)
	if err != nil {
		return fmt.Errorf("postgres sink: init schema: %w", err)
	}
	return nil
}

// Send inserts ev. A duplicate event id is ignored.
func (s *PostgresSink) Send(ctx context.Context, cred api.Credential, ev *api.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("postgres sink: encode event: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO raven_events (event_id, project_id, level, logger, message, culprit, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (event_id) DO NOTHING
	`, ev.EventID, cred.ProjectID, string(ev.Level), ev.Logger, ev.Message, ev.Culprit, payload)
	if err != nil {
		return fmt.Errorf("postgres sink: insert event %s: %w", ev.EventID, err)
	}
	return nil
}

// List returns up to limit stored events, newest first. A limit <= 0
// returns everything.
func (s *PostgresSink) List(ctx context.Context, projectID string, limit int) ([]StoredEvent, error) {
	query := `
		SELECT project_id, received_at, payload
		FROM raven_events
		WHERE ($1 = '' OR project_id = $1)
		ORDER BY received_at DESC, event_id`
	args := []any{projectID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres sink: list events: %w", err)
	}
	defer rows.Close()

	var out []StoredEvent
	for rows.Next() {
		var (
			se      StoredEvent
			payload []byte
		)
		if err := rows.Scan(&se.ProjectID, &se.ReceivedAt, &payload); err != nil {
			return nil, err
		}
		var ev api.Event
		if err := json.Unmarshal(payload, &ev); err != nil {
			return nil, fmt.Errorf("postgres sink: decode event: %w", err)
		}
		se.Event = &ev
		out = append(out, se)
	}
	return out, rows.Err()
}
