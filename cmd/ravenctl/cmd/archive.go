package cmd

import (
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/petrijr/raven/internal/transport"
)

type archivedRow struct {
	ID       int64     `json:"id" yaml:"id"`
	StoredAt time.Time `json:"stored_at" yaml:"stored_at"`
	Project  string    `json:"project" yaml:"project"`
	EventID  string    `json:"event_id" yaml:"event_id"`
	Level    string    `json:"level" yaml:"level"`
	Logger   string    `json:"logger" yaml:"logger"`
	Culprit  string    `json:"culprit,omitempty" yaml:"culprit,omitempty"`
	Message  string    `json:"message" yaml:"message"`
}

func newArchiveCommand(a *app) *cobra.Command {
	c := &cobra.Command{
		Use:   "archive",
		Short: "Inspect the SQLite event archive",
	}
	c.AddCommand(newArchiveListCommand(a))
	return c
}

func newArchiveListCommand(a *app) *cobra.Command {
	var limit int

	c := &cobra.Command{
		Use:   "list",
		Short: "List archived events, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.config()
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

			events, err := archive.List(cmd.Context(), limit)
			if err != nil {
				return err
			}

			rows := make([]archivedRow, 0, len(events))
			for _, e := range events {
				rows = append(rows, archivedRow{
					ID:       e.ID,
					StoredAt: e.StoredAt.UTC(),
					Project:  e.ProjectID,
					EventID:  e.Event.EventID,
					Level:    string(e.Event.Level),
					Logger:   e.Event.Logger,
					Culprit:  e.Event.Culprit,
					Message:  e.Event.Message,
				})
			}

			return a.render(rows, func(t *tablewriter.Table) error {
				t.Header("#", "Stored", "Project", "Level", "Logger", "Message")
				for _, r := range rows {
					if err := t.Append(
						itoa(int(r.ID)),
						r.StoredAt.Format(time.RFC3339),
						r.Project,
						r.Level,
						r.Logger,
						r.Message,
					); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	c.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of events (0 for all)")
	return c
}
