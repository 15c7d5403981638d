package transport

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/petrijr/raven/pkg/api"
)

func newTestSQLiteTransport(t *testing.T) *SQLiteTransport {
	t.Helper()

	db, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	s, err := NewSQLiteTransport(db)
	require.NoError(t, err)
	return s
}

func TestSQLiteTransport_StoresAndLists(t *testing.T) {
	s := newTestSQLiteTransport(t)
	ctx := context.Background()
	cred := api.MustParseDSN("https://k:s@example.com/7")

	first := api.NewEvent("db", api.LevelWarning, "first", api.EventOptions{})
	second := api.NewEvent("db", api.LevelFatal, "second", api.EventOptions{
		Frames: []api.StackFrame{{Filename: "main.go", Function: "main.main", Lineno: 3}},
	})
	require.NoError(t, s.Send(ctx, cred, first))
	require.NoError(t, s.Send(ctx, cred, second))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	all, err := s.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, "second", all[0].Event.Message, "newest first")
	require.Equal(t, "7", all[0].ProjectID)
	require.NotNil(t, all[0].Event.Stacktrace)
	require.Equal(t, "main.main", all[0].Event.Stacktrace.Frames[0].Function)
	require.False(t, all[0].StoredAt.IsZero())

	limited, err := s.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	require.Equal(t, second.EventID, limited[0].Event.EventID)
}

func TestSQLiteTransport_DuplicateEventIDKeepsFirst(t *testing.T) {
	s := newTestSQLiteTransport(t)
	ctx := context.Background()
	cred := api.MustParseDSN("https://k:s@example.com/7")

	ev := api.NewEvent("db", api.LevelInfo, "original", api.EventOptions{})
	require.NoError(t, s.Send(ctx, cred, ev))

	dup := ev.Clone()
	dup.Message = "changed"
	require.NoError(t, s.Send(ctx, cred, dup))

	all, err := s.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, "original", all[0].Event.Message)
}
