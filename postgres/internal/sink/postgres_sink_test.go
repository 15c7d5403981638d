package sink

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	"github.com/stretchr/testify/suite"

	"github.com/petrijr/raven/pkg/api"
	"github.com/petrijr/raven/postgres/internal/testutil"
)

type PostgresSinkTestSuite struct {
	suite.Suite
	db   *sql.DB
	sink *PostgresSink
}

func TestPostgresSinkSuite(t *testing.T) {
	endpoint := testutil.GetPostgresEndpoint(t)

	db, err := sql.Open("pgx", endpoint)
	if err != nil {
		t.Fatalf("sql.Open failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	s, err := NewPostgresSink(db)
	if err != nil {
		t.Fatalf("NewPostgresSink failed: %v", err)
	}

	suite.Run(t, &PostgresSinkTestSuite{db: db, sink: s})
}

func (p *PostgresSinkTestSuite) SetupTest() {
	_, err := p.db.Exec("TRUNCATE TABLE raven_events")
	p.NoErrorf(err, "TRUNCATE raven_events failed: %s", "formatted")
}

func (p *PostgresSinkTestSuite) TestSendAndList() {
	ctx := context.Background()
	cred := api.MustParseDSN("https://k:s@sentry.example.com/11")

	ev := api.NewEvent("pg", api.LevelFatal, "stored", api.EventOptions{
		Culprit: "db.go: 12",
		Frames:  []api.StackFrame{{Filename: "db.go", Function: "db.Open", Lineno: 12}},
	})
	ev.PushTag("shard", "3")
	p.Require().NoError(p.sink.Send(ctx, cred, ev))

	events, err := p.sink.List(ctx, "", 0)
	p.Require().NoError(err)
	p.Require().Len(events, 1)

	got := events[0]
	p.Equal("11", got.ProjectID)
	p.False(got.ReceivedAt.IsZero())
	p.Equal(ev.EventID, got.Event.EventID)
	p.Equal("3", got.Event.Tags["shard"])
	p.Equal("db.Open", got.Event.Stacktrace.Frames[0].Function)
}

func (p *PostgresSinkTestSuite) TestDuplicateIsIgnored() {
	ctx := context.Background()
	cred := api.MustParseDSN("https://k:s@sentry.example.com/11")

	ev := api.NewEvent("pg", api.LevelInfo, "once", api.EventOptions{})
	p.Require().NoError(p.sink.Send(ctx, cred, ev))
	p.Require().NoError(p.sink.Send(ctx, cred, ev))

	events, err := p.sink.List(ctx, "", 0)
	p.Require().NoError(err)
	p.Len(events, 1)
}

func (p *PostgresSinkTestSuite) TestListFiltersByProjectAndLimits() {
	ctx := context.Background()
	a := api.MustParseDSN("https://k:s@sentry.example.com/1")
	b := api.MustParseDSN("https://k:s@sentry.example.com/2")

	for i := 0; i < 3; i++ {
		p.Require().NoError(p.sink.Send(ctx, a, api.NewEvent("pg", api.LevelInfo, "a", api.EventOptions{})))
	}
	p.Require().NoError(p.sink.Send(ctx, b, api.NewEvent("pg", api.LevelInfo, "b", api.EventOptions{})))

	onlyB, err := p.sink.List(ctx, "2", 0)
	p.Require().NoError(err)
	p.Require().Len(onlyB, 1)
	p.Equal("b", onlyB[0].Event.Message)

	limited, err := p.sink.List(ctx, "1", 2)
	p.Require().NoError(err)
	p.Len(limited, 2)
}
