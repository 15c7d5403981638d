package sink

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/petrijr/raven/pkg/api"
	"github.com/petrijr/raven/redis/internal/testutil"
)

type RedisSinkTestSuite struct {
	suite.Suite
	client *redis.Client
	sink   *RedisSink
	cred   api.Credential
}

func TestRedisSinkSuite(t *testing.T) {
	endpoint := testutil.GetRedisAddress(t)

	client := redis.NewClient(&redis.Options{Addr: endpoint})
	t.Cleanup(func() { _ = client.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Fatalf("redis ping failed: %v", err)
	}

	suite.Run(t, &RedisSinkTestSuite{
		client: client,
		sink:   NewRedisSink(client, "raven:test:", 0),
		cred:   api.MustParseDSN("https://k:s@sentry.example.com/8"),
	})
}

func (r *RedisSinkTestSuite) SetupTest() {
	err := r.client.Del(context.Background(), r.sink.Key()).Err()
	r.NoErrorf(err, "redis DEL failed: %s", "formatted")
}

func (r *RedisSinkTestSuite) TestSendThenPopIsFIFO() {
	ctx := context.Background()

	first := api.NewEvent("redis", api.LevelError, "first", api.EventOptions{})
	second := api.NewEvent("redis", api.LevelFatal, "second", api.EventOptions{Culprit: "main.go: 1"})
	r.Require().NoError(r.sink.Send(ctx, r.cred, first))
	r.Require().NoError(r.sink.Send(ctx, r.cred, second))

	n, err := r.sink.Len(ctx)
	r.Require().NoError(err)
	r.Equal(2, n)

	env, err := r.sink.Pop(ctx, time.Second)
	r.Require().NoError(err)
	r.Require().NotNil(env)
	r.Equal("8", env.ProjectID)
	r.Equal(first.EventID, env.Event.EventID)
	r.Equal("first", env.Event.Message)

	env, err = r.sink.Pop(ctx, time.Second)
	r.Require().NoError(err)
	r.Equal("second", env.Event.Message)
	r.Equal("main.go: 1", env.Event.Culprit)
}

func (r *RedisSinkTestSuite) TestPopTimesOutOnEmptyList() {
	env, err := r.sink.Pop(context.Background(), 100*time.Millisecond)
	r.NoError(err)
	r.Nil(env)
}

func (r *RedisSinkTestSuite) TestMaxLenKeepsNewest() {
	ctx := context.Background()
	capped := NewRedisSink(r.client, "raven:test:", 2)

	for _, msg := range []string{"a", "b", "c"} {
		r.Require().NoError(capped.Send(ctx, r.cred, api.NewEvent("redis", api.LevelInfo, msg, api.EventOptions{})))
	}

	n, err := capped.Len(ctx)
	r.Require().NoError(err)
	r.Equal(2, n)

	env, err := capped.Pop(ctx, time.Second)
	r.Require().NoError(err)
	r.Equal("b", env.Event.Message)
}
