package sink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/petrijr/raven/pkg/api"
)

// Envelope is the value pushed for every event.
type Envelope struct {
	ProjectID string     `json:"project_id"`
	Event     *api.Event `json:"event"`
}

// RedisSink implements api.Transport by pushing events onto a Redis list.
//
// It uses a single list with key:
//
//	<prefix>events
//
// Values are JSON-encoded Envelopes. New events are pushed on the left, so
// consumers read the oldest event with RPOP/BRPOP.
type RedisSink struct {
	client *redis.Client
	key    string
	maxLen int64
}

// NewRedisSink constructs a Redis-backed sink.
// prefix is optional but recommended (e.g. "raven:"). A positive maxLen
// trims the list to the newest maxLen events after every push.
func NewRedisSink(client *redis.Client, prefix string, maxLen int64) *RedisSink {
	if prefix == "" {
		prefix = "raven:"
	}
	return &RedisSink{
		client: client,
		key:    prefix + "events",
		maxLen: maxLen,
	}
}

// Ensure RedisSink implements api.Transport.
var _ api.Transport = (*RedisSink)(nil)

// Key returns the list key.
func (s *RedisSink) Key() string {
	return s.key
}

// Send pushes ev onto the list (LPUSH), trimming it if maxLen is set.
func (s *RedisSink) Send(ctx context.Context, cred api.Credential, ev *api.Event) error {
	data, err := json.Marshal(Envelope{ProjectID: cred.ProjectID, Event: ev})
	if err != nil {
		return fmt.Errorf("redis sink: encode event: %w", err)
	}

	if s.maxLen <= 0 {
		return s.client.LPush(ctx, s.key, data).Err()
	}

	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.LPush(ctx, s.key, data)
		p.LTrim(ctx, s.key, 0, s.maxLen-1)
		return nil
	})
	return err
}

// Pop blocks on BRPOP until an event is available, timeout elapses or ctx
// is cancelled. It returns (nil, nil) on timeout.
func (s *RedisSink) Pop(ctx context.Context, timeout time.Duration) (*Envelope, error) {
	// BRPop returns [key, value]
	res, err := s.client.BRPop(ctx, timeout, s.key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(res) != 2 {
		return nil, fmt.Errorf("redis sink: unexpected BRPOP result %#v", res)
	}

	var env Envelope
	if err := json.Unmarshal([]byte(res[1]), &env); err != nil {
		return nil, fmt.Errorf("redis sink: decode event: %w", err)
	}
	return &env, nil
}

// Len returns the number of events in the list (LLEN).
func (s *RedisSink) Len(ctx context.Context) (int, error) {
	n, err := s.client.LLen(ctx, s.key).Result()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
