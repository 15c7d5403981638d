// Package redis provides a raven Transport that pushes events onto a Redis
// list for an out-of-process consumer.
package redis

import (
	"github.com/redis/go-redis/v9"

	"github.com/petrijr/raven"

	rsink "github.com/petrijr/raven/redis/internal/sink"
)

// Envelope is the JSON value stored for every event.
type Envelope = rsink.Envelope

// Sink is the Redis-backed transport. Besides Send it offers Pop and Len
// for consumers.
type Sink = rsink.RedisSink

// NewTransport returns a transport pushing to "<prefix>events". A positive
// maxLen caps the list to the newest maxLen events.
func NewTransport(client *redis.Client, prefix string, maxLen int64) *Sink {
	return rsink.NewRedisSink(client, prefix, maxLen)
}

// Ensure Sink implements raven.Transport.
var _ raven.Transport = (*Sink)(nil)
