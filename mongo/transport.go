// Package mongo provides a raven Transport that stores events in a MongoDB
// collection.
package mongo

import (
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/petrijr/raven"

	msink "github.com/petrijr/raven/mongo/internal/sink"
)

// Sink is the Mongo-backed transport.
type Sink = msink.MongoSink

// StoredEvent is one stored document.
type StoredEvent = msink.StoredEvent

// NewTransport returns a transport writing to dbName.collName.
// dbName defaults to "raven", collName to "events".
func NewTransport(client *mongo.Client, dbName, collName string) *Sink {
	return msink.NewMongoSink(client, dbName, collName)
}

// Ensure Sink implements raven.Transport.
var _ raven.Transport = (*Sink)(nil)
