package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/petrijr/raven/pkg/api"
)

// MongoSink implements api.Transport on top of a MongoDB collection.
//
// Collection schema:
//
//	{
//	  _id:         string,    // event id
//	  project_id:  string,
//	  level:       string,
//	  logger:      string,
//	  message:     string,
//	  culprit:     string,
//	  payload:     []byte,    // JSON-encoded Event
//	  received_at: time.Time,
//	}
type MongoSink struct {
	coll *mongo.Collection
}

type eventDoc struct {
	ID         string    `bson:"_id"`
	ProjectID  string    `bson:"project_id"`
	Level      string    `bson:"level"`
	Logger     string    `bson:"logger"`
	Message    string    `bson:"message"`
	Culprit    string    `bson:"culprit"`
	Payload    []byte    `bson:"payload"`
	ReceivedAt time.Time `bson:"received_at"`
}

// StoredEvent is one stored document.
type StoredEvent struct {
	ProjectID  string
	ReceivedAt time.Time
	Event      *api.Event
}

// NewMongoSink creates a Mongo-backed sink.
// dbName defaults to "raven", collName to "events".
func NewMongoSink(client *mongo.Client, dbName, collName string) *MongoSink {
	if dbName == "" {
		dbName = "raven"
	}
	if collName == "" {
		collName = "events"
	}
	return &MongoSink{
		coll: client.Database(dbName).Collection(collName),
	}
}

// Ensure MongoSink implements api.Transport.
var _ api.Transport = (*MongoSink)(nil)

// Collection returns the underlying collection.
func (s *MongoSink) Collection() *mongo.Collection {
	return s.coll
}

// Send inserts ev. A duplicate event id is ignored.
func (s *MongoSink) Send(ctx context.Context, cred api.Credential, ev *api.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("mongo sink: encode event: %w", err)
	}

	_, err = s.coll.InsertOne(ctx, eventDoc{
		ID:         ev.EventID,
		ProjectID:  cred.ProjectID,
		Level:      string(ev.Level),
		Logger:     ev.Logger,
		Message:    ev.Message,
		Culprit:    ev.Culprit,
		Payload:    payload,
		ReceivedAt: time.Now().UTC(),
	})
	if mongo.IsDuplicateKeyError(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("mongo sink: insert event %s: %w", ev.EventID, err)
	}
	return nil
}

// List returns up to limit stored events for projectID (all projects when
// empty), newest first. A limit <= 0 returns everything.
func (s *MongoSink) List(ctx context.Context, projectID string, limit int) ([]StoredEvent, error) {
	filter := bson.M{}
	if projectID != "" {
		filter["project_id"] = projectID
	}
	opts := options.Find().SetSort(bson.D{{Key: "received_at", Value: -1}, {Key: "_id", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cur, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo sink: list events: %w", err)
	}
	defer cur.Close(ctx)

	var out []StoredEvent
	for cur.Next(ctx) {
		var doc eventDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		var ev api.Event
		if err := json.Unmarshal(doc.Payload, &ev); err != nil {
			return nil, fmt.Errorf("mongo sink: decode event %s: %w", doc.ID, err)
		}
		out = append(out, StoredEvent{
			ProjectID:  doc.ProjectID,
			ReceivedAt: doc.ReceivedAt,
			Event:      &ev,
		})
	}
	return out, cur.Err()
}
