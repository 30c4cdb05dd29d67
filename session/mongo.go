package session

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"goa.design/clue/health"
)

const (
	defaultSessionsCollection = "agent_sessions"
	defaultMongoOpTimeout     = 5 * time.Second
	sessionClientName         = "session-mongo"
)

// MongoOptions configures the optional Mongo-backed durability layer for
// sessions. The in-memory Store remains authoritative at runtime; Mongo
// here is a write-behind mirror used for audit/recovery, matching the
// "persistence port is optional" decision for this core.
type MongoOptions struct {
	Client             *mongodriver.Client
	Database           string
	SessionsCollection string
	Timeout            time.Duration
}

// MongoMirror persists Session snapshots to MongoDB whenever the in-memory
// Store mutates them. It implements the Store's Mirror interface; pass one
// via Options.Mirror and the Store invokes Save after every mutation.
type MongoMirror struct {
	mongo   *mongodriver.Client
	coll    *mongodriver.Collection
	timeout time.Duration
}

// NewMongoMirror returns a MongoMirror, bootstrapping a unique index on the
// session id field.
func NewMongoMirror(opts MongoOptions) (*MongoMirror, error) {
	if opts.Client == nil {
		return nil, errors.New("mongo client is required")
	}
	if opts.Database == "" {
		return nil, errors.New("database name is required")
	}
	collName := opts.SessionsCollection
	if collName == "" {
		collName = defaultSessionsCollection
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultMongoOpTimeout
	}
	coll := opts.Client.Database(opts.Database).Collection(collName)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if _, err := coll.Indexes().CreateOne(ctx, mongodriver.IndexModel{
		Keys:    bson.D{{Key: "id", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return nil, err
	}

	return &MongoMirror{mongo: opts.Client, coll: coll, timeout: timeout}, nil
}

// Name identifies this client for health-check aggregation.
func (m *MongoMirror) Name() string { return sessionClientName }

// Ping satisfies health.Pinger.
func (m *MongoMirror) Ping(ctx context.Context) error {
	return m.mongo.Ping(ctx, readpref.Primary())
}

var _ health.Pinger = (*MongoMirror)(nil)

// Save upserts a snapshot of s.
func (m *MongoMirror) Save(ctx context.Context, s Session) error {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	_, err := m.coll.UpdateOne(ctx,
		bson.D{{Key: "id", Value: s.ID}},
		bson.D{{Key: "$set", Value: s}},
		options.Update().SetUpsert(true),
	)
	return err
}

// Load returns the persisted snapshot for id, if any.
func (m *MongoMirror) Load(ctx context.Context, id string) (Session, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	var s Session
	err := m.coll.FindOne(ctx, bson.D{{Key: "id", Value: id}}).Decode(&s)
	if errors.Is(err, mongodriver.ErrNoDocuments) {
		return Session{}, false, nil
	}
	if err != nil {
		return Session{}, false, err
	}
	return s, true, nil
}
