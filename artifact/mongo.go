package artifact

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"goa.design/clue/health"
)

const (
	defaultArtifactsCollection = "artifacts"
	defaultMongoOpTimeout      = 5 * time.Second
	artifactClientName         = "artifact-mongo"
)

// MongoOptions configures the Mongo-backed MetadataPort.
type MongoOptions struct {
	// Client is the connected Mongo client. Required.
	Client *mongodriver.Client
	// Database is the database name. Required.
	Database string
	// ArtifactsCollection overrides the default "artifacts" collection name.
	ArtifactsCollection string
	// Timeout bounds individual operations. Defaults to 5 seconds.
	Timeout time.Duration
}

// mongoMetadataPort is the Mongo-backed implementation of MetadataPort. It
// also exposes health.Pinger so it can be wired into a service's health
// check aggregation the way every other Mongo-backed client in this runtime
// is.
type mongoMetadataPort struct {
	mongo   *mongodriver.Client
	coll    *mongodriver.Collection
	timeout time.Duration
}

// NewMongoMetadataPort returns a MetadataPort backed by MongoDB, bootstrapping
// a unique index on the artifact id field.
func NewMongoMetadataPort(opts MongoOptions) (MetadataPort, error) {
	if opts.Client == nil {
		return nil, errors.New("mongo client is required")
	}
	if opts.Database == "" {
		return nil, errors.New("database name is required")
	}
	collName := opts.ArtifactsCollection
	if collName == "" {
		collName = defaultArtifactsCollection
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultMongoOpTimeout
	}
	coll := opts.Client.Database(opts.Database).Collection(collName)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	_, err := coll.Indexes().CreateOne(ctx, mongodriver.IndexModel{
		Keys:    bson.D{{Key: "id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, err
	}

	return &mongoMetadataPort{mongo: opts.Client, coll: coll, timeout: timeout}, nil
}

// Name identifies this client for health-check aggregation.
func (m *mongoMetadataPort) Name() string { return artifactClientName }

// Ping satisfies health.Pinger.
func (m *mongoMetadataPort) Ping(ctx context.Context) error {
	return m.mongo.Ping(ctx, nil)
}

var _ health.Pinger = (*mongoMetadataPort)(nil)

func (m *mongoMetadataPort) UpsertArtifact(ctx context.Context, a Artifact) error {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	doc := diskArtifact{
		ID:          a.ID,
		Type:        a.Type,
		Producer:    a.Producer,
		ProjectID:   a.ProjectID,
		Content:     a.Content,
		ContentHash: a.ContentHash,
		Metadata:    a.Metadata,
		Status:      a.Status,
		ParentID:    a.ParentID,
		RelatedIDs:  a.RelatedIDs,
		CreatedAt:   a.CreatedAt.Format(timeLayout),
	}
	_, err := m.coll.UpdateOne(ctx,
		bson.D{{Key: "id", Value: a.ID}},
		bson.D{{Key: "$set", Value: doc}},
		options.Update().SetUpsert(true),
	)
	return err
}

func (m *mongoMetadataPort) LoadArtifact(ctx context.Context, id string) (Artifact, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	var doc diskArtifact
	err := m.coll.FindOne(ctx, bson.D{{Key: "id", Value: id}}).Decode(&doc)
	if errors.Is(err, mongodriver.ErrNoDocuments) {
		return Artifact{}, false, nil
	}
	if err != nil {
		return Artifact{}, false, err
	}
	createdAt, err := parseTime(doc.CreatedAt)
	if err != nil {
		return Artifact{}, false, err
	}
	return Artifact{
		ID:          doc.ID,
		Type:        doc.Type,
		Producer:    doc.Producer,
		ProjectID:   doc.ProjectID,
		Content:     doc.Content,
		ContentHash: doc.ContentHash,
		Metadata:    doc.Metadata,
		Status:      doc.Status,
		ParentID:    doc.ParentID,
		RelatedIDs:  doc.RelatedIDs,
		CreatedAt:   createdAt,
	}, true, nil
}
