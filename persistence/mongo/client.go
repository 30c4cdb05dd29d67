// Package mongo implements a MongoDB-backed persistence.Port.
package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"goa.design/clue/health"

	"github.com/codi-platform/orchestrator-core/persistence"
)

const (
	defaultOpLogCollection = "operation_log"
	defaultTasksCollection = "agent_tasks"
	defaultTimeout         = 5 * time.Second
	clientName             = "persistence-mongo"
)

type (
	// Options configures the Mongo-backed Port implementation.
	Options struct {
		Client          *mongodriver.Client
		Database        string
		OpLogCollection string
		TasksCollection string
		Timeout         time.Duration
	}

	client struct {
		mongo   *mongodriver.Client
		oplog   *mongodriver.Collection
		tasks   *mongodriver.Collection
		timeout time.Duration
	}

	opLogDocument struct {
		ID             primitive.ObjectID `bson:"_id,omitempty"`
		UserID         string             `bson:"user_id"`
		ProjectID      string             `bson:"project_id"`
		OperationType  string             `bson:"operation_type"`
		AgentType      string             `bson:"agent_type"`
		Message        string             `bson:"message"`
		Status         string             `bson:"status"`
		Details        map[string]any     `bson:"details,omitempty"`
		FilePath       string             `bson:"file_path,omitempty"`
		CommitSHA      string             `bson:"commit_sha,omitempty"`
		BranchName     string             `bson:"branch_name,omitempty"`
		LinesAdded     int                `bson:"lines_added,omitempty"`
		LinesRemoved   int                `bson:"lines_removed,omitempty"`
		DurationMillis int64              `bson:"duration_ms,omitempty"`
		ErrorMessage   string             `bson:"error_message,omitempty"`
		CreatedAt      time.Time          `bson:"created_at"`
	}
)

// New returns a persistence.Port backed by MongoDB, bootstrapping indexes
// on both collections.
func New(opts Options) (persistence.Port, error) {
	if opts.Client == nil {
		return nil, errors.New("mongo client is required")
	}
	if opts.Database == "" {
		return nil, errors.New("database name is required")
	}
	opLogColl := opts.OpLogCollection
	if opLogColl == "" {
		opLogColl = defaultOpLogCollection
	}
	tasksColl := opts.TasksCollection
	if tasksColl == "" {
		tasksColl = defaultTasksCollection
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	db := opts.Client.Database(opts.Database)
	oplog := db.Collection(opLogColl)
	tasks := db.Collection(tasksColl)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if _, err := oplog.Indexes().CreateOne(ctx, mongodriver.IndexModel{
		Keys: bson.D{{Key: "project_id", Value: 1}, {Key: "created_at", Value: -1}},
	}); err != nil {
		return nil, err
	}
	if _, err := tasks.Indexes().CreateOne(ctx, mongodriver.IndexModel{
		Keys:    bson.D{{Key: "task_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return nil, err
	}

	return &client{mongo: opts.Client, oplog: oplog, tasks: tasks, timeout: timeout}, nil
}

// Name identifies this client for health-check aggregation.
func (c *client) Name() string { return clientName }

// Ping satisfies health.Pinger.
func (c *client) Ping(ctx context.Context) error {
	return c.mongo.Ping(ctx, readpref.Primary())
}

var _ health.Pinger = (*client)(nil)
var _ persistence.Port = (*client)(nil)

func (c *client) InsertOperationLog(ctx context.Context, record persistence.OperationLogRecord) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	doc := opLogDocument{
		UserID:         record.UserID,
		ProjectID:      record.ProjectID,
		OperationType:  string(record.OperationType),
		AgentType:      string(record.AgentType),
		Message:        record.Message,
		Status:         string(record.Status),
		Details:        record.Details,
		FilePath:       record.FilePath,
		CommitSHA:      record.CommitSHA,
		BranchName:     record.BranchName,
		LinesAdded:     record.LinesAdded,
		LinesRemoved:   record.LinesRemoved,
		DurationMillis: record.DurationMillis,
		ErrorMessage:   record.ErrorMessage,
		CreatedAt:      record.CreatedAt.UTC(),
	}
	_, err := c.oplog.InsertOne(ctx, doc)
	return err
}

func (c *client) UpsertAgentTask(ctx context.Context, taskID string, update persistence.TaskUpdate) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	set := bson.M{"status": update.Status}
	if update.Error != nil {
		set["error"] = *update.Error
	}
	if update.ResultSummary != nil {
		set["result_summary"] = *update.ResultSummary
	}
	if update.StartedAt != nil {
		set["started_at"] = *update.StartedAt
	}
	if update.CompletedAt != nil {
		set["completed_at"] = *update.CompletedAt
	}
	if update.DurationMillis != nil {
		set["duration_ms"] = *update.DurationMillis
	}

	_, err := c.tasks.UpdateOne(ctx,
		bson.D{{Key: "task_id", Value: taskID}},
		bson.D{{Key: "$set", Value: set}},
		options.Update().SetUpsert(true),
	)
	return err
}
