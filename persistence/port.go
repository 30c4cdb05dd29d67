// Package persistence defines the narrow boundary between this core and
// any durable relational store. It is intentionally small: an audit trail
// (operation log) and a task status mirror. Callers that have no
// relational store may pass a nil Port; every caller of Port treats a nil
// receiver as "not configured" and continues in-memory only.
package persistence

import "context"

// TaskUpdate is a partial update applied to a persisted task mirror.
type TaskUpdate struct {
	Status         string
	Error          *string
	ResultSummary  *string
	StartedAt      *int64 // unix millis
	CompletedAt    *int64 // unix millis
	DurationMillis *int64
}

// Port is the narrow persistence boundary this core depends on. It
// deliberately does not expose a query surface: every read this core needs
// is served from the in-memory artifact/session/task stores.
type Port interface {
	// InsertOperationLog appends an audit record. Implementations must not
	// mutate record.
	InsertOperationLog(ctx context.Context, record OperationLogRecord) error
	// UpsertAgentTask updates the relational mirror of a background task's
	// status. Neither the workflow executor nor the background task manager
	// calls it; the executor writes operation log records only.
	UpsertAgentTask(ctx context.Context, taskID string, update TaskUpdate) error
}
