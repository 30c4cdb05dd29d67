// Package task implements the background task manager: launching
// long-running agent invocations out of band, tracking their progress,
// bounding concurrency, and supporting cooperative cancellation.
package task

import (
	"context"
	"time"
)

// Status is the lifecycle state of a BackgroundTask.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Progress tracks incremental execution state reported by the running worker.
type Progress struct {
	ToolCalls  int
	LastTool   string
	LastUpdate time.Time
}

// BackgroundTask is the durable record of one out-of-band agent invocation.
type BackgroundTask struct {
	ID                string
	SessionID         string
	ParentSessionID   string
	ParentMessageID   string
	ParentAgent       string
	Agent             string
	Description       string
	Prompt            string
	Status            Status
	StartedAt         time.Time
	CompletedAt       *time.Time
	Error             string
	Result            string
	Progress          Progress
	ConcurrencyKey    string
	Category          string
	Skills            []string
}

// LaunchInput is the input to Launch.
type LaunchInput struct {
	Description     string
	Prompt          string
	Agent           string
	ParentSessionID string
	ParentMessageID string
	ParentAgent     string
	Category        string
	Skills          []string
	ConcurrencyKey  string
}

// ResumeInput is the input to Resume.
type ResumeInput struct {
	SessionID       string
	Prompt          string
	ParentSessionID string
}

// Worker executes a launched or resumed task. ctx is cancelled cooperatively
// when the task is cancelled; Worker must check it at suspension points
// between tool/LLM calls. report lets the worker push progress updates
// without going through the manager's public UpdateProgress call.
type Worker func(ctx context.Context, task BackgroundTask, report func(toolName string)) (result string, err error)
