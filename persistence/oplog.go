package persistence

import "time"

// OperationType is a closed, forward-compatible enum of operation log
// kinds. New values may be added as the system grows; callers should not
// treat an unrecognized value as an error.
type OperationType string

const (
	OperationAgentTaskStarted   OperationType = "agent_task_started"
	OperationAgentTaskCompleted OperationType = "agent_task_completed"
	OperationAgentTaskFailed    OperationType = "agent_task_failed"
	OperationAgentTaskCancelled OperationType = "agent_task_cancelled"
	OperationFileChanged        OperationType = "file_changed"
	OperationCommitCreated      OperationType = "commit_created"
	OperationBuildRun           OperationType = "build_run"
	OperationDeployment         OperationType = "deployment"
)

// AgentType mirrors the agent/producer taxonomy recorded for audit.
// Forward-compatible: unrecognized values are passed through, not rejected.
type AgentType string

const (
	AgentBuilder    AgentType = "builder"
	AgentScaffolder AgentType = "scaffolder"
	AgentPlanner    AgentType = "planner"
	AgentReviewer   AgentType = "reviewer"
	AgentResearcher AgentType = "researcher"
	AgentOrchestrator AgentType = "orchestrator"
)

// Status is the outcome recorded against an operation log entry.
type Status string

const (
	StatusOK       Status = "ok"
	StatusFailed   Status = "failed"
	StatusCancelled Status = "cancelled"
)

// OperationLogRecord is a narrow, append-only audit record.
type OperationLogRecord struct {
	ID            string
	UserID        string
	ProjectID     string
	OperationType OperationType
	AgentType     AgentType
	Message       string
	Status        Status
	Details       map[string]any
	FilePath      string
	CommitSHA     string
	BranchName    string
	LinesAdded    int
	LinesRemoved  int
	DurationMillis int64
	ErrorMessage  string
	CreatedAt     time.Time
}
