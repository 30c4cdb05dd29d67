// Package signal implements the pub/sub routing layer that drives agent
// activation: signals are derived from artifact state, agents subscribe to
// the signals they can handle, and emitting a signal notifies every
// subscriber in priority order.
package signal

import (
	"context"
	"time"
)

// Signal is a closed enum of system signals that drive agent activation.
type Signal string

const (
	// Build/preview signals.
	NeedsScaffold Signal = "needs_scaffold"
	NeedsBuild    Signal = "needs_build"
	BuildFailed   Signal = "build_failed"
	NeedsPreview  Signal = "needs_preview"
	PreviewStale  Signal = "preview_stale"

	// Code signals.
	NeedsImplementation Signal = "needs_implementation"
	CodeReviewNeeded    Signal = "code_review_needed"
	TestsFailing        Signal = "tests_failing"

	// Git signals.
	DirtyGitState Signal = "dirty_git_state"
	NeedsCommit   Signal = "needs_commit"
	NeedsPush     Signal = "needs_push"

	// Planning signals.
	PlanApproved Signal = "plan_approved"
	PlanRejected Signal = "plan_rejected"
	TaskComplete Signal = "task_complete"

	// Error signals.
	ErrorOccurred Signal = "error_occurred"
	ErrorResolved Signal = "error_resolved"

	// Analysis signals.
	NeedsAnalysis Signal = "needs_analysis"
	IntentParsed  Signal = "intent_parsed"

	// UI signals.
	NeedsUIDesign Signal = "needs_ui_design"
	NeedsUIPolish Signal = "needs_ui_polish"
)

// Priority is the urgency attached to an emitted signal.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityNormal   Priority = "normal"
	PriorityLow      Priority = "low"
)

// Event is a runtime emission: the signal plus the context an agent needs to
// act on it.
type Event struct {
	Signal        Signal
	ProjectID     string
	Context       map[string]any
	Source        string
	Priority      Priority
	ArtifactIDs   []string
	EmittedAt     time.Time
	CorrelationID string
}

// Handler reacts to an emitted Event. Returning an error marks this
// particular handler's invocation as failed; per Engine.Emit's contract
// that error is caught and logged, and does not stop other handlers from
// running.
type Handler func(ctx context.Context, event Event) error

// incompatible declares signal pairs that are mutually exclusive: emitting
// one removes the other from a project's active set. The table is
// symmetric, unlike the asymmetric table in the system this engine is
// descended from, so either member of a pair retires the other.
var incompatible = map[Signal][]Signal{
	ErrorResolved: {ErrorOccurred},
	ErrorOccurred: {ErrorResolved},
	PlanApproved:  {PlanRejected},
	PlanRejected:  {PlanApproved},
}
