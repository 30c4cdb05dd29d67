package workflow

import "time"

// TurnInput is one user turn submitted to the executor.
type TurnInput struct {
	ProjectID     string
	UserID        string
	TaskID        string
	UserMessage   string
	ProjectFolder string
	// IntentSignal, if set, is emitted directly before the convergence loop
	// runs (step 5 of the turn flow: explicit intent such as "approve plan").
	IntentSignal string
}

// TurnResult summarizes how a turn concluded.
type TurnResult struct {
	SessionID             string
	AllSatisfied          bool
	Iterations            int
	BlockedAttractors     []string
	UnsatisfiedAttractors []string
	ActiveErrors          int
	Summary               string
	Duration              time.Duration
}
