// Package orcherr collects the sentinel errors the orchestrator packages use
// to signal well-known rejection conditions to callers.
package orcherr

import "errors"

var (
	// ErrConcurrencyKeyBusy indicates a background task with the same
	// concurrency key is already running.
	ErrConcurrencyKeyBusy = errors.New("concurrency key busy")
	// ErrTurnInProgress indicates a workflow turn is already executing for
	// the project and a new turn was rejected rather than queued.
	ErrTurnInProgress = errors.New("turn already in progress for project")
	// ErrUnknownSignal indicates an operation referenced a signal value
	// outside the closed enum.
	ErrUnknownSignal = errors.New("unknown signal")
	// ErrUnknownAgent indicates an operation referenced an agent name that
	// is not registered.
	ErrUnknownAgent = errors.New("unknown agent")
	// ErrTaskNotFound indicates a background task ID has no matching record.
	ErrTaskNotFound = errors.New("task not found")
	// ErrArtifactNotFound indicates an artifact ID has no matching record.
	ErrArtifactNotFound = errors.New("artifact not found")
)
