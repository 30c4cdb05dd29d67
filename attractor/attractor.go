// Package attractor declares the stable states Codi continuously works
// toward and evaluates whether the current artifact state satisfies them.
// When one is unsatisfied, it derives the signal that should nudge agents
// toward satisfying it.
package attractor

import (
	"github.com/codi-platform/orchestrator-core/artifact"
	"github.com/codi-platform/orchestrator-core/signal"
)

// Status is the evaluated state of an Attractor.
type Status string

const (
	StatusSatisfied   Status = "satisfied"
	StatusUnsatisfied Status = "unsatisfied"
	StatusBlocked     Status = "blocked"
)

// Predicate evaluates the artifact store and reports whether the attractor
// it belongs to currently holds. A nil Predicate is always satisfied.
type Predicate func(store *artifact.Store) bool

// Attractor is a named goal state: a predicate over the artifact store, the
// signal to derive while it's unmet, and the other attractors that must
// already hold before this one is even evaluated.
type Attractor struct {
	Name                string
	Description         string
	Evaluator           Predicate
	SignalOnUnsatisfied signal.Signal
	HasSignal           bool
	Priority            int
	DependsOn           []string
	Terminal            bool
}

// Satisfied runs a's predicate. No predicate means "always satisfied".
func (a Attractor) Satisfied(store *artifact.Store) bool {
	if a.Evaluator == nil {
		return true
	}
	return a.Evaluator(store)
}
