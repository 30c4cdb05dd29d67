package attractor

import (
	"github.com/codi-platform/orchestrator-core/artifact"
	"github.com/codi-platform/orchestrator-core/signal"
)

// Default returns the seven attractors every project converges toward,
// keyed by name.
func Default() map[string]Attractor {
	return map[string]Attractor{
		"project_builds": {
			Name:                "project_builds",
			Description:         "Project builds successfully without errors",
			Evaluator:           func(s *artifact.Store) bool { return s.BuildSucceeded() },
			SignalOnUnsatisfied: signal.NeedsBuild,
			HasSignal:           true,
			Priority:            10,
		},
		"preview_available": {
			Name:                "preview_available",
			Description:         "A preview URL is available for the project",
			Evaluator:           func(s *artifact.Store) bool { return s.HasPreview() },
			SignalOnUnsatisfied: signal.NeedsPreview,
			HasSignal:           true,
			Priority:            5,
			DependsOn:           []string{"project_builds"},
		},
		"no_errors": {
			Name:                "no_errors",
			Description:         "No active error conditions exist",
			Evaluator:           func(s *artifact.Store) bool { return !s.HasErrors() },
			SignalOnUnsatisfied: signal.ErrorOccurred,
			HasSignal:           true,
			Priority:            20,
		},
		"git_clean": {
			Name:                "git_clean",
			Description:         "All changes are committed to git",
			Evaluator: func(s *artifact.Store) bool {
				// Approximated by the absence of pending file artifacts;
				// git itself is not queried.
				pending := artifact.StatusPending
				return len(s.GetByType(artifact.TypeFile, &pending, 1)) == 0
			},
			SignalOnUnsatisfied: signal.DirtyGitState,
			HasSignal:           true,
			Priority:            3,
		},
		"has_scaffold": {
			Name:                "has_scaffold",
			Description:         "Project has been scaffolded with initial files",
			Evaluator:           func(s *artifact.Store) bool { return len(s.GetFileArtifacts()) > 0 },
			SignalOnUnsatisfied: signal.NeedsScaffold,
			HasSignal:           true,
			Priority:            15,
		},
		"plan_approved": {
			Name:        "plan_approved",
			Description: "Implementation plan has been approved (if needed)",
			Evaluator:   func(s *artifact.Store) bool { return s.PlanApproved() },
			// No signal: an unapproved plan needs user action, not an agent.
			HasSignal: false,
			Priority:  25,
		},
		"tests_passing": {
			Name:                "tests_passing",
			Description:         "All tests are passing",
			Evaluator:           func(s *artifact.Store) bool { return s.TestsPassed() },
			SignalOnUnsatisfied: signal.TestsFailing,
			HasSignal:           true,
			Priority:            8,
			DependsOn:           []string{"project_builds"},
		},
	}
}
