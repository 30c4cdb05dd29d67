package attractor_test

import (
	"context"
	"testing"
	"time"

	"github.com/codi-platform/orchestrator-core/artifact"
	"github.com/codi-platform/orchestrator-core/attractor"
	"github.com/codi-platform/orchestrator-core/signal"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *artifact.Store {
	t.Helper()
	return artifact.New(artifact.Options{ProjectID: "proj-1"})
}

func TestDependentAttractorBlockedUntilDependencySatisfied(t *testing.T) {
	store := newStore(t)
	eval := attractor.New(attractor.Options{Store: store})
	ctx := context.Background()

	result := eval.Evaluate(nil)
	require.Equal(t, attractor.StatusBlocked, result.Results["preview_available"].Status,
		"preview_available depends on project_builds, which is unsatisfied with no build artifact")

	_, err := store.Produce(ctx, artifact.TypeBuild, "builder", "ok", map[string]any{
		artifact.MetaSuccess:     true,
		artifact.MetaTestsPassed: true,
	})
	require.NoError(t, err)

	result = eval.Evaluate(nil)
	require.Equal(t, attractor.StatusUnsatisfied, result.Results["preview_available"].Status)
}

func TestUnsatisfiedAttractorsDeriveSignals(t *testing.T) {
	store := newStore(t)
	eval := attractor.New(attractor.Options{Store: store})

	result := eval.Evaluate([]string{"has_scaffold"})
	require.Contains(t, result.SignalsToEmit, signal.NeedsScaffold)
}

func TestPlanApprovedNeverEmitsSignalWhenUnmet(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	_, err := store.Produce(ctx, artifact.TypePlan, "planner", "do the thing", map[string]any{
		artifact.MetaPlanStatus: artifact.PlanStatusPendingReview,
	})
	require.NoError(t, err)

	eval := attractor.New(attractor.Options{Store: store})
	result := eval.Evaluate([]string{"plan_approved"})

	require.Equal(t, attractor.StatusUnsatisfied, result.Results["plan_approved"].Status)
	require.Empty(t, result.SignalsToEmit, "plan_approved must never derive a signal; it requires user action")
}

type fakeEngine struct {
	emitted []signal.Signal
}

func (f *fakeEngine) Emit(ctx context.Context, sig signal.Signal, projectID string, opts signal.EmitOptions) signal.Event {
	f.emitted = append(f.emitted, sig)
	return signal.Event{Signal: sig, ProjectID: projectID}
}

func TestRunUntilSatisfiedConvergesOnceScaffoldArrives(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	engine := &fakeEngine{}
	eval := attractor.New(attractor.Options{Store: store, Engine: engine})

	go func() {
		time.Sleep(5 * time.Millisecond)
		store.Produce(ctx, artifact.TypeFile, "scaffolder", "package main", nil)
	}()

	result := eval.RunUntilSatisfied(ctx, []string{"has_scaffold"}, time.Second, 2*time.Millisecond, 200)
	require.Equal(t, attractor.StatusSatisfied, result.Results["has_scaffold"].Status)
	require.True(t, result.AllSatisfied)
	require.True(t, eval.IsConverged())
}

func TestRunUntilSatisfiedRespectsMaxIterations(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	eval := attractor.New(attractor.Options{Store: store})

	result := eval.RunUntilSatisfied(ctx, []string{"has_scaffold"}, time.Second, time.Millisecond, 3)
	require.False(t, result.AllSatisfied)
}
