package workflow_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/codi-platform/orchestrator-core/artifact"
	"github.com/codi-platform/orchestrator-core/orcherr"
	"github.com/codi-platform/orchestrator-core/session"
	"github.com/codi-platform/orchestrator-core/signal"
	"github.com/codi-platform/orchestrator-core/workflow"
	"github.com/stretchr/testify/require"
)

func newExecutor(t *testing.T) (*workflow.Executor, *artifact.Store) {
	t.Helper()
	store := artifact.New(artifact.Options{ProjectID: "proj-1"})
	sessions := session.New(session.Options{})
	engine := signal.New(signal.Options{})
	exec := workflow.New(workflow.Options{
		Sessions:      sessions,
		Engine:        engine,
		NewStore:      func(projectID, folder string) *artifact.Store { return store },
		Timeout:       time.Second,
		PollInterval:  time.Millisecond,
		MaxIterations: 500,
	})
	return exec, store
}

func TestExecuteTurnConvergesWhenArtifactsArriveDuringLoop(t *testing.T) {
	exec, store := newExecutor(t)
	ctx := context.Background()

	go func() {
		time.Sleep(5 * time.Millisecond)
		store.Produce(ctx, artifact.TypeFile, "scaffolder", "package main", nil)
		store.Produce(ctx, artifact.TypeBuild, "builder", "ok", map[string]any{
			artifact.MetaSuccess:     true,
			artifact.MetaTestsPassed: true,
		})
		store.Produce(ctx, artifact.TypePreview, "builder", "https://preview.example", nil)
	}()

	result, err := exec.ExecuteTurn(ctx, workflow.TurnInput{
		ProjectID:   "proj-1",
		UserID:      "user-1",
		UserMessage: "scaffold and build my app",
	})
	require.NoError(t, err)
	require.True(t, result.AllSatisfied)
	require.NotEmpty(t, result.SessionID)
}

func TestExecuteTurnRejectsOverlappingTurnsForSameProject(t *testing.T) {
	exec, _ := newExecutor(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(2)
	for i := 0; i < 2; i++ {
		i := i
		go func() {
			defer wg.Done()
			_, err := exec.ExecuteTurn(ctx, workflow.TurnInput{
				ProjectID:   "proj-1",
				UserID:      "user-1",
				UserMessage: "go",
			})
			errs[i] = err
		}()
	}
	wg.Wait()

	busyCount := 0
	for _, err := range errs {
		if err == orcherr.ErrTurnInProgress {
			busyCount++
		}
	}
	require.Equal(t, 1, busyCount, "exactly one of the two concurrent turns must be rejected")
}

func TestExecuteTurnReportsBlockedAndUnsatisfiedWhenNotConverged(t *testing.T) {
	exec, _ := newExecutor(t)
	ctx := context.Background()

	result, err := exec.ExecuteTurn(ctx, workflow.TurnInput{
		ProjectID:   "proj-2",
		UserID:      "user-1",
		UserMessage: "build it",
	})
	require.NoError(t, err)
	require.False(t, result.AllSatisfied)
	require.NotEmpty(t, result.BlockedAttractors)
	require.NotEmpty(t, result.UnsatisfiedAttractors)
	require.NotEmpty(t, result.Summary)
}
