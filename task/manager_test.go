package task_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/codi-platform/orchestrator-core/orcherr"
	"github.com/codi-platform/orchestrator-core/task"
	"github.com/stretchr/testify/require"
)

func TestLaunchCompletesAndRecordsResult(t *testing.T) {
	m := task.New(task.Options{})
	m.RegisterWorker("builder", func(ctx context.Context, t task.BackgroundTask, report func(string)) (string, error) {
		report("npm_build")
		return "build ok", nil
	})

	launched, err := m.Launch(context.Background(), task.LaunchInput{Agent: "builder", Prompt: "build it"})
	require.NoError(t, err)

	final, err := m.Await(context.Background(), launched.ID)
	require.NoError(t, err)
	require.Equal(t, task.StatusCompleted, final.Status)
	require.Equal(t, "build ok", final.Result)
	require.Equal(t, 1, final.Progress.ToolCalls)
	require.Equal(t, "npm_build", final.Progress.LastTool)
}

func TestLaunchRejectsUnknownAgent(t *testing.T) {
	m := task.New(task.Options{})
	_, err := m.Launch(context.Background(), task.LaunchInput{Agent: "ghost"})
	require.ErrorIs(t, err, orcherr.ErrUnknownAgent)
}

func TestConcurrencyKeyRejectsOverlap(t *testing.T) {
	m := task.New(task.Options{})
	block := make(chan struct{})
	m.RegisterWorker("builder", func(ctx context.Context, t task.BackgroundTask, report func(string)) (string, error) {
		<-block
		return "done", nil
	})

	_, err := m.Launch(context.Background(), task.LaunchInput{Agent: "builder", ConcurrencyKey: "proj-1-build"})
	require.NoError(t, err)

	_, err = m.Launch(context.Background(), task.LaunchInput{Agent: "builder", ConcurrencyKey: "proj-1-build"})
	require.ErrorIs(t, err, orcherr.ErrConcurrencyKeyBusy)

	close(block)
}

func TestCancelMarksTaskCancelled(t *testing.T) {
	m := task.New(task.Options{})
	started := make(chan struct{})
	m.RegisterWorker("builder", func(ctx context.Context, t task.BackgroundTask, report func(string)) (string, error) {
		close(started)
		<-ctx.Done()
		return "", ctx.Err()
	})

	launched, err := m.Launch(context.Background(), task.LaunchInput{Agent: "builder"})
	require.NoError(t, err)

	<-started
	m.Cancel(launched.ID)

	final, err := m.Await(context.Background(), launched.ID)
	require.NoError(t, err)
	require.Equal(t, task.StatusCancelled, final.Status)
}

func TestOutputTruncation(t *testing.T) {
	m := task.New(task.Options{OutputTruncateChars: 10})
	m.RegisterWorker("builder", func(ctx context.Context, t task.BackgroundTask, report func(string)) (string, error) {
		return "this result is definitely longer than ten characters", nil
	})

	launched, err := m.Launch(context.Background(), task.LaunchInput{Agent: "builder"})
	require.NoError(t, err)
	final, err := m.Await(context.Background(), launched.ID)
	require.NoError(t, err)
	require.Len(t, final.Result, 10)
}

func TestCancelAllCancelsEveryRunningTask(t *testing.T) {
	m := task.New(task.Options{})
	m.RegisterWorker("builder", func(ctx context.Context, t task.BackgroundTask, report func(string)) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})

	var ids []string
	for i := 0; i < 3; i++ {
		launched, err := m.Launch(context.Background(), task.LaunchInput{Agent: "builder"})
		require.NoError(t, err)
		ids = append(ids, launched.ID)
	}

	require.Eventually(t, func() bool {
		return len(m.GetRunningTasks()) == 3
	}, time.Second, time.Millisecond)

	require.Equal(t, 3, m.CancelAll())

	for _, id := range ids {
		final, err := m.Await(context.Background(), id)
		require.NoError(t, err)
		require.Equal(t, task.StatusCancelled, final.Status)
	}
}

func TestResumeRejectsUnknownSession(t *testing.T) {
	m := task.New(task.Options{})
	_, err := m.Resume(context.Background(), task.ResumeInput{SessionID: "nope", Prompt: "continue"})
	require.True(t, errors.Is(err, orcherr.ErrTaskNotFound))
}
