package task_test

import (
	"context"
	"testing"

	"github.com/codi-platform/orchestrator-core/agentkit"
	"github.com/codi-platform/orchestrator-core/task"
	"github.com/stretchr/testify/require"
)

func TestDelegateAdapterSatisfiesLauncher(t *testing.T) {
	var _ agentkit.Launcher = (*task.DelegateAdapter)(nil)
}

func TestDelegateInvokeRunsThroughAdapter(t *testing.T) {
	m := task.New(task.Options{})
	m.RegisterWorker("reviewer", func(ctx context.Context, tk task.BackgroundTask, report func(string)) (string, error) {
		report("read_diff")
		return "looks good", nil
	})

	delegate := agentkit.NewDelegate(task.NewDelegateAdapter(m), "planner")

	result, err := delegate.Invoke(context.Background(), agentkit.LaunchInput{
		Agent:       "reviewer",
		Description: "review the diff",
		Prompt:      "review the diff",
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.TaskID)

	final, err := m.Await(context.Background(), result.TaskID)
	require.NoError(t, err)
	require.Equal(t, task.StatusCompleted, final.Status)
	require.Equal(t, "looks good", final.Result)
	require.Equal(t, "planner", final.ParentAgent)
}

func TestDelegateDispatchReturnsImmediately(t *testing.T) {
	m := task.New(task.Options{})
	block := make(chan struct{})
	m.RegisterWorker("builder", func(ctx context.Context, tk task.BackgroundTask, report func(string)) (string, error) {
		<-block
		return "built", nil
	})

	delegate := agentkit.NewDelegate(task.NewDelegateAdapter(m), "orchestrator")

	result, err := delegate.Dispatch(context.Background(), agentkit.LaunchInput{Agent: "builder", Prompt: "build it"})
	require.NoError(t, err)
	require.NotEmpty(t, result.TaskID)

	close(block)
	final, err := m.Await(context.Background(), result.TaskID)
	require.NoError(t, err)
	require.Equal(t, task.StatusCompleted, final.Status)
}
