package signal_test

import (
	"context"
	"errors"
	"testing"

	"github.com/codi-platform/orchestrator-core/signal"
	"github.com/stretchr/testify/require"
)

func TestSubscriptionUniquenessAndPriorityOrder(t *testing.T) {
	e := signal.New(signal.Options{})
	var order []string
	e.Subscribe("low", signal.NeedsBuild, func(ctx context.Context, evt signal.Event) error {
		order = append(order, "low")
		return nil
	}, 1)
	e.Subscribe("high", signal.NeedsBuild, func(ctx context.Context, evt signal.Event) error {
		order = append(order, "high")
		return nil
	}, 10)
	// Duplicate subscribe for the same (agent, signal) is a no-op.
	e.Subscribe("low", signal.NeedsBuild, func(ctx context.Context, evt signal.Event) error {
		order = append(order, "low-dup")
		return nil
	}, 99)

	require.ElementsMatch(t, []string{"low", "high"}, e.GetSubscribers(signal.NeedsBuild))

	e.Emit(context.Background(), signal.NeedsBuild, "proj-1", signal.EmitOptions{})
	require.Equal(t, []string{"high", "low"}, order, "higher priority subscriber must run first")
}

func TestHandlerIsolation(t *testing.T) {
	e := signal.New(signal.Options{})
	var ranB, ranC bool
	e.Subscribe("a", signal.NeedsBuild, func(context.Context, signal.Event) error {
		return errors.New("boom")
	}, 3)
	e.Subscribe("b", signal.NeedsBuild, func(context.Context, signal.Event) error {
		ranB = true
		return nil
	}, 2)
	e.Subscribe("c", signal.NeedsBuild, func(context.Context, signal.Event) error {
		ranC = true
		return nil
	}, 1)

	e.Emit(context.Background(), signal.NeedsBuild, "proj-1", signal.EmitOptions{})
	require.True(t, ranB)
	require.True(t, ranC, "a failing handler must not stop the others from running")
}

func TestIncompatibilityIsSymmetric(t *testing.T) {
	e := signal.New(signal.Options{})

	e.Emit(context.Background(), signal.PlanRejected, "proj-1", signal.EmitOptions{})
	require.True(t, e.IsActive(signal.PlanRejected, "proj-1"))

	e.Emit(context.Background(), signal.PlanApproved, "proj-1", signal.EmitOptions{})
	require.True(t, e.IsActive(signal.PlanApproved, "proj-1"))
	require.False(t, e.IsActive(signal.PlanRejected, "proj-1"), "approving a plan must retire a prior rejection")

	e.Emit(context.Background(), signal.PlanRejected, "proj-1", signal.EmitOptions{})
	require.False(t, e.IsActive(signal.PlanApproved, "proj-1"), "and the reverse must also hold")
}

func TestUnsubscribeAndUnsubscribeAll(t *testing.T) {
	e := signal.New(signal.Options{})
	e.Subscribe("sage", signal.ErrorOccurred, nil, 0)
	e.Subscribe("sage", signal.NeedsBuild, nil, 0)

	e.Unsubscribe("sage", signal.ErrorOccurred)
	require.NotContains(t, e.GetSubscriptions("sage"), signal.ErrorOccurred)
	require.Contains(t, e.GetSubscriptions("sage"), signal.NeedsBuild)

	e.UnsubscribeAll("sage")
	require.Empty(t, e.GetSubscriptions("sage"))
}

func TestHistoryAndActiveAreProjectScoped(t *testing.T) {
	e := signal.New(signal.Options{})
	e.Emit(context.Background(), signal.NeedsBuild, "proj-1", signal.EmitOptions{})
	e.Emit(context.Background(), signal.NeedsBuild, "proj-2", signal.EmitOptions{})

	require.True(t, e.IsActive(signal.NeedsBuild, "proj-1"))
	require.True(t, e.IsActive(signal.NeedsBuild, "proj-2"))

	e.Resolve(signal.NeedsBuild, "proj-1")
	require.False(t, e.IsActive(signal.NeedsBuild, "proj-1"))
	require.True(t, e.IsActive(signal.NeedsBuild, "proj-2"))

	history := e.GetHistory("proj-1", nil, 10)
	require.Len(t, history, 1)

	e.ClearProject("proj-2")
	require.False(t, e.IsActive(signal.NeedsBuild, "proj-2"))
}
