package task

import (
	"context"

	"github.com/codi-platform/orchestrator-core/agentkit"
)

// DelegateAdapter adapts a Manager to agentkit.Launcher, translating between
// the task package's own LaunchInput/BackgroundTask and agentkit's narrower
// delegation types. agentkit cannot import task directly (task workers are
// themselves agentkit consumers), so this adapter lives on the task side of
// that boundary.
type DelegateAdapter struct {
	manager *Manager
}

// NewDelegateAdapter wraps manager for use as an agentkit.Launcher.
func NewDelegateAdapter(manager *Manager) *DelegateAdapter {
	return &DelegateAdapter{manager: manager}
}

// Launch satisfies agentkit.Launcher.
func (a *DelegateAdapter) Launch(ctx context.Context, input agentkit.LaunchInput) (agentkit.LaunchResult, error) {
	t, err := a.manager.Launch(ctx, LaunchInput{
		Description:     input.Description,
		Prompt:          input.Prompt,
		Agent:           input.Agent,
		ParentSessionID: input.ParentSessionID,
		ParentMessageID: input.ParentMessageID,
		ParentAgent:     input.ParentAgent,
		Category:        input.Category,
		Skills:          input.Skills,
		ConcurrencyKey:  input.ConcurrencyKey,
	})
	if err != nil {
		return agentkit.LaunchResult{}, err
	}
	return agentkit.LaunchResult{TaskID: t.ID, SessionID: t.SessionID}, nil
}

// Await satisfies agentkit.Launcher.
func (a *DelegateAdapter) Await(ctx context.Context, taskID string) (agentkit.LaunchResult, error) {
	t, err := a.manager.Await(ctx, taskID)
	if err != nil {
		return agentkit.LaunchResult{}, err
	}
	return agentkit.LaunchResult{TaskID: t.ID, SessionID: t.SessionID}, nil
}

var _ agentkit.Launcher = (*DelegateAdapter)(nil)
