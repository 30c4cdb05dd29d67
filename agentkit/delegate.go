package agentkit

import "context"

type (
	// LaunchInput mirrors the background task manager's launch input so
	// delegation can be expressed without importing the task package
	// (avoiding a cycle, since task workers are themselves agentkit
	// consumers).
	LaunchInput struct {
		Description       string
		Prompt            string
		Agent             string
		ParentSessionID   string
		ParentMessageID   string
		ParentAgent       string
		Category          string
		Skills            []string
		ConcurrencyKey    string
	}

	// LaunchResult is the minimal handle returned by a delegated launch.
	LaunchResult struct {
		TaskID    string
		SessionID string
	}

	// Launcher is the subset of the background task manager's surface
	// delegation needs. task.Manager does not satisfy this directly (its
	// LaunchInput/BackgroundTask types carry more fields than delegation
	// needs); task.NewDelegateAdapter bridges the two.
	Launcher interface {
		Launch(ctx context.Context, input LaunchInput) (LaunchResult, error)
		Await(ctx context.Context, taskID string) (LaunchResult, error)
	}

	// Delegate lets a worker invoke another worker either synchronously
	// (await the result) or asynchronously (fire and forget, returning the
	// background task id). Delegation is a courtesy: the canonical
	// activation mechanism remains the signal engine.
	Delegate struct {
		launcher Launcher
		fromAgent string
	}
)

// NewDelegate binds a Delegate to the launcher used to run other workers,
// tagging every delegated launch with fromAgent as ParentAgent.
func NewDelegate(launcher Launcher, fromAgent string) *Delegate {
	return &Delegate{launcher: launcher, fromAgent: fromAgent}
}

// Invoke launches another worker and blocks until it completes.
func (d *Delegate) Invoke(ctx context.Context, input LaunchInput) (LaunchResult, error) {
	input.ParentAgent = d.fromAgent
	launched, err := d.launcher.Launch(ctx, input)
	if err != nil {
		return LaunchResult{}, err
	}
	return d.launcher.Await(ctx, launched.TaskID)
}

// Dispatch launches another worker and returns immediately with its task id.
func (d *Delegate) Dispatch(ctx context.Context, input LaunchInput) (LaunchResult, error) {
	input.ParentAgent = d.fromAgent
	return d.launcher.Launch(ctx, input)
}
