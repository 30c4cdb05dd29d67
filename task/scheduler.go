package task

import "context"

// Scheduler abstracts where a task function executes. Manager does not take
// a Scheduler: it always runs each worker on its own goroutine in the
// current process. No durable backend (e.g. a Temporal-backed
// implementation) ships in this module: nothing here assumes a Temporal
// server is reachable.
type Scheduler interface {
	// Schedule runs fn asynchronously, invoking done with its result once
	// fn returns or ctx is cancelled.
	Schedule(ctx context.Context, fn func(context.Context) (string, error), done func(result string, err error))
}

// inProcessScheduler runs fn on a plain goroutine.
type inProcessScheduler struct{}

// NewInProcessScheduler returns the default, single-process Scheduler.
func NewInProcessScheduler() Scheduler { return inProcessScheduler{} }

func (inProcessScheduler) Schedule(ctx context.Context, fn func(context.Context) (string, error), done func(result string, err error)) {
	go func() {
		result, err := fn(ctx)
		done(result, err)
	}()
}
