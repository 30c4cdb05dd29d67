package task

import (
	"context"
	"sync"
	"time"

	"github.com/codi-platform/orchestrator-core/orcherr"
	"github.com/codi-platform/orchestrator-core/telemetry"
	"github.com/google/uuid"
)

type (
	handle struct {
		done   chan struct{}
		cancel context.CancelFunc
	}

	// Manager launches long-running agent invocations out-of-band, tracks
	// their progress, and bounds concurrency by key. Workers are registered
	// by agent name ahead of time; Launch/Resume dispatch to the matching
	// worker on its own goroutine.
	Manager struct {
		log     telemetry.Logger
		metrics telemetry.Metrics
		tracer  telemetry.Tracer
		clock   func() time.Time
		truncAt int

		mu             sync.RWMutex
		tasks          map[string]BackgroundTask
		handles        map[string]handle
		byConcurrency  map[string]string // concurrency key -> task id
		workersByAgent map[string]Worker
	}

	// Options configures a Manager.
	Options struct {
		// Logger receives diagnostics. Defaults to a no-op logger.
		Logger telemetry.Logger
		// Metrics records launch/completion counters and run-duration
		// timers. Defaults to a no-op recorder.
		Metrics telemetry.Metrics
		// Tracer wraps each run in a span. Defaults to a no-op tracer.
		Tracer telemetry.Tracer
		// Clock returns the current time; overridable for tests.
		Clock func() time.Time
		// OutputTruncateChars bounds stored result/error text. Defaults to 1000.
		OutputTruncateChars int
	}
)

// New constructs a Manager. Register workers via RegisterWorker before
// calling Launch.
func New(opts Options) *Manager {
	log := opts.Logger
	if log == nil {
		log = telemetry.NewNoopLogger()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = telemetry.NewNoopMetrics()
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = telemetry.NewNoopTracer()
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	truncAt := opts.OutputTruncateChars
	if truncAt <= 0 {
		truncAt = 1000
	}
	return &Manager{
		log:           log,
		metrics:       metrics,
		tracer:        tracer,
		clock:         clock,
		truncAt:       truncAt,
		tasks:         make(map[string]BackgroundTask),
		handles:       make(map[string]handle),
		byConcurrency: make(map[string]string),
	}
}

// RegisterWorker wires the executor function for an agent name.
func (m *Manager) RegisterWorker(agent string, worker Worker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.workersByAgent == nil {
		m.workersByAgent = make(map[string]Worker)
	}
	m.workersByAgent[agent] = worker
}

// Launch registers a new task and schedules its execution. If input.ConcurrencyKey
// is set and another task is already running under that key, the request is
// rejected with orcherr.ErrConcurrencyKeyBusy.
func (m *Manager) Launch(ctx context.Context, input LaunchInput) (BackgroundTask, error) {
	m.mu.Lock()
	if input.ConcurrencyKey != "" {
		if _, busy := m.byConcurrency[input.ConcurrencyKey]; busy {
			m.mu.Unlock()
			return BackgroundTask{}, orcherr.ErrConcurrencyKeyBusy
		}
	}
	worker, ok := m.workersByAgent[input.Agent]
	if !ok {
		m.mu.Unlock()
		return BackgroundTask{}, orcherr.ErrUnknownAgent
	}

	taskID := uuid.NewString()
	sessionID := uuid.NewString()
	t := BackgroundTask{
		ID:              taskID,
		SessionID:       sessionID,
		ParentSessionID: input.ParentSessionID,
		ParentMessageID: input.ParentMessageID,
		ParentAgent:     input.ParentAgent,
		Agent:           input.Agent,
		Description:     input.Description,
		Prompt:          input.Prompt,
		Status:          StatusRunning,
		StartedAt:       m.clock(),
		ConcurrencyKey:  input.ConcurrencyKey,
		Category:        input.Category,
		Skills:          input.Skills,
	}
	m.tasks[taskID] = t
	if input.ConcurrencyKey != "" {
		m.byConcurrency[input.ConcurrencyKey] = taskID
	}
	runCtx, cancel := context.WithCancel(context.Background())
	m.handles[taskID] = handle{done: make(chan struct{}), cancel: cancel}
	m.mu.Unlock()

	m.metrics.IncCounter("task.launched", 1, "agent", input.Agent)
	m.run(runCtx, taskID, worker, t)
	return t, nil
}

// Resume re-invokes an existing session with new input. The session must
// exist and must not already be completed or cancelled.
func (m *Manager) Resume(ctx context.Context, input ResumeInput) (BackgroundTask, error) {
	m.mu.RLock()
	var existing BackgroundTask
	var found bool
	for _, t := range m.tasks {
		if t.SessionID == input.SessionID {
			existing, found = t, true
			break
		}
	}
	m.mu.RUnlock()
	if !found {
		return BackgroundTask{}, orcherr.ErrTaskNotFound
	}
	if existing.Status == StatusCompleted || existing.Status == StatusCancelled {
		return BackgroundTask{}, orcherr.ErrTaskNotFound
	}

	m.mu.Lock()
	worker, ok := m.workersByAgent[existing.Agent]
	if !ok {
		m.mu.Unlock()
		return BackgroundTask{}, orcherr.ErrUnknownAgent
	}
	existing.Prompt = input.Prompt
	existing.Status = StatusRunning
	m.tasks[existing.ID] = existing
	runCtx, cancel := context.WithCancel(context.Background())
	m.handles[existing.ID] = handle{done: make(chan struct{}), cancel: cancel}
	m.mu.Unlock()

	m.run(runCtx, existing.ID, worker, existing)
	return existing, nil
}

// run starts the worker goroutine and wires its completion back into the
// task record, closing the task's done channel when it finishes.
func (m *Manager) run(ctx context.Context, taskID string, worker Worker, t BackgroundTask) {
	m.mu.RLock()
	h := m.handles[taskID]
	m.mu.RUnlock()

	report := func(toolName string) {
		m.UpdateProgress(taskID, toolName, "")
	}

	go func() {
		defer close(h.done)
		spanCtx, span := m.tracer.Start(ctx, "task.run")
		started := m.clock()
		result, err := worker(spanCtx, t, report)

		m.mu.Lock()
		defer m.mu.Unlock()
		final := m.tasks[taskID]
		now := m.clock()
		final.CompletedAt = &now
		switch {
		case ctx.Err() != nil:
			final.Status = StatusCancelled
			m.metrics.IncCounter("task.cancelled", 1, "agent", final.Agent)
		case err != nil:
			final.Status = StatusFailed
			final.Error = truncate(err.Error(), m.truncAt)
			span.RecordError(err)
			m.metrics.IncCounter("task.failed", 1, "agent", final.Agent)
		default:
			final.Status = StatusCompleted
			final.Result = truncate(result, m.truncAt)
			m.metrics.IncCounter("task.completed", 1, "agent", final.Agent)
		}
		m.metrics.RecordTimer("task.duration", now.Sub(started), "agent", final.Agent)
		span.End()
		m.tasks[taskID] = final
		if final.ConcurrencyKey != "" {
			delete(m.byConcurrency, final.ConcurrencyKey)
		}
	}()
}

// Await blocks until the task completes (successfully, failed, or
// cancelled) or ctx is done, whichever comes first.
func (m *Manager) Await(ctx context.Context, id string) (BackgroundTask, error) {
	m.mu.RLock()
	h, ok := m.handles[id]
	m.mu.RUnlock()
	if !ok {
		return BackgroundTask{}, orcherr.ErrTaskNotFound
	}
	select {
	case <-h.done:
		t, _ := m.GetTask(id)
		return t, nil
	case <-ctx.Done():
		return BackgroundTask{}, ctx.Err()
	}
}

// GetTask returns the current record for id.
func (m *Manager) GetTask(id string) (BackgroundTask, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tasks[id]
	return t, ok
}

// GetRunningTasks returns every task currently in status running.
func (m *Manager) GetRunningTasks() []BackgroundTask {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []BackgroundTask
	for _, t := range m.tasks {
		if t.Status == StatusRunning {
			out = append(out, t)
		}
	}
	return out
}

// Cancel requests cancellation of a running task. Idempotent: cancelling an
// already-terminal task is a no-op.
func (m *Manager) Cancel(id string) {
	m.mu.RLock()
	h, ok := m.handles[id]
	m.mu.RUnlock()
	if !ok {
		return
	}
	h.cancel()
}

// CancelAll cancels every running task and returns the number cancelled.
func (m *Manager) CancelAll() int {
	running := m.GetRunningTasks()
	for _, t := range running {
		m.Cancel(t.ID)
	}
	return len(running)
}

// UpdateProgress is called by the running worker (via the report callback
// passed into Worker, or directly by callers with access to the manager) to
// record tool-call progress.
func (m *Manager) UpdateProgress(id string, toolName, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return
	}
	t.Progress.ToolCalls++
	if toolName != "" {
		t.Progress.LastTool = toolName
	}
	t.Progress.LastUpdate = m.clock()
	m.tasks[id] = t
}

func truncate(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	return s[:limit]
}
