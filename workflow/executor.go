// Package workflow implements the outer per-turn control loop: one user
// message in, one convergence pass through the attractor evaluator, one
// assistant summary out.
package workflow

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/codi-platform/orchestrator-core/artifact"
	"github.com/codi-platform/orchestrator-core/attractor"
	"github.com/codi-platform/orchestrator-core/orcherr"
	"github.com/codi-platform/orchestrator-core/persistence"
	"github.com/codi-platform/orchestrator-core/session"
	"github.com/codi-platform/orchestrator-core/signal"
	"github.com/codi-platform/orchestrator-core/telemetry"
	"github.com/google/uuid"
)

// StoreFactory constructs the artifact store for a project the first time
// the executor sees it. projectFolder may be empty if no filesystem
// mirroring is needed.
type StoreFactory func(projectID, projectFolder string) *artifact.Store

// Options configures an Executor.
type Options struct {
	Sessions      *session.Store
	Engine        *signal.Engine
	NewStore      StoreFactory
	Attractors    map[string]attractor.Attractor // defaults to attractor.Default()
	Persistence   persistence.Port               // optional
	Logger        telemetry.Logger
	Metrics       telemetry.Metrics // optional, defaults to a no-op recorder
	Tracer        telemetry.Tracer  // optional, defaults to a no-op tracer
	Clock         func() time.Time

	Timeout       time.Duration // convergence loop deadline, default 300s
	PollInterval  time.Duration // default 1s
	MaxIterations int           // default 100
}

// Executor runs one turn at a time per project: create/resume a session,
// acquire the project's store, run the convergence loop, and summarize.
type Executor struct {
	sessions    *session.Store
	engine      *signal.Engine
	newStore    StoreFactory
	attractors  map[string]attractor.Attractor
	persistence persistence.Port
	log         telemetry.Logger
	metrics     telemetry.Metrics
	tracer      telemetry.Tracer
	clock       func() time.Time

	timeout       time.Duration
	pollInterval  time.Duration
	maxIterations int

	locks *turnLocks

	mu     sync.Mutex
	stores map[string]*artifact.Store
}

// New constructs an Executor.
func New(opts Options) *Executor {
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
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 300 * time.Second
	}
	poll := opts.PollInterval
	if poll <= 0 {
		poll = time.Second
	}
	maxIter := opts.MaxIterations
	if maxIter <= 0 {
		maxIter = 100
	}
	attractors := opts.Attractors
	if attractors == nil {
		attractors = attractor.Default()
	}
	return &Executor{
		sessions:      opts.Sessions,
		engine:        opts.Engine,
		newStore:      opts.NewStore,
		attractors:    attractors,
		persistence:   opts.Persistence,
		log:           log,
		metrics:       metrics,
		tracer:        tracer,
		clock:         clock,
		timeout:       timeout,
		pollInterval:  poll,
		maxIterations: maxIter,
		locks:         newTurnLocks(),
		stores:        make(map[string]*artifact.Store),
	}
}

// ExecuteTurn runs the outer per-turn loop described in the workflow
// executor's flow. Returns orcherr.ErrTurnInProgress if another turn for
// the same project is already running.
func (e *Executor) ExecuteTurn(ctx context.Context, in TurnInput) (TurnResult, error) {
	if !e.locks.tryAcquire(in.ProjectID) {
		return TurnResult{}, orcherr.ErrTurnInProgress
	}
	defer e.locks.release(in.ProjectID)

	ctx, span := e.tracer.Start(ctx, "workflow.execute_turn")
	defer span.End()
	e.metrics.IncCounter("workflow.turn_started", 1, "project_id", in.ProjectID)

	start := e.clock()
	rootSessionID := "root:" + in.ProjectID + ":" + in.UserID

	// 1. Create or resume a root session; append the user message.
	sess, err := e.sessions.GetOrCreate(ctx, rootSessionID, "", "orchestrator", in.ProjectID, in.UserID)
	if err != nil {
		return TurnResult{}, fmt.Errorf("acquire root session: %w", err)
	}
	if _, err := e.sessions.AddMessage(sess.ID, session.Message{
		Role:      session.RoleUser,
		Content:   in.UserMessage,
		Timestamp: start,
	}); err != nil {
		return TurnResult{}, fmt.Errorf("append user message: %w", err)
	}

	// 2. Record an operation log "agent task started".
	e.logOperation(ctx, in, persistence.OperationAgentTaskStarted, persistence.StatusOK, "agent task started", 0)

	// 3. Acquire the project's artifact store.
	store := e.storeFor(in.ProjectID, in.ProjectFolder)

	// 4. Build an evaluator bound to the store.
	eval := attractor.New(attractor.Options{
		Store:      store,
		Attractors: e.attractors,
		Engine:     e.engine,
		Logger:     e.log,
	})

	// 5. Explicit intent: emit its signal before entering the convergence loop.
	if in.IntentSignal != "" && e.engine != nil {
		e.engine.Emit(ctx, signal.Signal(in.IntentSignal), in.ProjectID, signal.EmitOptions{
			Source: "workflow_executor",
		})
	}

	// 6. Run the convergence loop.
	result := eval.RunUntilSatisfied(ctx, nil, e.timeout, e.pollInterval, e.maxIterations)
	duration := e.clock().Sub(start)
	e.metrics.RecordTimer("workflow.turn_duration", duration, "project_id", in.ProjectID)

	// 7. Report outcome. An unsatisfied attractor that derives no signal
	// (plan_approved) waits on the user, so it is reported as blocked.
	blocked := result.Blocked()
	var unsatisfied []string
	for _, name := range result.Unsatisfied() {
		if a, ok := e.attractors[name]; ok && !a.HasSignal {
			blocked = append(blocked, name)
			continue
		}
		unsatisfied = append(unsatisfied, name)
	}
	turnResult := TurnResult{
		SessionID:             sess.ID,
		AllSatisfied:          result.AllSatisfied,
		BlockedAttractors:     blocked,
		UnsatisfiedAttractors: unsatisfied,
		ActiveErrors:          len(store.GetActiveErrors()),
		Duration:              duration,
	}

	if ctx.Err() != nil {
		e.logOperation(ctx, in, persistence.OperationAgentTaskCancelled, persistence.StatusCancelled, "turn cancelled", duration)
		e.metrics.IncCounter("workflow.turn_cancelled", 1, "project_id", in.ProjectID)
		span.RecordError(ctx.Err())
		turnResult.Summary = "Turn cancelled before convergence."
		e.appendAssistantSummary(sess.ID, turnResult.Summary)
		return turnResult, ctx.Err()
	}

	if result.AllSatisfied {
		e.logOperation(ctx, in, persistence.OperationAgentTaskCompleted, persistence.StatusOK, "all attractors satisfied", duration)
		e.metrics.IncCounter("workflow.turn_converged", 1, "project_id", in.ProjectID)
		turnResult.Summary = fmt.Sprintf("Done. All attractors satisfied in %s.", duration.Round(time.Millisecond))
	} else {
		e.logOperation(ctx, in, persistence.OperationAgentTaskFailed, persistence.StatusFailed, "convergence did not complete", duration)
		e.metrics.IncCounter("workflow.turn_incomplete", 1, "project_id", in.ProjectID)
		turnResult.Summary = e.summarizeIncomplete(turnResult)
	}

	// 8. Append an assistant message summarizing outcome.
	e.appendAssistantSummary(sess.ID, turnResult.Summary)

	return turnResult, nil
}

func (e *Executor) summarizeIncomplete(r TurnResult) string {
	var parts []string
	if len(r.BlockedAttractors) > 0 {
		sort.Strings(r.BlockedAttractors)
		parts = append(parts, "blocked: "+strings.Join(r.BlockedAttractors, ", "))
	}
	if len(r.UnsatisfiedAttractors) > 0 {
		sort.Strings(r.UnsatisfiedAttractors)
		parts = append(parts, "still working on: "+strings.Join(r.UnsatisfiedAttractors, ", "))
	}
	if r.ActiveErrors > 0 {
		parts = append(parts, fmt.Sprintf("%d active error(s)", r.ActiveErrors))
	}
	if len(parts) == 0 {
		return "Turn did not converge in the time allotted."
	}
	return "Not finished yet: " + strings.Join(parts, "; ") + "."
}

func (e *Executor) appendAssistantSummary(sessionID, summary string) {
	_, _ = e.sessions.AddMessage(sessionID, session.Message{
		Role:      session.RoleAssistant,
		Content:   summary,
		Timestamp: e.clock(),
		Agent:     "orchestrator",
	})
}

func (e *Executor) logOperation(ctx context.Context, in TurnInput, op persistence.OperationType, status persistence.Status, message string, duration time.Duration) {
	if e.persistence == nil {
		return
	}
	err := e.persistence.InsertOperationLog(ctx, persistence.OperationLogRecord{
		ID:             uuid.NewString(),
		UserID:         in.UserID,
		ProjectID:      in.ProjectID,
		OperationType:  op,
		AgentType:      persistence.AgentOrchestrator,
		Message:        message,
		Status:         status,
		DurationMillis: duration.Milliseconds(),
		CreatedAt:      e.clock(),
	})
	if err != nil {
		e.log.Warn(ctx, "operation log insert failed", "operation_type", op, "error", err.Error())
	}
}

func (e *Executor) storeFor(projectID, projectFolder string) *artifact.Store {
	e.mu.Lock()
	defer e.mu.Unlock()
	if s, ok := e.stores[projectID]; ok {
		return s
	}
	var s *artifact.Store
	if e.newStore != nil {
		s = e.newStore(projectID, projectFolder)
	} else {
		s = artifact.New(artifact.Options{ProjectID: projectID, Logger: e.log})
	}
	e.stores[projectID] = s
	return s
}
