package attractor

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/codi-platform/orchestrator-core/artifact"
	"github.com/codi-platform/orchestrator-core/signal"
	"github.com/codi-platform/orchestrator-core/telemetry"
)

// Result is the outcome of evaluating a single attractor.
type Result struct {
	Attractor   string
	Status      Status
	EvaluatedAt time.Time
	Error       string
}

// EvaluationResult is the outcome of one evaluation pass over a set of
// attractors.
type EvaluationResult struct {
	Results       map[string]Result
	AllSatisfied  bool
	SignalsToEmit []signal.Signal
	EvaluatedAt   time.Time
}

// Unsatisfied returns the names of attractors in StatusUnsatisfied.
func (r EvaluationResult) Unsatisfied() []string { return namesWithStatus(r, StatusUnsatisfied) }

// Blocked returns the names of attractors in StatusBlocked.
func (r EvaluationResult) Blocked() []string { return namesWithStatus(r, StatusBlocked) }

func namesWithStatus(r EvaluationResult, status Status) []string {
	var out []string
	for name, res := range r.Results {
		if res.Status == status {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Engine emits derived signals; the evaluator only needs the ability to
// announce a Signal for a project, not the full signal.Engine surface.
type Engine interface {
	Emit(ctx context.Context, sig signal.Signal, projectID string, opts signal.EmitOptions) signal.Event
}

// Evaluator is the convergence loop's brain: it decides which signals to
// emit based on current artifact state, by checking every attractor's
// predicate against the store.
type Evaluator struct {
	store      *artifact.Store
	attractors map[string]Attractor
	engine     Engine
	log        telemetry.Logger

	mu              sync.Mutex
	lastEvaluation  *EvaluationResult
	evaluationCount int
}

// Options configures an Evaluator.
type Options struct {
	Store      *artifact.Store
	Attractors map[string]Attractor
	Engine     Engine
	Logger     telemetry.Logger
}

// New constructs an Evaluator. Attractors defaults to Default().
func New(opts Options) *Evaluator {
	attractors := opts.Attractors
	if attractors == nil {
		attractors = Default()
	}
	log := opts.Logger
	if log == nil {
		log = telemetry.NewNoopLogger()
	}
	return &Evaluator{
		store:      opts.Store,
		attractors: attractors,
		engine:     opts.Engine,
		log:        log,
	}
}

// Evaluate checks the named attractors (all, if names is empty) against
// current artifact state, recording a BLOCKED status for any whose
// dependencies are unmet or whose predicate panics, and deriving the signal
// list for any left UNSATISFIED.
func (e *Evaluator) Evaluate(names []string) EvaluationResult {
	e.mu.Lock()
	e.evaluationCount++
	count := e.evaluationCount
	e.mu.Unlock()

	list := e.resolve(names)
	result := EvaluationResult{Results: make(map[string]Result), EvaluatedAt: time.Now()}

	var unsatisfied []Attractor
	for _, a := range list {
		if !e.dependenciesSatisfied(a) {
			result.Results[a.Name] = Result{
				Attractor:   a.Name,
				Status:      StatusBlocked,
				EvaluatedAt: time.Now(),
				Error:       "dependencies not satisfied",
			}
			continue
		}

		satisfied, panicMsg := e.evaluateSafely(a)
		if panicMsg != "" {
			result.Results[a.Name] = Result{
				Attractor:   a.Name,
				Status:      StatusBlocked,
				EvaluatedAt: time.Now(),
				Error:       panicMsg,
			}
			continue
		}
		status := StatusUnsatisfied
		if satisfied {
			status = StatusSatisfied
		}
		result.Results[a.Name] = Result{Attractor: a.Name, Status: status, EvaluatedAt: time.Now()}
		if !satisfied {
			unsatisfied = append(unsatisfied, a)
		}
	}

	for _, a := range unsatisfied {
		if a.HasSignal {
			result.SignalsToEmit = append(result.SignalsToEmit, a.SignalOnUnsatisfied)
		}
	}

	allSatisfied := true
	for _, r := range result.Results {
		if r.Status != StatusSatisfied {
			allSatisfied = false
			break
		}
	}
	result.AllSatisfied = allSatisfied

	e.mu.Lock()
	e.lastEvaluation = &result
	e.mu.Unlock()

	satisfiedCount := 0
	for _, r := range result.Results {
		if r.Status == StatusSatisfied {
			satisfiedCount++
		}
	}
	e.log.Info(context.Background(), "attractor evaluation completed",
		"evaluation_count", count,
		"satisfied", satisfiedCount,
		"total", len(result.Results),
		"signals_to_emit", len(result.SignalsToEmit),
	)

	return result
}

// evaluateSafely runs a's predicate, recovering a panic as not satisfied and
// returning a non-empty panicMsg describing it.
func (e *Evaluator) evaluateSafely(a Attractor) (satisfied bool, panicMsg string) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error(context.Background(), "attractor evaluator panicked", "attractor", a.Name, "recovered", fmt.Sprint(r))
			satisfied = false
			panicMsg = "predicate panicked: " + fmt.Sprint(r)
		}
	}()
	return a.Satisfied(e.store), ""
}

func (e *Evaluator) dependenciesSatisfied(a Attractor) bool {
	for _, depName := range a.DependsOn {
		dep, ok := e.attractors[depName]
		if !ok {
			continue
		}
		if ok, _ := e.evaluateSafely(dep); !ok {
			return false
		}
	}
	return true
}

func (e *Evaluator) resolve(names []string) []Attractor {
	var list []Attractor
	if len(names) == 0 {
		for _, a := range e.attractors {
			list = append(list, a)
		}
	} else {
		for _, n := range names {
			if a, ok := e.attractors[n]; ok {
				list = append(list, a)
			}
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Priority > list[j].Priority })
	return list
}

// EmitDerivedSignals emits every signal named in result (the last
// evaluation, if result is nil) via the configured Engine.
func (e *Evaluator) EmitDerivedSignals(ctx context.Context, result *EvaluationResult, source string) []signal.Signal {
	if result == nil {
		e.mu.Lock()
		result = e.lastEvaluation
		e.mu.Unlock()
	}
	if result == nil || e.engine == nil {
		return nil
	}

	e.mu.Lock()
	count := e.evaluationCount
	e.mu.Unlock()

	var emitted []signal.Signal
	for _, sig := range result.SignalsToEmit {
		e.engine.Emit(ctx, sig, e.projectID(), signal.EmitOptions{
			Source: source,
			Context: map[string]any{
				"derived_from":     "attractor_evaluation",
				"evaluation_count": count,
			},
		})
		emitted = append(emitted, sig)
	}
	return emitted
}

func (e *Evaluator) projectID() string {
	return e.store.ProjectID()
}

// RunUntilSatisfied is the convergence loop: evaluate, emit derived signals,
// wait, and repeat until every attractor is satisfied, the deadline passes,
// or maxIterations is reached.
func (e *Evaluator) RunUntilSatisfied(ctx context.Context, names []string, timeout, pollInterval time.Duration, maxIterations int) EvaluationResult {
	deadline := time.Now().Add(timeout)
	iterations := 0

	e.log.Info(ctx, "starting attractor convergence loop", "timeout", timeout, "max_iterations", maxIterations)

	for iterations < maxIterations {
		select {
		case <-ctx.Done():
			e.log.Warn(ctx, "attractor convergence cancelled", "iterations", iterations)
			return e.snapshotOrEmpty()
		default:
		}

		if time.Now().After(deadline) {
			e.log.Warn(ctx, "attractor convergence timed out", "iterations", iterations)
			break
		}

		result := e.Evaluate(names)
		iterations++

		if result.AllSatisfied {
			e.log.Info(ctx, "all attractors satisfied", "iterations", iterations)
			return result
		}

		e.EmitDerivedSignals(ctx, &result, "attractor_evaluator")

		select {
		case <-ctx.Done():
			return e.snapshotOrEmpty()
		case <-time.After(pollInterval):
		}
	}

	e.log.Warn(ctx, "convergence loop ended without satisfying all attractors", "iterations", iterations)
	return e.snapshotOrEmpty()
}

func (e *Evaluator) snapshotOrEmpty() EvaluationResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.lastEvaluation != nil {
		return *e.lastEvaluation
	}
	return EvaluationResult{Results: make(map[string]Result)}
}

// IsConverged reports whether the last evaluation found every attractor
// satisfied.
func (e *Evaluator) IsConverged() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastEvaluation != nil && e.lastEvaluation.AllSatisfied
}
