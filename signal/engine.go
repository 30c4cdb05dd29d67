package signal

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/codi-platform/orchestrator-core/telemetry"
	"github.com/google/uuid"
)

type (
	// subscription binds an agent to a signal, with an optional handler and
	// a priority used to order delivery.
	subscription struct {
		agent    string
		signal   Signal
		handler  Handler
		priority int
	}

	// Engine is the central signal routing engine. One Engine instance is
	// constructed explicitly per process (no package-level singleton: every
	// caller receives its own Engine via New, unlike the Python original
	// this behavior is grounded on).
	Engine struct {
		log telemetry.Logger

		mu            sync.RWMutex
		subscriptions map[Signal][]subscription
		active        map[string]map[Signal]struct{}
		history       []Event
		maxHistory    int
	}

	// Options configures an Engine.
	Options struct {
		// HistorySize bounds the number of retained SignalEvents. Defaults
		// to 1000.
		HistorySize int
		// Logger receives handler-failure diagnostics. Defaults to a no-op
		// logger.
		Logger telemetry.Logger
	}
)

// New constructs a signal Engine ready for immediate use.
func New(opts Options) *Engine {
	maxHistory := opts.HistorySize
	if maxHistory <= 0 {
		maxHistory = 1000
	}
	log := opts.Logger
	if log == nil {
		log = telemetry.NewNoopLogger()
	}
	return &Engine{
		log:           log,
		subscriptions: make(map[Signal][]subscription),
		active:        make(map[string]map[Signal]struct{}),
		maxHistory:    maxHistory,
	}
}

// Subscribe registers an agent's interest in a signal. Idempotent per
// (agent, signal): a second Subscribe call for the same pair is a no-op.
// Subscriber lists are kept sorted descending by priority.
func (e *Engine) Subscribe(agent string, sig Signal, handler Handler, priority int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, s := range e.subscriptions[sig] {
		if s.agent == agent {
			return
		}
	}
	e.subscriptions[sig] = append(e.subscriptions[sig], subscription{
		agent: agent, signal: sig, handler: handler, priority: priority,
	})
	sort.SliceStable(e.subscriptions[sig], func(i, j int) bool {
		return e.subscriptions[sig][i].priority > e.subscriptions[sig][j].priority
	})
}

// Unsubscribe removes agent's subscription to sig, if any.
func (e *Engine) Unsubscribe(agent string, sig Signal) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.removeLocked(agent, sig)
}

// UnsubscribeAll removes every subscription held by agent, across all signals.
func (e *Engine) UnsubscribeAll(agent string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for sig := range e.subscriptions {
		e.removeLocked(agent, sig)
	}
}

func (e *Engine) removeLocked(agent string, sig Signal) {
	subs := e.subscriptions[sig]
	filtered := subs[:0]
	for _, s := range subs {
		if s.agent != agent {
			filtered = append(filtered, s)
		}
	}
	e.subscriptions[sig] = filtered
}

// GetSubscribers returns the agent names subscribed to sig, in priority order.
func (e *Engine) GetSubscribers(sig Signal) []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]string, 0, len(e.subscriptions[sig]))
	for _, s := range e.subscriptions[sig] {
		out = append(out, s.agent)
	}
	return out
}

// GetSubscriptions returns the signals agent is subscribed to.
func (e *Engine) GetSubscriptions(agent string) []Signal {
	e.mu.RLock()
	defer e.mu.RUnlock()
	var out []Signal
	for sig, subs := range e.subscriptions {
		for _, s := range subs {
			if s.agent == agent {
				out = append(out, sig)
				break
			}
		}
	}
	return out
}

// Emit constructs a SignalEvent, records it in history and the project's
// active set, resolves any incompatible counterpart signal, then invokes
// every subscribed handler in priority order, sequentially, on the calling
// goroutine. A handler that returns an error is logged with its agent name
// and does not prevent the remaining handlers from running.
func (e *Engine) Emit(ctx context.Context, sig Signal, projectID string, opts EmitOptions) Event {
	event := Event{
		Signal:        sig,
		ProjectID:     projectID,
		Context:       opts.context(),
		Source:        opts.source(),
		Priority:      opts.priority(),
		ArtifactIDs:   opts.ArtifactIDs,
		EmittedAt:     opts.emittedAt(),
		CorrelationID: uuid.NewString()[:8],
	}

	e.mu.Lock()
	e.resolveIncompatibleLocked(projectID, sig)
	e.activateLocked(projectID, sig)
	e.history = append(e.history, event)
	if len(e.history) > e.maxHistoryOrDefault() {
		e.history = e.history[len(e.history)-e.maxHistoryOrDefault():]
	}
	subs := make([]subscription, len(e.subscriptions[sig]))
	copy(subs, e.subscriptions[sig])
	e.mu.Unlock()

	for _, s := range subs {
		if s.handler == nil {
			continue
		}
		if err := s.handler(ctx, event); err != nil {
			e.log.Error(ctx, "signal handler failed", "agent", s.agent, "signal", string(sig), "error", err.Error())
		}
	}
	return event
}

func (e *Engine) maxHistoryOrDefault() int {
	if e.maxHistory <= 0 {
		return 1000
	}
	return e.maxHistory
}

// EmitBatch emits each signal in order. There is no transactional guarantee
// across the batch: a later emission proceeds even if an earlier one's
// handlers failed (handler failures never propagate to Emit's caller).
func (e *Engine) EmitBatch(ctx context.Context, sigs []Signal, projectID string, opts EmitOptions) []Event {
	events := make([]Event, 0, len(sigs))
	for _, sig := range sigs {
		events = append(events, e.Emit(ctx, sig, projectID, opts))
	}
	return events
}

// Resolve removes sig from projectID's active set.
func (e *Engine) Resolve(sig Signal, projectID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if set, ok := e.active[projectID]; ok {
		delete(set, sig)
	}
}

// GetActive returns a snapshot of the signals currently active for projectID.
func (e *Engine) GetActive(projectID string) map[Signal]struct{} {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make(map[Signal]struct{}, len(e.active[projectID]))
	for sig := range e.active[projectID] {
		out[sig] = struct{}{}
	}
	return out
}

// IsActive reports whether sig is currently active for projectID.
func (e *Engine) IsActive(sig Signal, projectID string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.active[projectID][sig]
	return ok
}

// GetHistory returns up to limit recent events, optionally filtered by
// project and/or signal, newest last (emission order).
func (e *Engine) GetHistory(projectID string, sig *Signal, limit int) []Event {
	e.mu.RLock()
	defer e.mu.RUnlock()
	var filtered []Event
	for _, evt := range e.history {
		if projectID != "" && evt.ProjectID != projectID {
			continue
		}
		if sig != nil && evt.Signal != *sig {
			continue
		}
		filtered = append(filtered, evt)
	}
	if limit > 0 && len(filtered) > limit {
		filtered = filtered[len(filtered)-limit:]
	}
	return filtered
}

// ClearProject drops the active signal set for projectID. History is unaffected.
func (e *Engine) ClearProject(projectID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.active, projectID)
}

func (e *Engine) activateLocked(projectID string, sig Signal) {
	if e.active[projectID] == nil {
		e.active[projectID] = make(map[Signal]struct{})
	}
	e.active[projectID][sig] = struct{}{}
}

// resolveIncompatibleLocked removes sig's declared incompatible counterparts
// from the project's active set before sig itself is added. History is
// unaffected; only the active set changes.
func (e *Engine) resolveIncompatibleLocked(projectID string, sig Signal) {
	for _, counterpart := range incompatible[sig] {
		if set, ok := e.active[projectID]; ok {
			delete(set, counterpart)
		}
	}
}

// EmitOptions carries the optional fields of Emit, mirroring the keyword
// arguments of the signal this engine's semantics are grounded on.
type EmitOptions struct {
	Context     map[string]any
	Source      string
	Priority    Priority
	ArtifactIDs []string
	// EmittedAt overrides the emission timestamp; used in tests. Zero value
	// uses the real clock.
	EmittedAt time.Time
}

func (o EmitOptions) context() map[string]any {
	if o.Context == nil {
		return map[string]any{}
	}
	return o.Context
}

func (o EmitOptions) source() string {
	if o.Source == "" {
		return "system"
	}
	return o.Source
}

func (o EmitOptions) priority() Priority {
	if o.Priority == "" {
		return PriorityNormal
	}
	return o.Priority
}

func (o EmitOptions) emittedAt() time.Time {
	if o.EmittedAt.IsZero() {
		return time.Now()
	}
	return o.EmittedAt
}
