// Package agentkit defines the uniform contract every agent worker role
// implements so the engine can activate it and it can participate in the
// artifact/signal protocol. The contract is expressed as independent
// capability interfaces rather than a base class hierarchy: a worker mixes
// in whichever it needs.
package agentkit

import (
	"context"

	"github.com/codi-platform/orchestrator-core/artifact"
	"github.com/codi-platform/orchestrator-core/signal"
)

type (
	// ArtifactProducer is implemented by workers that write artifacts. All
	// methods go through the store scoped to the worker's project.
	ArtifactProducer interface {
		ProduceArtifact(ctx context.Context, typ artifact.Type, content any, metadata map[string]any) (artifact.Artifact, error)
		ProduceFileArtifact(ctx context.Context, filePath, content, operation string) (artifact.Artifact, error)
		ProduceErrorArtifact(ctx context.Context, errType, message string, recoverable bool) (artifact.Artifact, error)
		ProduceBuildArtifact(ctx context.Context, command, output string, success bool, exitCode int) (artifact.Artifact, error)
		ProducePreviewArtifact(ctx context.Context, url, containerID string) (artifact.Artifact, error)
		ProduceAnalysisArtifact(ctx context.Context, content string, metadata map[string]any) (artifact.Artifact, error)
		ProducePlanArtifact(ctx context.Context, content string, status string) (artifact.Artifact, error)

		ReadArtifacts(typ artifact.Type, limit int) []artifact.Artifact
		GetLatestBuild() (artifact.Artifact, bool)
		GetPreviewURL() (string, bool)
	}

	// SignalSubscriber is implemented by workers that react to signals.
	// Subscribes declares which signals the worker should be registered for;
	// HandleSignal is invoked for each matching emission.
	SignalSubscriber interface {
		Subscribes() []signal.Signal
		HandleSignal(ctx context.Context, event signal.Event) error
	}

	// Registry is the static mapping from agent name to the signals it
	// subscribes to and the artifact types it can produce. It is a lookup
	// table only: signal.Engine routes emissions from its own subscription
	// list, and the attractor evaluator does not consult the Registry.
	Registry struct {
		subscriptions map[string][]signal.Signal
		produces      map[string][]artifact.Type
	}
)

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		subscriptions: make(map[string][]signal.Signal),
		produces:      make(map[string][]artifact.Type),
	}
}

// RegisterSubscriptions records the signals agent subscribes to.
func (r *Registry) RegisterSubscriptions(agent string, signals []signal.Signal) {
	r.subscriptions[agent] = signals
}

// RegisterProduces records the artifact types agent can produce.
func (r *Registry) RegisterProduces(agent string, types []artifact.Type) {
	r.produces[agent] = types
}

// SubscribersFor returns every agent name registered to handle sig.
func (r *Registry) SubscribersFor(sig signal.Signal) []string {
	var out []string
	for agent, sigs := range r.subscriptions {
		for _, s := range sigs {
			if s == sig {
				out = append(out, agent)
				break
			}
		}
	}
	return out
}

// CanSatisfy reports whether any registered agent can produce an artifact
// of typ. The attractor evaluator does not call it.
func (r *Registry) CanSatisfy(typ artifact.Type) bool {
	for _, types := range r.produces {
		for _, t := range types {
			if t == typ {
				return true
			}
		}
	}
	return false
}

// RegisterSignalHandlers wires worker's declared subscriptions onto engine,
// dispatching each matching emission to worker.HandleSignal.
func RegisterSignalHandlers(engine *signal.Engine, agent string, worker SignalSubscriber, priority int) {
	for _, sig := range worker.Subscribes() {
		engine.Subscribe(agent, sig, worker.HandleSignal, priority)
	}
}

// UnregisterSignalHandlers removes every subscription agent holds on engine.
func UnregisterSignalHandlers(engine *signal.Engine, agent string) {
	engine.UnsubscribeAll(agent)
}
