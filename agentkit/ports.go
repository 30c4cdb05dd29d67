package agentkit

import "context"

type (
	// Message is one turn of an LLM conversation.
	Message struct {
		Role    string
		Content string
	}

	// ToolCall describes a tool invocation an LLM requested.
	ToolCall struct {
		Name string
		Args map[string]any
	}

	// LLMPort is the model-agnostic surface workers use to talk to a
	// language model. The core treats it as opaque; concrete model
	// selection and SDK wiring happens outside this module.
	LLMPort interface {
		Invoke(ctx context.Context, modelID string, messages []Message, tools []ToolCall) (Message, error)
		Stream(ctx context.Context, modelID string, messages []Message, tools []ToolCall) (<-chan Message, error)
	}

	// ToolPort is a narrow capability a worker can invoke and have
	// attributed to it in telemetry and the operation log. Concrete ports
	// (filesystem, git, container runtime, HTTP) implement this per tool
	// family; what matters to the orchestrator core is only the artifacts
	// a tool invocation produces.
	ToolPort interface {
		Name() string
		Invoke(ctx context.Context, args map[string]any) (map[string]any, error)
	}
)
