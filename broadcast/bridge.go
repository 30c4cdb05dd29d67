package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/codi-platform/orchestrator-core/telemetry"
	streamopts "goa.design/pulse/streaming/options"
)

const (
	eventsChannelPrefix = "codi.events."
	signalChannelPrefix = "codi.signals."
	sinkName            = "broadcast-gateway"
)

// Envelope is the wire shape published to a project's events stream and
// delivered to every locally-connected client for that project.
type Envelope struct {
	ProjectID string         `json:"project_id"`
	Message   map[string]any `json:"message"`
	Timestamp time.Time      `json:"timestamp"`
}

// Bridge is both the Publisher role (any process announcing an update) and
// the Gateway role (the process that owns client connections, subscribing
// to Pulse and fanning out to its local Registry).
type Bridge struct {
	pulse PulseClient
	log   telemetry.Logger
}

// NewBridge wires a Bridge around a Pulse client.
func NewBridge(pulse PulseClient, log telemetry.Logger) *Bridge {
	if log == nil {
		log = telemetry.NewNoopLogger()
	}
	return &Bridge{pulse: pulse, log: log}
}

// Publish announces message on projectID's events stream. The envelope's
// Timestamp is message's "timestamp" value when that is a time.Time, and
// the current time otherwise; message itself is published unchanged. Any
// process can call Publish; it does not require owning any client
// connections.
func (b *Bridge) Publish(ctx context.Context, projectID string, message map[string]any) error {
	env := Envelope{ProjectID: projectID, Message: message, Timestamp: time.Now()}
	if ts, ok := message["timestamp"]; ok {
		if parsed, ok := ts.(time.Time); ok {
			env.Timestamp = parsed
		}
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal broadcast envelope: %w", err)
	}
	stream, err := b.pulse.Stream(eventsChannelPrefix + projectID)
	if err != nil {
		return fmt.Errorf("open events stream: %w", err)
	}
	if _, err := stream.Add(ctx, "broadcast", payload); err != nil {
		return fmt.Errorf("publish broadcast: %w", err)
	}
	return nil
}

// SendAgentSignal announces a signal of signalType for projectID on a
// separate signal-inbox stream, distinct from the general events stream so
// approval/rejection traffic can be consumed independently of activity
// broadcasts.
func (b *Bridge) SendAgentSignal(ctx context.Context, projectID, signalType string, data map[string]any) error {
	payload, err := json.Marshal(map[string]any{
		"project_id": projectID,
		"signal":     signalType,
		"data":       data,
		"timestamp":  time.Now(),
	})
	if err != nil {
		return fmt.Errorf("marshal signal envelope: %w", err)
	}
	stream, err := b.pulse.Stream(signalChannelPrefix + projectID)
	if err != nil {
		return fmt.Errorf("open signal stream: %w", err)
	}
	if _, err := stream.Add(ctx, "signal", payload); err != nil {
		return fmt.Errorf("publish signal: %w", err)
	}
	return nil
}

// Serve subscribes to projectID's events stream and fans every message
// received out to registry's local connections for that project. It blocks
// until ctx is cancelled.
func (b *Bridge) Serve(ctx context.Context, projectID string, registry *Registry) error {
	stream, err := b.pulse.Stream(eventsChannelPrefix + projectID)
	if err != nil {
		return fmt.Errorf("open events stream: %w", err)
	}
	sink, err := stream.NewSink(ctx, sinkName, streamopts.WithSinkStartAtOldest())
	if err != nil {
		return fmt.Errorf("open gateway sink: %w", err)
	}
	defer sink.Close(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt, ok := <-sink.Subscribe():
			if !ok {
				return nil
			}
			registry.SendToLocalConnections(projectID, evt.Payload)
			if err := sink.Ack(ctx, evt); err != nil {
				b.log.Error(ctx, "broadcast: ack failed", "project_id", projectID, "error", err.Error())
			}
		}
	}
}
