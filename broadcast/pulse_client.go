// Package broadcast fans agent activity out to connected clients: a Redis
// (Pulse) backed publish path so any process in the fleet can announce an
// update, and a per-process WebSocket registry that delivers those updates
// to the connections actually attached to this process.
package broadcast

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"goa.design/pulse/streaming"
	streamopts "goa.design/pulse/streaming/options"
)

type (
	// PulseOptions configures the Pulse-backed stream client.
	PulseOptions struct {
		// Redis is the connection used to back Pulse streams. Required.
		Redis *redis.Client
		// StreamMaxLen bounds the number of entries kept per stream. Zero
		// uses Pulse defaults.
		StreamMaxLen int
		// StreamOptions returns additional stream options applied when
		// opening a stream, invoked once per Stream call.
		StreamOptions func(name string) []streamopts.Stream
		// OperationTimeout bounds individual Add operations. Zero means no
		// timeout.
		OperationTimeout time.Duration
	}

	// PulseClient exposes the subset of Pulse APIs the broadcast bridge
	// needs: a project's events stream and its signal-inbox stream.
	PulseClient interface {
		Stream(name string, opts ...streamopts.Stream) (PulseStream, error)
		Close(ctx context.Context) error
	}

	// PulseStream publishes events and opens sinks (consumer groups) for
	// reading them back.
	PulseStream interface {
		Add(ctx context.Context, event string, payload []byte) (string, error)
		NewSink(ctx context.Context, name string, opts ...streamopts.Sink) (PulseSink, error)
		Destroy(ctx context.Context) error
	}

	// PulseSink is a consumer group reading from a stream.
	PulseSink interface {
		Subscribe() <-chan *streaming.Event
		Ack(context.Context, *streaming.Event) error
		Close(context.Context)
	}
)

type pulseClient struct {
	redis        *redis.Client
	maxLen       int
	streamOptsFn func(name string) []streamopts.Stream
	timeout      time.Duration
}

// NewPulseClient constructs a Pulse client backed by the given Redis
// connection. Returns an error if opts.Redis is nil.
func NewPulseClient(opts PulseOptions) (PulseClient, error) {
	if opts.Redis == nil {
		return nil, errors.New("redis client is required")
	}
	return &pulseClient{
		redis:        opts.Redis,
		maxLen:       opts.StreamMaxLen,
		streamOptsFn: opts.StreamOptions,
		timeout:      opts.OperationTimeout,
	}, nil
}

func (c *pulseClient) Stream(name string, opts ...streamopts.Stream) (PulseStream, error) {
	if name == "" {
		return nil, errors.New("stream name is required")
	}
	var streamOptions []streamopts.Stream
	if c.maxLen > 0 {
		streamOptions = append(streamOptions, streamopts.WithStreamMaxLen(c.maxLen))
	}
	if c.streamOptsFn != nil {
		streamOptions = append(streamOptions, c.streamOptsFn(name)...)
	}
	streamOptions = append(streamOptions, opts...)
	str, err := streaming.NewStream(name, c.redis, streamOptions...)
	if err != nil {
		return nil, fmt.Errorf("create pulse stream: %w", err)
	}
	return &pulseHandle{stream: str, timeout: c.timeout}, nil
}

// Close is a no-op; callers own the Redis connection lifecycle.
func (c *pulseClient) Close(ctx context.Context) error { return nil }

type pulseHandle struct {
	stream  *streaming.Stream
	timeout time.Duration
}

func (h *pulseHandle) Add(ctx context.Context, event string, payload []byte) (string, error) {
	if event == "" {
		return "", errors.New("event name is required")
	}
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}
	id, err := h.stream.Add(ctx, event, payload)
	if err != nil {
		return "", fmt.Errorf("pulse add: %w", err)
	}
	return id, nil
}

func (h *pulseHandle) NewSink(ctx context.Context, name string, opts ...streamopts.Sink) (PulseSink, error) {
	sink, err := h.stream.NewSink(ctx, name, opts...)
	if err != nil {
		return nil, err
	}
	return &pulseSinkAdapter{Sink: sink}, nil
}

func (h *pulseHandle) Destroy(ctx context.Context) error {
	return h.stream.Destroy(ctx)
}

// pulseSinkAdapter adapts streaming.Sink's Close (void) to the PulseSink
// interface.
type pulseSinkAdapter struct {
	*streaming.Sink
}

func (s pulseSinkAdapter) Close(ctx context.Context) {
	s.Sink.Close(ctx)
}
