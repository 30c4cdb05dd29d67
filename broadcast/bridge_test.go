package broadcast_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/codi-platform/orchestrator-core/broadcast"
	streamopts "goa.design/pulse/streaming/options"
	"github.com/stretchr/testify/require"
)

type fakeStream struct {
	added [][]byte
}

func (s *fakeStream) Add(ctx context.Context, event string, payload []byte) (string, error) {
	s.added = append(s.added, payload)
	return "1-0", nil
}

func (s *fakeStream) NewSink(ctx context.Context, name string, opts ...streamopts.Sink) (broadcast.PulseSink, error) {
	return nil, errors.New("not implemented in this fake")
}

func (s *fakeStream) Destroy(ctx context.Context) error { return nil }

type fakePulseClient struct {
	streams map[string]*fakeStream
}

func newFakePulseClient() *fakePulseClient {
	return &fakePulseClient{streams: make(map[string]*fakeStream)}
}

func (c *fakePulseClient) Stream(name string, opts ...streamopts.Stream) (broadcast.PulseStream, error) {
	s, ok := c.streams[name]
	if !ok {
		s = &fakeStream{}
		c.streams[name] = s
	}
	return s, nil
}

func (c *fakePulseClient) Close(ctx context.Context) error { return nil }

func TestPublishAddsTimestampAndEnvelope(t *testing.T) {
	pulse := newFakePulseClient()
	bridge := broadcast.NewBridge(pulse, nil)

	err := bridge.Publish(context.Background(), "proj-1", map[string]any{"type": "build_started"})
	require.NoError(t, err)

	stream := pulse.streams["codi.events.proj-1"]
	require.Len(t, stream.added, 1)

	var env broadcast.Envelope
	require.NoError(t, json.Unmarshal(stream.added[0], &env))
	require.Equal(t, "proj-1", env.ProjectID)
	require.False(t, env.Timestamp.IsZero())
	require.Equal(t, "build_started", env.Message["type"])
}

func TestSendAgentSignalUsesSeparateStream(t *testing.T) {
	pulse := newFakePulseClient()
	bridge := broadcast.NewBridge(pulse, nil)

	err := bridge.SendAgentSignal(context.Background(), "proj-1", "plan_approved", map[string]any{"plan_id": "p1"})
	require.NoError(t, err)

	require.NotNil(t, pulse.streams["codi.signals.proj-1"])
	require.Nil(t, pulse.streams["codi.events.proj-1"])
}
