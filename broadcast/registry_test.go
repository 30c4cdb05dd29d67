package broadcast_test

import (
	"errors"
	"testing"

	"github.com/codi-platform/orchestrator-core/broadcast"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	id       string
	received [][]byte
	fail     bool
}

func (c *fakeConn) Send(message []byte) error {
	if c.fail {
		return errors.New("connection closed")
	}
	c.received = append(c.received, message)
	return nil
}

func TestSendToLocalConnectionsIsolatesFailures(t *testing.T) {
	reg := broadcast.NewRegistry(nil)
	good := &fakeConn{id: "good"}
	bad := &fakeConn{id: "bad", fail: true}

	reg.Connect("proj-1", good)
	reg.Connect("proj-1", bad)
	require.Equal(t, 2, reg.ConnectionCount("proj-1"))

	reg.SendToLocalConnections("proj-1", []byte("hello"))

	require.Len(t, good.received, 1)
	require.Equal(t, "hello", string(good.received[0]))
	require.Equal(t, 1, reg.ConnectionCount("proj-1"), "dead connection should be dropped")
}

func TestSendToLocalConnectionsScopedByProject(t *testing.T) {
	reg := broadcast.NewRegistry(nil)
	a := &fakeConn{id: "a"}
	b := &fakeConn{id: "b"}
	reg.Connect("proj-1", a)
	reg.Connect("proj-2", b)

	reg.SendToLocalConnections("proj-1", []byte("only-proj-1"))

	require.Len(t, a.received, 1)
	require.Len(t, b.received, 0)
}

func TestDisconnectRemovesConnection(t *testing.T) {
	reg := broadcast.NewRegistry(nil)
	c := &fakeConn{id: "c"}
	reg.Connect("proj-1", c)
	reg.Disconnect("proj-1", c)
	require.Equal(t, 0, reg.ConnectionCount("proj-1"))
}
