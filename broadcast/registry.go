package broadcast

import (
	"context"
	"sync"

	"github.com/codi-platform/orchestrator-core/telemetry"
)

// Connection is the minimal surface the registry needs from a transport
// connection (a WebSocket in production, a channel in tests).
type Connection interface {
	// Send delivers a single message. A returned error is treated as the
	// connection being dead; the registry drops it and keeps going.
	Send(message []byte) error
}

// Registry tracks which connections are attached to which project, scoped
// to this process. Cross-process delivery is the job of the Bridge's Pulse
// subscription; the registry only ever fans out to local connections.
type Registry struct {
	log telemetry.Logger

	mu     sync.RWMutex
	byProj map[string]map[Connection]struct{}
}

// NewRegistry constructs an empty Registry.
func NewRegistry(log telemetry.Logger) *Registry {
	if log == nil {
		log = telemetry.NewNoopLogger()
	}
	return &Registry{log: log, byProj: make(map[string]map[Connection]struct{})}
}

// Connect attaches conn to projectID.
func (r *Registry) Connect(projectID string, conn Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.byProj[projectID] == nil {
		r.byProj[projectID] = make(map[Connection]struct{})
	}
	r.byProj[projectID][conn] = struct{}{}
}

// Disconnect detaches conn from projectID.
func (r *Registry) Disconnect(projectID string, conn Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byProj[projectID], conn)
	if len(r.byProj[projectID]) == 0 {
		delete(r.byProj, projectID)
	}
}

// ConnectionCount returns the number of connections currently attached to
// projectID.
func (r *Registry) ConnectionCount(projectID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byProj[projectID])
}

// SendToLocalConnections delivers message to every connection attached to
// projectID on this process. A failure on one connection is logged and does
// not prevent delivery to the others; the broadcast as a whole never fails
// because one subscriber's pipe broke.
func (r *Registry) SendToLocalConnections(projectID string, message []byte) {
	r.mu.RLock()
	conns := make([]Connection, 0, len(r.byProj[projectID]))
	for c := range r.byProj[projectID] {
		conns = append(conns, c)
	}
	r.mu.RUnlock()

	ctx := context.Background()
	for _, c := range conns {
		if err := c.Send(message); err != nil {
			r.log.Error(ctx, "broadcast: dropping dead connection", "project_id", projectID, "error", err.Error())
			r.Disconnect(projectID, c)
		}
	}
}
