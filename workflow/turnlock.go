package workflow

import "sync"

// turnLocks serializes turns per project: at most one turn in flight per
// project_id at a time. An overlapping turn is rejected rather than queued,
// per the spec's own recommendation for this tradeoff.
type turnLocks struct {
	mu    sync.Mutex
	inUse map[string]struct{}
}

func newTurnLocks() *turnLocks {
	return &turnLocks{inUse: make(map[string]struct{})}
}

// tryAcquire claims projectID's turn slot. Returns false if a turn for that
// project is already in flight.
func (t *turnLocks) tryAcquire(projectID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, busy := t.inUse[projectID]; busy {
		return false
	}
	t.inUse[projectID] = struct{}{}
	return true
}

func (t *turnLocks) release(projectID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.inUse, projectID)
}
