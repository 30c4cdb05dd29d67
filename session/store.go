package session

import (
	"context"
	"sync"
	"time"

	"github.com/codi-platform/orchestrator-core/telemetry"
)

type (
	// Filters narrows ListSessions results.
	Filters struct {
		ProjectID string
		UserID    string
		Status    Status
		HasStatus bool
	}

	// Mirror is an optional write-behind durability hook: every mutation
	// that changes a session's on-the-wire shape is mirrored to it,
	// best-effort, after the in-memory Store already holds the change.
	// MongoMirror implements this.
	Mirror interface {
		Save(ctx context.Context, s Session) error
	}

	// Store holds session state in memory, protected by a single coarse
	// lock. The expected scale (hundreds of sessions per process) does not
	// justify finer-grained locking.
	Store struct {
		log         telemetry.Logger
		clock       func() time.Time
		maxMessages int
		ttl         time.Duration
		mirror      Mirror

		mu       sync.Mutex
		sessions map[string]Session
		children map[string]map[string]struct{} // parent id -> set of child ids
	}

	// Options configures a Store.
	Options struct {
		// MaxMessages bounds the number of messages retained per session.
		// Defaults to 200.
		MaxMessages int
		// TTL is how long an idle, non-active session survives before
		// PruneStaleSessions removes it. Defaults to 24h.
		TTL time.Duration
		// Logger receives diagnostics. Defaults to a no-op logger.
		Logger telemetry.Logger
		// Clock returns the current time; overridable for tests.
		Clock func() time.Time
		// Mirror optionally persists every mutated session snapshot out of
		// process. Nil disables mirroring; the Store remains authoritative
		// either way.
		Mirror Mirror
	}
)

// New constructs a Store.
func New(opts Options) *Store {
	maxMessages := opts.MaxMessages
	if maxMessages <= 0 {
		maxMessages = 200
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	log := opts.Logger
	if log == nil {
		log = telemetry.NewNoopLogger()
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Store{
		log:         log,
		clock:       clock,
		maxMessages: maxMessages,
		ttl:         ttl,
		mirror:      opts.Mirror,
		sessions:    make(map[string]Session),
		children:    make(map[string]map[string]struct{}),
	}
}

// mirrorSave mirrors s out of process, best-effort: failures are logged, not
// returned, since the in-memory Store is authoritative and must not block on
// a slow or unavailable durability layer.
func (st *Store) mirrorSave(ctx context.Context, s Session) {
	if st.mirror == nil {
		return
	}
	if err := st.mirror.Save(ctx, s); err != nil {
		st.log.Warn(ctx, "session mirror save failed", "session_id", s.ID, "error", err.Error())
	}
}

// Create creates a new active session. Returns ErrCycle if parentID is set
// and would introduce a cycle (e.g. parentID == id, or parentID descends
// from id).
func (st *Store) Create(ctx context.Context, id, parentID, agent, projectID, userID string) (Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if parentID != "" {
		if parentID == id || st.descendsFromLocked(parentID, id) {
			return Session{}, ErrCycle
		}
	}

	now := st.clock()
	s := Session{
		ID:        id,
		ParentID:  parentID,
		Agent:     agent,
		ProjectID: projectID,
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
		Status:    StatusActive,
	}
	st.sessions[id] = s
	if parentID != "" {
		if st.children[parentID] == nil {
			st.children[parentID] = make(map[string]struct{})
		}
		st.children[parentID][id] = struct{}{}
	}
	st.mirrorSave(ctx, s)
	return s, nil
}

// GetOrCreate returns the existing session for id, or creates it if absent.
func (st *Store) GetOrCreate(ctx context.Context, id, parentID, agent, projectID, userID string) (Session, error) {
	if s, ok := st.Get(id); ok {
		return s, nil
	}
	return st.Create(ctx, id, parentID, agent, projectID, userID)
}

// Get returns the session with the given id.
func (st *Store) Get(id string) (Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[id]
	return s, ok
}

// GetChildren returns the direct children of parentID.
func (st *Store) GetChildren(parentID string) []Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	var out []Session
	for childID := range st.children[parentID] {
		if s, ok := st.sessions[childID]; ok {
			out = append(out, s)
		}
	}
	return out
}

// GetActiveSessions returns every session currently in status active.
func (st *Store) GetActiveSessions() []Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	var out []Session
	for _, s := range st.sessions {
		if s.Status == StatusActive {
			out = append(out, s)
		}
	}
	return out
}

// IsSubagentSession reports whether id has a non-empty ParentID.
func (st *Store) IsSubagentSession(id string) bool {
	s, ok := st.Get(id)
	return ok && s.ParentID != ""
}

// AddMessage appends a message to the session, applying the message-cap
// eviction policy: when the cap is exceeded, the oldest non-system messages
// are dropped first; system messages are never dropped by this policy.
func (st *Store) AddMessage(id string, msg Message) (Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[id]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = st.clock()
	}
	s.Messages = append(s.Messages, msg)
	s.Messages = evictToCap(s.Messages, st.maxMessages)
	s.UpdatedAt = st.clock()
	st.sessions[id] = s
	st.mirrorSave(context.Background(), s)
	return s, nil
}

// evictToCap drops the oldest non-system messages until len(messages) <= cap.
// System messages are retained regardless of age, even if that means the
// resulting slice still exceeds cap (system messages are never evicted).
func evictToCap(messages []Message, cap int) []Message {
	if len(messages) <= cap {
		return messages
	}
	overflow := len(messages) - cap
	out := make([]Message, 0, len(messages))
	dropped := 0
	for _, m := range messages {
		if dropped < overflow && m.Role != RoleSystem {
			dropped++
			continue
		}
		out = append(out, m)
	}
	return out
}

// UpdateStatus transitions a session to a new status. Returns
// ErrSessionNotFound if id is unknown.
func (st *Store) UpdateStatus(id string, status Status) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	s.Status = status
	s.UpdatedAt = st.clock()
	st.sessions[id] = s
	st.mirrorSave(context.Background(), s)
	return nil
}

// Delete removes a session outright (not the TTL-based path; used for
// explicit caller-driven deletion).
func (st *Store) Delete(id string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[id]
	delete(st.sessions, id)
	if ok && s.ParentID != "" {
		delete(st.children[s.ParentID], id)
	}
	delete(st.children, id)
}

// PruneStaleSessions removes sessions where now - UpdatedAt > TTL and
// status != active. A session with any remaining child is never pruned.
func (st *Store) PruneStaleSessions() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	now := st.clock()
	pruned := 0
	for id, s := range st.sessions {
		if s.Status == StatusActive {
			continue
		}
		if now.Sub(s.UpdatedAt) <= st.ttl {
			continue
		}
		if len(st.children[id]) > 0 {
			continue
		}
		delete(st.sessions, id)
		if s.ParentID != "" {
			delete(st.children[s.ParentID], id)
		}
		delete(st.children, id)
		pruned++
	}
	return pruned
}

// GetSessionContext returns id's messages plus its ancestors' messages,
// walking the parent chain from root to id so older context reads first.
func (st *Store) GetSessionContext(id string) ([]Message, error) {
	st.mu.Lock()
	chain, err := st.ancestorChainLocked(id)
	st.mu.Unlock()
	if err != nil {
		return nil, err
	}
	var out []Message
	for _, s := range chain {
		out = append(out, s.Messages...)
	}
	return out, nil
}

func (st *Store) ancestorChainLocked(id string) ([]Session, error) {
	var chain []Session
	current := id
	seen := make(map[string]struct{})
	for current != "" {
		if _, ok := seen[current]; ok {
			return nil, ErrCycle
		}
		seen[current] = struct{}{}
		s, ok := st.sessions[current]
		if !ok {
			return nil, ErrSessionNotFound
		}
		chain = append([]Session{s}, chain...)
		current = s.ParentID
	}
	return chain, nil
}

// ListSessions returns sessions matching filters, capped at limit (0 means
// unlimited).
func (st *Store) ListSessions(filters Filters, limit int) []Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	var out []Session
	for _, s := range st.sessions {
		if filters.ProjectID != "" && s.ProjectID != filters.ProjectID {
			continue
		}
		if filters.UserID != "" && s.UserID != filters.UserID {
			continue
		}
		if filters.HasStatus && s.Status != filters.Status {
			continue
		}
		out = append(out, s)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

func (st *Store) descendsFromLocked(candidateParent, id string) bool {
	current := candidateParent
	for current != "" {
		if current == id {
			return true
		}
		current = st.sessions[current].ParentID
	}
	return false
}
