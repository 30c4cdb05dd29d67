package artifact

import (
	"context"
	"sync"
	"time"

	"github.com/codi-platform/orchestrator-core/orcherr"
	"github.com/codi-platform/orchestrator-core/telemetry"
	"github.com/google/uuid"
)

type (
	// MetadataPort optionally persists artifact metadata to a relational
	// store. A nil port means artifact metadata lives only in-process
	// (file content may still live on disk via FileStore).
	MetadataPort interface {
		UpsertArtifact(ctx context.Context, a Artifact) error
		LoadArtifact(ctx context.Context, id string) (Artifact, bool, error)
	}

	// Store is the single source of truth for a project's working
	// artifacts during a run. A Store instance is scoped to one project
	// and lives for the duration of that project's orchestration activity;
	// concurrent turns for the same project share one Store.
	Store struct {
		projectID string
		clock     func() time.Time
		log       telemetry.Logger

		fileStore *FileStore
		metadata  MetadataPort

		mu    sync.RWMutex
		cache map[string]Artifact
	}

	// Options configures a Store.
	Options struct {
		// ProjectID scopes the store. Required.
		ProjectID string
		// FileStore optionally persists file-type artifacts to disk.
		// Nil disables filesystem persistence.
		FileStore *FileStore
		// Metadata optionally persists artifact metadata out of process.
		// Nil keeps metadata in-memory only.
		Metadata MetadataPort
		// Logger receives non-fatal failure diagnostics. Defaults to a
		// no-op logger.
		Logger telemetry.Logger
		// Clock returns the current time; overridable for tests.
		Clock func() time.Time
	}
)

// New constructs a Store for a single project.
func New(opts Options) *Store {
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	log := opts.Logger
	if log == nil {
		log = telemetry.NewNoopLogger()
	}
	return &Store{
		projectID: opts.ProjectID,
		clock:     clock,
		log:       log,
		fileStore: opts.FileStore,
		metadata:  opts.Metadata,
		cache:     make(map[string]Artifact),
	}
}

// ProjectID returns the project this store is scoped to.
func (s *Store) ProjectID() string { return s.projectID }

// Produce constructs and persists a new active artifact of the given type.
// The artifact's ProjectID is always the store's project.
func (s *Store) Produce(ctx context.Context, typ Type, producer string, content any, metadata map[string]any) (Artifact, error) {
	a, err := New(uuid.NewString(), typ, producer, s.projectID, content, metadata, s.clock())
	if err != nil {
		return Artifact{}, err
	}
	return s.Persist(ctx, a)
}

// Persist caches the artifact by id, writes file-type artifacts to disk,
// and optionally persists metadata through the persistence port. Disk and
// persistence-port failures are logged and do not abort the call; the
// in-memory copy remains authoritative.
func (s *Store) Persist(ctx context.Context, a Artifact) (Artifact, error) {
	if a.ProjectID == "" {
		a.ProjectID = s.projectID
	}
	if a.ContentHash == "" {
		hash, err := Hash(a.Content)
		if err != nil {
			return Artifact{}, err
		}
		a.ContentHash = hash
	}

	s.mu.Lock()
	s.cache[a.ID] = a
	s.mu.Unlock()

	if a.Type == TypeFile && s.fileStore != nil {
		if err := s.fileStore.Write(a); err != nil {
			s.log.Warn(ctx, "artifact filesystem persist failed", "artifact_id", a.ID, "error", err.Error())
		}
	}
	if s.metadata != nil {
		if err := s.metadata.UpsertArtifact(ctx, a); err != nil {
			s.log.Warn(ctx, "artifact metadata persist failed", "artifact_id", a.ID, "error", err.Error())
		}
	}
	return a, nil
}

// PersistBatch persists multiple artifacts in order, stopping at the first error.
func (s *Store) PersistBatch(ctx context.Context, artifacts []Artifact) ([]Artifact, error) {
	out := make([]Artifact, 0, len(artifacts))
	for _, a := range artifacts {
		persisted, err := s.Persist(ctx, a)
		if err != nil {
			return out, err
		}
		out = append(out, persisted)
	}
	return out, nil
}

// Get returns the artifact with the given id, checking the in-memory cache,
// then the on-disk file store, then the metadata port, in that order.
func (s *Store) Get(ctx context.Context, id string) (Artifact, bool, error) {
	s.mu.RLock()
	a, ok := s.cache[id]
	s.mu.RUnlock()
	if ok {
		return a, true, nil
	}

	if s.fileStore != nil {
		if loaded, found, err := s.fileStore.Read(id); err != nil {
			s.log.Warn(ctx, "artifact filesystem load failed", "artifact_id", id, "error", err.Error())
		} else if found {
			s.mu.Lock()
			s.cache[id] = loaded
			s.mu.Unlock()
			return loaded, true, nil
		}
	}

	if s.metadata != nil {
		loaded, found, err := s.metadata.LoadArtifact(ctx, id)
		if err != nil {
			s.log.Warn(ctx, "artifact metadata load failed", "artifact_id", id, "error", err.Error())
			return Artifact{}, false, nil
		}
		if found {
			s.mu.Lock()
			s.cache[id] = loaded
			s.mu.Unlock()
			return loaded, true, nil
		}
	}

	return Artifact{}, false, nil
}

// GetByType returns artifacts of the given type, optionally filtered by
// status, sorted by CreatedAt descending and capped at limit.
func (s *Store) GetByType(typ Type, status *Status, limit int) []Artifact {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Artifact
	for _, a := range s.cache {
		if a.Type != typ {
			continue
		}
		if status != nil && a.Status != *status {
			continue
		}
		out = append(out, a)
	}
	sortByCreatedAtDesc(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// GetByProducer returns artifacts written by producer, optionally filtered
// by type, sorted by CreatedAt descending and capped at limit.
func (s *Store) GetByProducer(producer string, typ *Type, limit int) []Artifact {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Artifact
	for _, a := range s.cache {
		if a.Producer != producer {
			continue
		}
		if typ != nil && a.Type != *typ {
			continue
		}
		out = append(out, a)
	}
	sortByCreatedAtDesc(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// GetLatest returns the most recent active artifact of the given type,
// optionally filtered by producer.
func (s *Store) GetLatest(typ Type, producer string) (Artifact, bool) {
	active := StatusActive
	candidates := s.GetByType(typ, &active, 0)
	for _, a := range candidates {
		if producer == "" || a.Producer == producer {
			return a, true
		}
	}
	return Artifact{}, false
}

// Exists reports whether an artifact matching the criteria exists.
func (s *Store) Exists(typ Type, producer string, status Status) bool {
	candidates := s.GetByType(typ, &status, 0)
	for _, a := range candidates {
		if producer == "" || a.Producer == producer {
			return true
		}
	}
	return false
}

// Supersede marks the existing active artifact as superseded and persists a
// new active artifact with ParentID set to id. Fails silently (returns
// false, nil) if id is not found, matching the store's tolerant-write
// posture for caller convenience.
func (s *Store) Supersede(ctx context.Context, id string, newContent any, metadata map[string]any) (Artifact, bool, error) {
	old, found, err := s.Get(ctx, id)
	if err != nil {
		return Artifact{}, false, err
	}
	if !found {
		return Artifact{}, false, nil
	}
	next, err := old.Supersede(uuid.NewString(), newContent, metadata, s.clock())
	if err != nil {
		return Artifact{}, false, err
	}
	old.Status = StatusSuperseded
	if _, err := s.Persist(ctx, old); err != nil {
		return Artifact{}, false, err
	}
	persisted, err := s.Persist(ctx, next)
	if err != nil {
		return Artifact{}, false, err
	}
	return persisted, true, nil
}

// Invalidate marks an artifact as invalid. Returns orcherr.ErrArtifactNotFound
// if id does not exist.
func (s *Store) Invalidate(ctx context.Context, id string) error {
	a, found, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !found {
		return orcherr.ErrArtifactNotFound
	}
	a.Status = StatusInvalid
	_, err = s.Persist(ctx, a)
	return err
}

// CountByType returns the number of cached artifacts of each type.
func (s *Store) CountByType() map[Type]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[Type]int)
	for _, a := range s.cache {
		counts[a.Type]++
	}
	return counts
}
