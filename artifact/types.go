// Package artifact implements the content-addressed, hashed, versioned
// artifact store that is the single source of truth for a project's working
// state during orchestration.
package artifact

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"time"
)

type (
	// Type is the closed set of artifact kinds the store understands.
	Type string

	// Status is the lifecycle state of an artifact.
	Status string

	// Artifact is an immutable, typed, content-hashed record of work
	// produced by a worker. Once persisted an Artifact's fields never
	// change except Status and RelatedIDs, and only through Supersede or
	// Invalidate.
	Artifact struct {
		// ID is the opaque unique identifier assigned at construction.
		ID string
		// Type identifies what kind of artifact this is.
		Type Type
		// Producer is the name of the agent that wrote it.
		Producer string
		// ProjectID scopes the artifact to a project.
		ProjectID string
		// Content is the payload: string, []byte, or a JSON-marshalable value.
		Content any
		// ContentHash is a short hash (>=16 hex chars) of the canonicalized
		// content, computed once at construction.
		ContentHash string
		// Metadata holds type-specific conventional keys (see the Meta*
		// constants for the key conventions).
		Metadata map[string]any
		// Status is the current lifecycle state.
		Status Status
		// ParentID optionally links to the artifact this one replaced.
		ParentID string
		// RelatedIDs is an ordered list of ancestors and siblings.
		RelatedIDs []string
		// CreatedAt is a monotonically ordered creation timestamp.
		CreatedAt time.Time
	}
)

const (
	TypeFile     Type = "file"
	TypeDiff     Type = "diff"
	TypeBuild    Type = "build"
	TypePreview  Type = "preview"
	TypeError    Type = "error"
	TypeLog      Type = "log"
	TypePlan     Type = "plan"
	TypeTask     Type = "task"
	TypeAnalysis Type = "analysis"
	TypeIntent   Type = "intent"
)

const (
	StatusPending    Status = "pending"
	StatusActive     Status = "active"
	StatusSuperseded Status = "superseded"
	StatusInvalid    Status = "invalid"
)

// Conventional metadata keys, declared here so producers and readers agree
// on spelling without importing a shared constants file from elsewhere.
const (
	MetaFilePath      = "file_path"
	MetaOperation     = "operation" // create, update, delete
	MetaErrorType     = "error_type"
	MetaStackTrace    = "stack_trace"
	MetaRecoverable   = "recoverable"
	MetaSuccess       = "success"
	MetaCommand       = "command"
	MetaExitCode      = "exit_code"
	MetaTestsPassed   = "tests_passed"
	MetaContainerID   = "container_id"
	MetaPlanStatus    = "status" // pending_review, approved, rejected
)

const (
	OperationCreate = "create"
	OperationUpdate = "update"
	OperationDelete = "delete"

	PlanStatusPendingReview = "pending_review"
	PlanStatusApproved      = "approved"
	PlanStatusRejected      = "rejected"
)

// New constructs an Artifact with a freshly computed ContentHash. id is
// caller-supplied (typically a uuid); createdAt should be monotonically
// increasing across calls from the same store.
func New(id string, typ Type, producer, projectID string, content any, metadata map[string]any, createdAt time.Time) (Artifact, error) {
	hash, err := Hash(content)
	if err != nil {
		return Artifact{}, err
	}
	if metadata == nil {
		metadata = map[string]any{}
	}
	return Artifact{
		ID:          id,
		Type:        typ,
		Producer:    producer,
		ProjectID:   projectID,
		Content:     content,
		ContentHash: hash,
		Metadata:    metadata,
		Status:      StatusActive,
		RelatedIDs:  nil,
		CreatedAt:   createdAt,
	}, nil
}

// Hash canonicalizes content and returns a short hex digest (16 chars, i.e.
// the first 8 bytes of a SHA-256 digest) suitable for deduplication and
// equivalence checks without bloating logs.
//
// Strings and byte slices are hashed as raw bytes. Anything else is hashed
// as a deterministic JSON serialization with sorted object keys, which
// Go's encoding/json already guarantees for map[string]any values.
func Hash(content any) (string, error) {
	var raw []byte
	switch v := content.(type) {
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		canon, err := canonicalJSON(content)
		if err != nil {
			return "", err
		}
		raw = canon
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])[:16], nil
}

// canonicalJSON marshals v with map keys sorted, which encoding/json does
// natively for map[string]any; for struct values field order is the
// struct's declaration order, which is stable across calls.
func canonicalJSON(v any) ([]byte, error) {
	return json.Marshal(v)
}

// Supersede returns a new Artifact that replaces a, carrying a's id forward
// as ParentID and appending a's id to RelatedIDs. The caller is responsible
// for marking a itself superseded and persisting both.
func (a Artifact) Supersede(newID string, newContent any, metadata map[string]any, createdAt time.Time) (Artifact, error) {
	next, err := New(newID, a.Type, a.Producer, a.ProjectID, newContent, metadata, createdAt)
	if err != nil {
		return Artifact{}, err
	}
	next.ParentID = a.ID
	next.RelatedIDs = append(append([]string{}, a.RelatedIDs...), a.ID)
	return next, nil
}

// sortByCreatedAtDesc sorts artifacts newest-first, matching the store's
// query ordering contract.
func sortByCreatedAtDesc(artifacts []Artifact) {
	sort.Slice(artifacts, func(i, j int) bool {
		return artifacts[i].CreatedAt.After(artifacts[j].CreatedAt)
	})
}
