package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// FileStore persists file-type artifacts to a project's `.codi/artifacts/`
// directory, one JSON document per artifact named `<artifact_id>.json`.
// It is the durable copy of file content across process restarts; within a
// process the Store reads its in-memory cache first and this store second.
type FileStore struct {
	artifactsDir string
}

// NewFileStore returns a FileStore rooted at projectPath/.codi/artifacts.
func NewFileStore(projectPath string) *FileStore {
	return &FileStore{artifactsDir: filepath.Join(projectPath, ".codi", "artifacts")}
}

// diskArtifact is the canonical on-disk document shape: the fields of
// Artifact in a form that round-trips through encoding/json regardless of
// what concrete type Content holds.
type diskArtifact struct {
	ID          string         `json:"id"`
	Type        Type           `json:"type"`
	Producer    string         `json:"producer"`
	ProjectID   string         `json:"project_id"`
	Content     any            `json:"content"`
	ContentHash string         `json:"content_hash"`
	Metadata    map[string]any `json:"metadata"`
	Status      Status         `json:"status"`
	ParentID    string         `json:"parent_id"`
	RelatedIDs  []string       `json:"related_ids"`
	CreatedAt   string         `json:"created_at"`
}

// Write serializes a to `<artifacts_dir>/<id>.json`, creating the directory
// if needed.
func (fs *FileStore) Write(a Artifact) error {
	if err := os.MkdirAll(fs.artifactsDir, 0o755); err != nil {
		return fmt.Errorf("create artifacts dir: %w", err)
	}
	doc := diskArtifact{
		ID:          a.ID,
		Type:        a.Type,
		Producer:    a.Producer,
		ProjectID:   a.ProjectID,
		Content:     a.Content,
		ContentHash: a.ContentHash,
		Metadata:    a.Metadata,
		Status:      a.Status,
		ParentID:    a.ParentID,
		RelatedIDs:  a.RelatedIDs,
		CreatedAt:   a.CreatedAt.Format(timeLayout),
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal artifact: %w", err)
	}
	path := filepath.Join(fs.artifactsDir, a.ID+".json")
	return os.WriteFile(path, data, 0o644)
}

// Read loads the artifact with the given id from disk. The second return
// value is false (with a nil error) when no document exists for id.
func (fs *FileStore) Read(id string) (Artifact, bool, error) {
	path := filepath.Join(fs.artifactsDir, id+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Artifact{}, false, nil
		}
		return Artifact{}, false, fmt.Errorf("read artifact file: %w", err)
	}
	var doc diskArtifact
	if err := json.Unmarshal(data, &doc); err != nil {
		return Artifact{}, false, fmt.Errorf("unmarshal artifact file: %w", err)
	}
	createdAt, err := parseTime(doc.CreatedAt)
	if err != nil {
		return Artifact{}, false, fmt.Errorf("parse artifact created_at: %w", err)
	}
	return Artifact{
		ID:          doc.ID,
		Type:        doc.Type,
		Producer:    doc.Producer,
		ProjectID:   doc.ProjectID,
		Content:     doc.Content,
		ContentHash: doc.ContentHash,
		Metadata:    doc.Metadata,
		Status:      doc.Status,
		ParentID:    doc.ParentID,
		RelatedIDs:  doc.RelatedIDs,
		CreatedAt:   createdAt,
	}, true, nil
}
