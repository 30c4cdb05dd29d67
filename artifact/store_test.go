package artifact_test

import (
	"context"
	"testing"
	"time"

	"github.com/codi-platform/orchestrator-core/artifact"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *artifact.Store {
	t.Helper()
	return artifact.New(artifact.Options{
		ProjectID: "proj-1",
		FileStore: artifact.NewFileStore(t.TempDir()),
	})
}

func TestPersistComputesContentHash(t *testing.T) {
	store := newStore(t)
	a, err := store.Produce(context.Background(), artifact.TypeFile, "builder", "hello world", map[string]any{
		artifact.MetaFilePath:  "main.go",
		artifact.MetaOperation: artifact.OperationCreate,
	})
	require.NoError(t, err)
	require.NotEmpty(t, a.ContentHash)
	require.Len(t, a.ContentHash, 16)

	got, found, err := store.Get(context.Background(), a.ID)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, a.ContentHash, got.ContentHash, "content hash must be stable across reads")
}

func TestSupersedeChain(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	first, err := store.Produce(ctx, artifact.TypeBuild, "builder", "v1 output", map[string]any{
		artifact.MetaSuccess: false,
	})
	require.NoError(t, err)

	second, ok, err := store.Supersede(ctx, first.ID, "v2 output", map[string]any{
		artifact.MetaSuccess: true,
	})
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, first.ID, second.ParentID)
	require.Contains(t, second.RelatedIDs, first.ID)

	reloadedFirst, found, err := store.Get(ctx, first.ID)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, artifact.StatusSuperseded, reloadedFirst.Status)
	require.Equal(t, artifact.StatusActive, second.Status)

	latest, ok := store.GetLatest(artifact.TypeBuild, "builder")
	require.True(t, ok)
	require.Equal(t, second.ID, latest.ID, "the tail of the chain must be the unique active artifact")
}

func TestSupersedeMissingIDIsSilentNoOp(t *testing.T) {
	store := newStore(t)
	_, ok, err := store.Supersede(context.Background(), "does-not-exist", "x", nil)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestConvenienceQueries(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	require.False(t, store.HasErrors())
	require.False(t, store.BuildSucceeded())
	require.True(t, store.TestsPassed(), "no build yet means tests trivially pass")
	require.True(t, store.PlanApproved(), "no plan needed means satisfied")

	_, err := store.Produce(ctx, artifact.TypeError, "sage", "boom", map[string]any{
		artifact.MetaRecoverable: true,
	})
	require.NoError(t, err)
	require.True(t, store.HasErrors())
	require.Len(t, store.GetActiveErrors(), 1)

	_, err = store.Produce(ctx, artifact.TypeBuild, "builder", "ok", map[string]any{
		artifact.MetaSuccess:     true,
		artifact.MetaTestsPassed: false,
	})
	require.NoError(t, err)
	require.True(t, store.BuildSucceeded())
	require.False(t, store.TestsPassed())

	_, err = store.Produce(ctx, artifact.TypePlan, "planner", "plan body", map[string]any{
		artifact.MetaPlanStatus: artifact.PlanStatusPendingReview,
	})
	require.NoError(t, err)
	require.False(t, store.PlanApproved())
	_, pending := store.GetPendingPlan()
	require.True(t, pending)
}

func TestFileStoreRoundTrip(t *testing.T) {
	fs := artifact.NewFileStore(t.TempDir())
	a, err := artifact.New("artifact-1", artifact.TypeFile, "builder", "proj-1", "package main", map[string]any{
		artifact.MetaFilePath: "main.go",
	}, time.Now())
	require.NoError(t, err)

	require.NoError(t, fs.Write(a))
	loaded, found, err := fs.Read(a.ID)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, a.ContentHash, loaded.ContentHash)
	require.Equal(t, a.Content, loaded.Content)

	_, found, err = fs.Read("missing")
	require.NoError(t, err)
	require.False(t, found)
}
