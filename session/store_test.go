package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/codi-platform/orchestrator-core/session"
	"github.com/stretchr/testify/require"
)

func TestCreateDetectsCycle(t *testing.T) {
	st := session.New(session.Options{})
	ctx := context.Background()

	_, err := st.Create(ctx, "root", "", "builder", "proj-1", "user-1")
	require.NoError(t, err)
	_, err = st.Create(ctx, "child", "root", "builder", "proj-1", "user-1")
	require.NoError(t, err)

	_, err = st.Create(ctx, "root", "child", "builder", "proj-1", "user-1")
	require.ErrorIs(t, err, session.ErrCycle)
}

func TestMessageCapEvictsOldestNonSystemFirst(t *testing.T) {
	st := session.New(session.Options{MaxMessages: 3})
	ctx := context.Background()
	_, err := st.Create(ctx, "s1", "", "builder", "proj-1", "user-1")
	require.NoError(t, err)

	_, err = st.AddMessage("s1", session.Message{Role: session.RoleSystem, Content: "persistent instructions"})
	require.NoError(t, err)
	_, err = st.AddMessage("s1", session.Message{Role: session.RoleUser, Content: "msg1"})
	require.NoError(t, err)
	_, err = st.AddMessage("s1", session.Message{Role: session.RoleAssistant, Content: "msg2"})
	require.NoError(t, err)
	s, err := st.AddMessage("s1", session.Message{Role: session.RoleUser, Content: "msg3"})
	require.NoError(t, err)

	require.Len(t, s.Messages, 3)
	require.Equal(t, session.RoleSystem, s.Messages[0].Role, "system message must survive eviction")
	var contents []string
	for _, m := range s.Messages {
		contents = append(contents, m.Content)
	}
	require.Contains(t, contents, "msg2")
	require.Contains(t, contents, "msg3")
	require.NotContains(t, contents, "msg1", "oldest non-system message should be evicted first")
}

func TestPruneStaleSessionsSkipsActiveAndParentsWithChildren(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	st := session.New(session.Options{TTL: time.Hour, Clock: clock})
	ctx := context.Background()

	_, err := st.Create(ctx, "parent", "", "builder", "proj-1", "user-1")
	require.NoError(t, err)
	_, err = st.Create(ctx, "child", "parent", "builder", "proj-1", "user-1")
	require.NoError(t, err)
	require.NoError(t, st.UpdateStatus("parent", session.StatusIdle))

	now = now.Add(2 * time.Hour)
	// The child was touched just now, so it is not stale itself.
	require.NoError(t, st.UpdateStatus("child", session.StatusIdle))
	pruned := st.PruneStaleSessions()
	require.Equal(t, 0, pruned, "parent must not be pruned while a child remains")

	st.Delete("child")
	pruned = st.PruneStaleSessions()
	require.Equal(t, 1, pruned)

	_, found := st.Get("parent")
	require.False(t, found)
}

type fakeMirror struct {
	saved []session.Session
}

func (f *fakeMirror) Save(ctx context.Context, s session.Session) error {
	f.saved = append(f.saved, s)
	return nil
}

func TestStoreMirrorsEveryMutation(t *testing.T) {
	mirror := &fakeMirror{}
	st := session.New(session.Options{Mirror: mirror})
	ctx := context.Background()

	_, err := st.Create(ctx, "s1", "", "builder", "proj-1", "user-1")
	require.NoError(t, err)
	_, err = st.AddMessage("s1", session.Message{Role: session.RoleUser, Content: "hi"})
	require.NoError(t, err)
	require.NoError(t, st.UpdateStatus("s1", session.StatusIdle))

	require.Len(t, mirror.saved, 3, "create, add message, and update status should each mirror a snapshot")
	require.Equal(t, session.StatusIdle, mirror.saved[len(mirror.saved)-1].Status)
}

func TestGetSessionContextWalksAncestorChain(t *testing.T) {
	st := session.New(session.Options{})
	ctx := context.Background()
	_, err := st.Create(ctx, "root", "", "builder", "proj-1", "user-1")
	require.NoError(t, err)
	_, err = st.AddMessage("root", session.Message{Role: session.RoleUser, Content: "root msg"})
	require.NoError(t, err)
	_, err = st.Create(ctx, "child", "root", "builder", "proj-1", "user-1")
	require.NoError(t, err)
	_, err = st.AddMessage("child", session.Message{Role: session.RoleUser, Content: "child msg"})
	require.NoError(t, err)

	msgs, err := st.GetSessionContext("child")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	require.Equal(t, "root msg", msgs[0].Content)
	require.Equal(t, "child msg", msgs[1].Content)
}
