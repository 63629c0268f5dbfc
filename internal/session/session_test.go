package session

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/cortexmind/cortex/internal/store"
	"github.com/stretchr/testify/require"
)

func setupSessionStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRestoreColdStartWhenNoSessions(t *testing.T) {
	s := setupSessionStore(t)
	m := New(s, "", nil)
	rc := m.Restore("default", time.Now())
	require.True(t, rc.ColdStart)
	require.Equal(t, "", rc.Preamble())
}

func TestRestorePicksRecentSessionWithPendingTasks(t *testing.T) {
	s := setupSessionStore(t)
	m := New(s, "", nil)

	past := time.Now().Add(-2 * time.Hour)
	require.NoError(t, s.UpsertSession(&store.SessionState{
		SessionID: "sess-1", StartTime: past, EndTime: &past, Channel: "default",
		HotTopics: []string{"deploy"}, PendingTasks: []string{"finish migration"},
	}))

	rc := m.Restore("default", time.Now())
	require.False(t, rc.ColdStart)
	require.Equal(t, "sess-1", rc.PreviousSessionID)
	require.Contains(t, rc.Preamble(), "finish migration")
}

func TestRecoverDanglingMarksEndTime(t *testing.T) {
	s := setupSessionStore(t)
	m := New(s, "", nil)

	require.NoError(t, s.UpsertSession(&store.SessionState{
		SessionID: "crashed-1", StartTime: time.Now().Add(-time.Hour), Channel: "default",
	}))

	recovered, err := m.RecoverDangling()
	require.NoError(t, err)
	require.Len(t, recovered, 1)
	require.NotNil(t, recovered[0].EndTime)
}

func TestInheritPinsPreservesCriticalBeyondCap(t *testing.T) {
	pins := make([]store.WorkingMemoryPin, 0, 11)
	for i := 0; i < 10; i++ {
		pins = append(pins, store.WorkingMemoryPin{Label: "pin" + string(rune('a'+i)), Content: "x"})
	}
	pins = append(pins, store.WorkingMemoryPin{Label: "CRITICAL_deploy_lock", Content: "never drop"})

	out := inheritPins([]struct {
		sess  *store.SessionState
		score float64
	}{{sess: &store.SessionState{WorkingMemory: pins}, score: 1.0}}, 5)

	found := false
	for _, p := range out {
		if p.Label == "CRITICAL_deploy_lock" {
			found = true
		}
	}
	require.True(t, found)
}
