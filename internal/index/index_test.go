package index

import (
	"path/filepath"
	"testing"

	"github.com/cortexmind/cortex/internal/store"
	"github.com/stretchr/testify/require"
)

func TestWarmupAndHotTier(t *testing.T) {
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer s.Close()

	for i := 0; i < 3; i++ {
		m := &store.Memory{Content: "memory content", Categories: []string{"operations"}}
		require.NoError(t, s.AddMemory(m))
	}

	ix := New(s, 10)
	require.NoError(t, ix.Warmup(10))

	hot := ix.GetHot(5)
	require.Len(t, hot, 3)

	byCat := ix.GetByCategory("operations")
	require.Len(t, byCat, 3)
}

func TestRecordAccessReranksHotTier(t *testing.T) {
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer s.Close()

	low := &store.Memory{Content: "rarely accessed"}
	high := &store.Memory{Content: "frequently accessed"}
	require.NoError(t, s.AddMemory(low))
	require.NoError(t, s.AddMemory(high))

	ix := New(s, 10)
	require.NoError(t, ix.Warmup(10))

	for i := 0; i < 5; i++ {
		ix.RecordAccess(high.ID)
	}

	hot := ix.GetHot(2)
	require.Equal(t, high.ID, hot[0].ID)
}

func TestRecordCoOccurrence(t *testing.T) {
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer s.Close()
	ix := New(s, 10)

	ix.RecordCoOccurrence([]string{"a", "b", "c"})
	neighbors := ix.CoOccurring("a", 5)
	require.Contains(t, neighbors, "b")
	require.Contains(t, neighbors, "c")
}
