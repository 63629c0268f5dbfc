package gate

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cortexmind/cortex/internal/category"
	"github.com/cortexmind/cortex/internal/enforcement"
	"github.com/cortexmind/cortex/internal/sop"
	"github.com/cortexmind/cortex/internal/store"
	"github.com/stretchr/testify/require"
)

func setupGate(t *testing.T, level enforcement.Level) *Gate {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	cats, err := category.New(s)
	require.NoError(t, err)

	enh := sop.New(t.TempDir(), sop.DefaultPatterns(), nil)

	cfg := enforcement.Config{
		Level:                level,
		MinBlockingPriority:  90,
		ConfidenceThresholds: map[string]float64{"routine": 0.5},
		MaxKnowledgeLength:   200,
	}
	return New(enh, s, cats, cfg, 150*time.Millisecond, 0.0, nil, nil)
}

func TestBeforeToolCallIgnoresUnintercepted(t *testing.T) {
	g := setupGate(t, enforcement.LevelStrict)
	res := g.BeforeToolCall(context.Background(), "read_file", map[string]string{"path": "/tmp/x"})
	require.False(t, res.Block)
}

func TestBeforeToolCallPassesReadOnlyCommand(t *testing.T) {
	g := setupGate(t, enforcement.LevelStrict)
	res := g.BeforeToolCall(context.Background(), "exec", map[string]string{"command": "git status"})
	require.False(t, res.Block)
}

func TestBeforeToolCallPassesWhenNoSourcesMatch(t *testing.T) {
	g := setupGate(t, enforcement.LevelStrict)
	res := g.BeforeToolCall(context.Background(), "exec", map[string]string{"command": "echo hello world"})
	require.False(t, res.Block)
}

func TestBeforeToolCallBlocksOnDestructiveSOP(t *testing.T) {
	dir := t.TempDir()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	cats, err := category.New(s)
	require.NoError(t, err)

	writeSOPFile(t, dir, "destructive-delete.sop", "preflight:\n  confirm target path\n")
	enh := sop.New(dir, sop.DefaultPatterns(), nil)

	cfg := enforcement.Config{
		Level:                enforcement.LevelStrict,
		MinBlockingPriority:  90,
		ConfidenceThresholds: map[string]float64{"routine": 0.5},
		MaxKnowledgeLength:   200,
	}
	g := New(enh, s, cats, cfg, 150*time.Millisecond, 0.0, nil, nil)

	res := g.BeforeToolCall(context.Background(), "exec", map[string]string{"command": "rm -rf /var/data/build"})
	require.True(t, res.Block)
	require.NotEmpty(t, res.BlockReason)
}

func writeSOPFile(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}
