package inject

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/cortexmind/cortex/internal/category"
	"github.com/cortexmind/cortex/internal/index"
	"github.com/cortexmind/cortex/internal/sessionring"
	"github.com/cortexmind/cortex/internal/store"
	"github.com/stretchr/testify/require"
)

func TestTokenBudgetScalesWithComplexity(t *testing.T) {
	require.Equal(t, baseBudget, TokenBudget("hello"))
	require.Greater(t, TokenBudget("why does this ```code``` throw an exception?"), baseBudget)
}

func TestEstimateTokensRoundsUp(t *testing.T) {
	require.Equal(t, 3, EstimateTokens("abcdefghij")) // 10 chars -> ceil(10/4)=3
}

func setupComposerStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestComposeIncludesPinsUnconditionally(t *testing.T) {
	s := setupComposerStore(t)
	idx := index.New(s, 50)
	ring := sessionring.New(20, 4000)
	cats, err := category.New(s)
	require.NoError(t, err)

	c := New(Config{RelevanceThreshold: 0.5, MinMatchScore: 0.3, TruncateOldMemoriesTo: 300}, idx, ring, cats, nil, nil)
	pins := []store.WorkingMemoryPin{{Content: "always use staging before prod", Label: "CRITICAL_deploy"}}

	res := c.Compose(context.Background(), "how do I deploy the service?", "", pins)
	require.Contains(t, res.PrependContext, "staging before prod")
}

func TestComposeDedupsAcrossTiers(t *testing.T) {
	s := setupComposerStore(t)
	require.NoError(t, s.AddMemory(&store.Memory{ID: "m1", Content: "restart the gateway after config change", Importance: 0.5, Confidence: 0.9, CreatedAt: time.Now(), Source: store.SourceAgent}))

	idx := index.New(s, 50)
	require.NoError(t, idx.Warmup(50))
	ring := sessionring.New(20, 4000)
	ring.Push("user", "restart the gateway after config change")
	cats, err := category.New(s)
	require.NoError(t, err)

	c := New(Config{RelevanceThreshold: 0.5, MinMatchScore: 0.1, TruncateOldMemoriesTo: 300}, idx, ring, cats, nil, nil)
	res := c.Compose(context.Background(), "restart gateway", "", nil)

	count := 0
	for i := 0; i+len("restart the gateway") <= len(res.PrependContext); i++ {
		if res.PrependContext[i:i+len("restart the gateway")] == "restart the gateway" {
			count++
		}
	}
	require.LessOrEqual(t, count, 1)
}
