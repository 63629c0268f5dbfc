package trust

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/cortexmind/cortex/internal/store"
	"github.com/stretchr/testify/require"
)

func setupScorerStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestScorerUpdateMovesTowardPass(t *testing.T) {
	s := setupScorerStore(t)
	sc := NewScorer(s)

	ts, err := sc.Update("mutation", Tier2, store.OutcomePass)
	require.NoError(t, err)
	require.Greater(t, ts.CurrentScore, 0.5)
}

func TestScorerUpdateMovesTowardBlockOnSignificantCorrection(t *testing.T) {
	s := setupScorerStore(t)
	sc := NewScorer(s)

	ts, err := sc.Update("mutation", Tier2, store.OutcomeCorrectedSignificant)
	require.NoError(t, err)
	require.Less(t, ts.CurrentScore, 0.5)
}

func TestScorerUpdateAtFloorNeverRisesOnMinorCorrection(t *testing.T) {
	s := setupScorerStore(t)
	require.NoError(t, s.SaveTrustScore(&store.TrustScore{Category: "mutation", Tier: int(Tier2), CurrentScore: 0.0}))
	sc := NewScorer(s)

	ts, err := sc.Update("mutation", Tier2, store.OutcomeCorrectedMinor)
	require.NoError(t, err)
	require.LessOrEqual(t, ts.CurrentScore, 0.0)
}

func TestDecideTier4AlwaysPauses(t *testing.T) {
	d := Decide(Tier4, 0.99, nil, time.Now())
	require.Equal(t, store.DecisionPause, d)
}

func TestDecideOverrideGrantedPasses(t *testing.T) {
	d := Decide(Tier3, 0.1, &store.TrustOverride{Granted: true}, time.Now())
	require.Equal(t, store.DecisionPass, d)
}

func TestDecideBelowFloorBlocks(t *testing.T) {
	d := Decide(Tier1, 0.1, nil, time.Now())
	require.Equal(t, store.DecisionBlock, d)
}
