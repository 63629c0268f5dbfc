package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAgeDecayFloorsAtMinConfidence(t *testing.T) {
	now := time.Now()
	created := now.Add(-1000 * 24 * time.Hour)
	assert.Equal(t, 0.1, AgeDecay(created, now))
}

func TestAccessBonusCapsAtHalf(t *testing.T) {
	assert.Equal(t, 0.5, AccessBonus(100))
	assert.InDelta(t, 0.25, AccessBonus(5), 0.001)
}

func TestRecomputeClamps(t *testing.T) {
	now := time.Now()
	v := Recompute(now, now, 0, 0, 10) // heavy contradiction penalty
	assert.Equal(t, 0.1, v)
}

func TestSTMMatchScoreRewardsExactPhrase(t *testing.T) {
	now := time.Now()
	withPhrase := STMMatchScore(MatchInput{
		Query: "restart the gateway", Content: "steps to restart the gateway safely",
		CreatedAt: now, Now: now, Importance: 1.0,
	})
	withoutPhrase := STMMatchScore(MatchInput{
		Query: "restart the gateway", Content: "unrelated content about disk cleanup",
		CreatedAt: now, Now: now, Importance: 1.0,
	})
	assert.Greater(t, withPhrase, withoutPhrase)
}
