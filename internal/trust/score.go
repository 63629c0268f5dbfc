package trust

import (
	"time"

	"github.com/cortexmind/cortex/internal/store"
)

// alphas are the EWMA smoothing factors per tier; tiers 1-3 adapt faster the
// higher the tier, since mistakes there are costlier to leave uncorrected.
// Tier 4 has alpha 0, so its score never moves.
var alphas = map[Tier]float64{Tier1: 0.08, Tier2: 0.10, Tier3: 0.15, Tier4: 0.0}

// outcomeDeltas maps an outcome to the score delta applied before smoothing.
var outcomeDeltas = map[store.Outcome]float64{
	store.OutcomePass:                 1.0,
	store.OutcomeCorrectedMinor:       -0.5,
	store.OutcomeCorrectedSignificant: -1.0,
	store.OutcomeToolErrorInternal:    -0.3,
	store.OutcomeToolErrorExternal:    0.0,
}

// thresholds and floors are the pass/pause/block cutoffs per tier. Tier 4
// has no automatic pass path; every tier-4 action pauses for confirmation.
var thresholds = map[Tier]float64{Tier1: 0.50, Tier2: 0.70, Tier3: 0.85}
var floors = map[Tier]float64{Tier1: 0.20, Tier2: 0.40, Tier3: 0.60}

// Scorer persists and updates per-category EWMA trust scores.
type Scorer struct {
	store *store.Store
}

// NewScorer builds a Scorer.
func NewScorer(s *store.Store) *Scorer {
	return &Scorer{store: s}
}

// Get fetches the current score for a category, tier.
func (sc *Scorer) Get(category string, tier Tier) (*store.TrustScore, error) {
	return sc.store.GetTrustScore(category, int(tier))
}

// Update applies an outcome delta via EWMA and persists the result.
func (sc *Scorer) Update(category string, tier Tier, outcome store.Outcome) (*store.TrustScore, error) {
	current, err := sc.store.GetTrustScore(category, int(tier))
	if err != nil {
		return nil, err
	}
	alpha := alphas[tier]
	delta := outcomeDeltas[outcome]
	next := current.CurrentScore*(1-alpha) + alpha*delta
	current.CurrentScore = clamp01(next)
	current.Tier = int(tier)
	current.DecisionCount++
	if err := sc.store.SaveTrustScore(current); err != nil {
		return nil, err
	}
	return current, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Decide applies the gate decision table: override wins outright, tier 4
// always pauses, otherwise the score is compared against the tier's
// threshold/floor.
func Decide(tier Tier, score float64, override *store.TrustOverride, now time.Time) store.GateDecision {
	if override != nil {
		if override.ExpiresAt == nil || now.Before(*override.ExpiresAt) {
			if override.Granted {
				return store.DecisionPass
			}
			return store.DecisionBlock
		}
	}
	if tier == Tier4 {
		return store.DecisionPause
	}
	if score >= thresholds[tier] {
		return store.DecisionPass
	}
	if score >= floors[tier] {
		return store.DecisionPause
	}
	return store.DecisionBlock
}
