// Package scoring implements C5: pure confidence and relevance functions
// consumed by the store's write path, the hot tier, and the context
// injector. Nothing here touches storage or the clock beyond the `now`
// argument callers pass in, so it stays trivially unit-testable.
package scoring

import (
	"math"
	"strings"
	"time"
)

// Confidence thresholds consumed by callers (not enforced here).
const (
	ThresholdCritical    = 0.8
	ThresholdRoutine     = 0.5
	ThresholdExperimental = 0.2
)

const (
	minConfidence = 0.1
	maxConfidence = 1.0
)

// InitialConfidence is assigned to every newly created memory.
const InitialConfidence = 1.0

// AgeDecay returns the confidence contribution from age alone.
func AgeDecay(createdAt, now time.Time) float64 {
	days := now.Sub(createdAt).Hours() / 24
	return math.Max(minConfidence, 1.0-days*0.01)
}

// AccessBonus returns the access-count bonus, capped at +0.5.
func AccessBonus(accessCount int) float64 {
	bonus := float64(accessCount) * 0.05
	if bonus > 0.5 {
		bonus = 0.5
	}
	return bonus
}

// ValidationBonus returns the bonus for validated atom executions.
func ValidationBonus(validationCount int) float64 {
	return float64(validationCount) * 0.2
}

// ContradictionPenalty returns the penalty for flagged contradictions.
func ContradictionPenalty(contradictionCount int) float64 {
	return float64(contradictionCount) * -0.3
}

// Clamp bounds a confidence value to [0.1, 1.0].
func Clamp(v float64) float64 {
	if v < minConfidence {
		return minConfidence
	}
	if v > maxConfidence {
		return maxConfidence
	}
	return v
}

// Recompute folds age decay, access bonus, validation bonus, and
// contradiction penalty into a single clamped confidence value.
func Recompute(createdAt, now time.Time, accessCount, validationCount, contradictionCount int) float64 {
	v := AgeDecay(createdAt, now) + AccessBonus(accessCount) + ValidationBonus(validationCount) + ContradictionPenalty(contradictionCount)
	return Clamp(v)
}

// temporalHalfLifeHours is STM matching's exponential decay half-life.
const temporalHalfLifeHours = 48.0

// TemporalRelevance returns an exponential-decay weight in (0, 1] with a
// 48-hour half-life, used by STM match scoring and the hot tier.
func TemporalRelevance(since time.Duration) float64 {
	hours := since.Hours()
	return math.Exp(-0.6931471805599453 * hours / temporalHalfLifeHours) // ln(2) * hours / halflife
}

// MatchInput carries the signals STMMatchScore combines.
type MatchInput struct {
	Query            string
	Content          string
	CreatedAt        time.Time
	Now              time.Time
	Importance       float64
	SharedCategories int
}

// STMMatchScore combines keyword overlap, an exact-phrase bonus, recency,
// importance, and a category-overlap bonus into a single composite score.
func STMMatchScore(in MatchInput) float64 {
	overlap := keywordOverlap(in.Query, in.Content)
	score := overlap

	if len(in.Query) > 5 && strings.Contains(strings.ToLower(in.Content), strings.ToLower(in.Query)) {
		score += 0.3
	}

	score += TemporalRelevance(in.Now.Sub(in.CreatedAt)) * 0.2
	score += (in.Importance - 1.0) / 2.0 * 0.15 // importance in [1,3] -> [0, 0.15]

	if in.SharedCategories > 0 {
		score += math.Min(float64(in.SharedCategories)*0.1, 0.3)
	}

	return score
}

func keywordOverlap(query, content string) float64 {
	qWords := uniqueWords(query)
	if len(qWords) == 0 {
		return 0
	}
	cWords := uniqueWords(content)
	cSet := make(map[string]bool, len(cWords))
	for _, w := range cWords {
		cSet[w] = true
	}
	matched := 0
	for _, w := range qWords {
		if cSet[w] {
			matched++
		}
	}
	return float64(matched) / float64(len(qWords))
}

func uniqueWords(s string) []string {
	fields := strings.Fields(strings.ToLower(s))
	seen := make(map[string]bool, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ".,!?;:\"'()")
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}
