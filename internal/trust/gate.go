package trust

import (
	"fmt"
	"time"

	"github.com/cortexmind/cortex/internal/store"
)

// Gate composes the classifier, scorer, overrides, and feedback collector
// into the single (tool_name, params) -> GateDecision surface C8 calls
// after its own enforcement pass.
type Gate struct {
	scorer    *Scorer
	overrides *Overrides
	feedback  *Collector
}

// New builds a trust Gate.
func New(s *store.Store, feedbackWindow time.Duration) *Gate {
	return &Gate{scorer: NewScorer(s), overrides: NewOverrides(s), feedback: NewCollector(s, feedbackWindow)}
}

// Evaluate classifies the call, looks up the category's score and any
// override, and returns a decision plus the decision log entry the caller
// should persist via Log once the tool result is known.
func (g *Gate) Evaluate(toolName string, params map[string]string, now time.Time) (store.GateDecision, *store.DecisionLogEntry, error) {
	class := Classify(toolName, params)

	ts, err := g.scorer.Get(class.Category, class.Tier)
	if err != nil {
		return store.DecisionBlock, nil, fmt.Errorf("trust: score lookup: %w", err)
	}
	override, _ := g.overrides.Active(class.Category, now)

	decision := Decide(class.Tier, ts.CurrentScore, override, now)

	entry := &store.DecisionLogEntry{
		ToolName:          toolName,
		Category:          class.Category,
		Tier:              int(class.Tier),
		GateDecision:      decision,
		ToolParamsSummary: paramsString(params),
	}
	return decision, entry, nil
}

// Record persists the decision log entry and advances the feedback window.
func (g *Gate) Record(entry *store.DecisionLogEntry, now time.Time) error {
	return g.feedback.Log(entry, now)
}

// ApplyOutcome updates the category's EWMA score for a resolved outcome.
func (g *Gate) ApplyOutcome(category string, tier Tier, outcome store.Outcome) (*store.TrustScore, error) {
	return g.scorer.Update(category, tier, outcome)
}

// CheckCorrection inspects a follow-up message for a correction phrase.
func (g *Gate) CheckCorrection(category, message string, now time.Time) (store.Outcome, bool, error) {
	return g.feedback.Correct(category, message, now)
}

// Sweep resolves expired pending decisions to pass.
func (g *Gate) Sweep(now time.Time) (int, error) {
	return g.feedback.Sweep(now)
}

// Overrides exposes the override manager for the admin surface.
func (g *Gate) Overrides() *Overrides {
	return g.overrides
}
