// Package enforcement implements C9: a pure decision function mapping
// (context, knowledge, config) to a block/pass verdict, with block-text
// composition.
package enforcement

import (
	"fmt"
	"strings"
	"time"

	"github.com/cortexmind/cortex/internal/extract"
	"github.com/cortexmind/cortex/internal/sop"
	"github.com/cortexmind/cortex/internal/store"
)

// Level is a per-category enforcement strictness.
type Level string

const (
	LevelStrict   Level = "strict"
	LevelCategory Level = "category"
	LevelAdvisory Level = "advisory"
	LevelDisabled Level = "disabled"
)

// Config drives the decision: per-category overrides, the minimum SOP
// priority and memory confidence thresholds that trigger a strict block,
// and safety valves (emergency bypass, cooldown).
type Config struct {
	Level                 Level
	CategoryRules         map[string]Level
	EnforcedCategories     map[string]bool
	MinBlockingPriority   int
	ConfidenceThresholds  map[string]float64 // risk class -> threshold, e.g. "critical": 0.8
	EmergencyBypass       bool
	CooldownWindow        time.Duration
	MaxKnowledgeLength    int
}

// Knowledge bundles the matched SOPs and memories the gate assembled.
type Knowledge struct {
	SOPs      []sop.Match
	Memories  []*store.Memory
}

// Decision is the enforcement verdict.
type Decision struct {
	Block  bool
	Reason string
}

// cooldownKey identifies a repeatable block decision for suppression.
func cooldownKey(primaryCategory, toolName string) string {
	return primaryCategory + "|" + toolName
}

// Cooldown tracks recent identical block decisions to avoid pause/block
// loops.
type Cooldown struct {
	window time.Duration
	last   map[string]time.Time
}

// NewCooldown builds a cooldown tracker.
func NewCooldown(window time.Duration) *Cooldown {
	return &Cooldown{window: window, last: map[string]time.Time{}}
}

// Active reports whether the given decision is within its suppression window.
func (c *Cooldown) Active(primaryCategory, toolName string, now time.Time) bool {
	last, ok := c.last[cooldownKey(primaryCategory, toolName)]
	return ok && now.Sub(last) < c.window
}

// Record marks a block decision as having just fired.
func (c *Cooldown) Record(primaryCategory, toolName string, now time.Time) {
	c.last[cooldownKey(primaryCategory, toolName)] = now
}

// Decide applies the enforcement-level rule table. cooldown may be nil to disable
// suppression (e.g. in pure unit tests).
func Decide(ctx extract.Context, primaryCategory, toolName string, k Knowledge, cfg Config, cooldown *Cooldown, now time.Time) Decision {
	if cfg.EmergencyBypass {
		return Decision{Block: false, Reason: "emergency bypass active"}
	}

	level := cfg.Level
	if l, ok := cfg.CategoryRules[primaryCategory]; ok {
		level = l
	}

	switch level {
	case LevelDisabled:
		return Decision{Block: false}

	case LevelAdvisory:
		return Decision{Block: false, Reason: "advisory: " + composeBlockText(k, cfg)}

	case LevelStrict:
		return strictDecision(k, cfg, primaryCategory, toolName, cooldown, now)

	case LevelCategory:
		if cfg.EnforcedCategories[primaryCategory] {
			return strictDecision(k, cfg, primaryCategory, toolName, cooldown, now)
		}
		return Decision{Block: false, Reason: "advisory: " + composeBlockText(k, cfg)}

	default:
		return Decision{Block: false}
	}
}

func strictDecision(k Knowledge, cfg Config, primaryCategory, toolName string, cooldown *Cooldown, now time.Time) Decision {
	if !shouldBlock(k, cfg) {
		return Decision{Block: false}
	}
	if cooldown != nil && cooldown.Active(primaryCategory, toolName, now) {
		return Decision{Block: false, Reason: "suppressed by cooldown"}
	}
	if cooldown != nil {
		cooldown.Record(primaryCategory, toolName, now)
	}
	return Decision{Block: true, Reason: composeBlockText(k, cfg)}
}

func shouldBlock(k Knowledge, cfg Config) bool {
	for _, m := range k.SOPs {
		if m.Priority >= cfg.MinBlockingPriority {
			return true
		}
	}
	threshold := cfg.ConfidenceThresholds["routine"]
	for _, m := range k.Memories {
		if m.Confidence >= threshold {
			return true
		}
	}
	return false
}

func composeBlockText(k Knowledge, cfg Config) string {
	var b strings.Builder
	for _, s := range k.SOPs {
		content := s.Content
		if cfg.MaxKnowledgeLength > 0 && len(content) > cfg.MaxKnowledgeLength {
			content = content[:cfg.MaxKnowledgeLength] + "..."
		}
		fmt.Fprintf(&b, "[SOP:%s] %s\n", s.Label, content)
	}
	for _, m := range k.Memories {
		fmt.Fprintf(&b, "[memory %.0f%%] %s\n", m.Confidence*100, truncate(m.Content, cfg.MaxKnowledgeLength))
	}
	b.WriteString("Review the above before retrying; acknowledge and proceed once addressed.")
	return b.String()
}

func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
