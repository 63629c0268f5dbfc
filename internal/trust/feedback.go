package trust

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
	"time"

	"github.com/cortexmind/cortex/internal/store"
)

// correctionPhrases flag a user's next message as a correction of the prior
// gated action, within the feedback window (see Collector.Correct).
var correctionPhrases = []string{
	"that's wrong", "not what i asked", "undo that", "revert", "that broke",
	"fix that", "you made a mistake", "incorrect", "no, i meant",
}

var significantPhrases = []string{"revert", "undo that", "that broke", "you made a mistake"}

var bearerPattern = regexp.MustCompile(`(?i)bearer\s+\S+`)
var kvSecretPattern = regexp.MustCompile(`(?i)\b(api[_-]?key|token|secret|password|passwd)\s*[=:]\s*\S+`)
var jwtPattern = regexp.MustCompile(`\b[A-Za-z0-9_-]{8,}\.[A-Za-z0-9_-]{8,}\.[A-Za-z0-9_-]{8,}\b`)
var hexPattern = regexp.MustCompile(`\b[0-9a-fA-F]{32,}\b`)

// Redact strips credential-shaped substrings from a tool_params_summary
// before it is written to decision_log, mirroring the forbidden-at-the-
// type-boundary discipline self-heal runbooks use for target IDs.
func Redact(summary string) string {
	summary = bearerPattern.ReplaceAllString(summary, "Bearer [redacted]")
	summary = kvSecretPattern.ReplaceAllString(summary, "$1=[redacted]")
	summary = jwtPattern.ReplaceAllString(summary, "[redacted]")
	summary = hexPattern.ReplaceAllString(summary, "[redacted]")
	return summary
}

// HashParams returns a stable hash of a tool_params_summary for dedup/audit
// without retaining the (possibly still sensitive) raw text.
func HashParams(summary string) string {
	sum := sha256.Sum256([]byte(summary))
	return hex.EncodeToString(sum[:])
}

// Collector manages the pending-decision feedback loop: it logs decisions,
// sweeps expired pending ones, and classifies corrections from subsequent
// messages within a feedback window.
type Collector struct {
	store  *store.Store
	window time.Duration
}

// NewCollector builds a Collector with the given feedback window.
func NewCollector(s *store.Store, window time.Duration) *Collector {
	return &Collector{store: s, window: window}
}

// Log appends a pending decision, due for the sweep after the feedback window.
func (c *Collector) Log(entry *store.DecisionLogEntry, now time.Time) error {
	entry.ToolParamsSummary = Redact(entry.ToolParamsSummary)
	entry.ToolParamsHash = HashParams(entry.ToolParamsSummary)
	due := now.Add(c.window)
	return c.store.AppendDecision(entry, &due)
}

// Correct inspects a follow-up user message for a correction phrase and, if
// found within the feedback window, resolves the category's latest pending
// decision to the matching outcome severity.
func (c *Collector) Correct(category, message string, now time.Time) (store.Outcome, bool, error) {
	lower := strings.ToLower(message)
	matched := false
	significant := false
	for _, p := range significantPhrases {
		if strings.Contains(lower, p) {
			matched, significant = true, true
			break
		}
	}
	if !matched {
		for _, p := range correctionPhrases {
			if strings.Contains(lower, p) {
				matched = true
				break
			}
		}
	}
	if !matched {
		return "", false, nil
	}

	pending, err := c.store.LatestPendingByCategory(category)
	if err != nil {
		if err == store.ErrNotFound {
			return "", false, nil
		}
		return "", false, err
	}
	if now.Sub(pending.Timestamp) > c.window {
		return "", false, nil
	}

	outcome := store.OutcomeCorrectedMinor
	if significant {
		outcome = store.OutcomeCorrectedSignificant
	}
	if err := c.store.ResolveOutcome(pending.DecisionID, outcome); err != nil {
		return "", false, err
	}
	return outcome, true, nil
}

// Sweep resolves every expired pending decision to a pass outcome, since no
// correction arrived within the feedback window.
func (c *Collector) Sweep(now time.Time) (int, error) {
	expired, err := c.store.ExpiredPending(now)
	if err != nil {
		return 0, err
	}
	resolved := 0
	for _, d := range expired {
		if err := c.store.ResolveOutcome(d.DecisionID, store.OutcomePass); err != nil {
			continue
		}
		resolved++
	}
	return resolved, nil
}
