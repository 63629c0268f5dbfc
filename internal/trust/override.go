package trust

import (
	"fmt"
	"regexp"
	"time"

	"github.com/cortexmind/cortex/internal/store"
)

// nonInteractivePattern matches caller session IDs that identify automated
// contexts. Overrides may only be granted from an interactive session, so
// these are rejected outright regardless of who requests the override.
var nonInteractivePattern = regexp.MustCompile(`(?i)^(pipeline|subagent|isolated|cron|background)[-_]`)

// ErrNonInteractiveCaller is returned when an override is requested from a
// session ID matching a known automated-context pattern.
var ErrNonInteractiveCaller = fmt.Errorf("trust: override requires an interactive caller session")

// Overrides wraps the persisted override table with the interactive-session
// validation gate.
type Overrides struct {
	store *store.Store
}

// NewOverrides builds an Overrides manager.
func NewOverrides(s *store.Store) *Overrides {
	return &Overrides{store: s}
}

// Grant records a category override, rejecting requests from non-interactive
// caller sessions (pipelines, subagents, isolated/cron/background runs)
// since overrides exist for a human operator to unblock their own session.
func (o *Overrides) Grant(callerSessionID, category, reason string, expiresAt *time.Time) error {
	if nonInteractivePattern.MatchString(callerSessionID) {
		return ErrNonInteractiveCaller
	}
	return o.store.SetOverride(&store.TrustOverride{Category: category, Granted: true, Reason: reason, ExpiresAt: expiresAt})
}

// Revoke clears a category override.
func (o *Overrides) Revoke(callerSessionID, category, reason string) error {
	if nonInteractivePattern.MatchString(callerSessionID) {
		return ErrNonInteractiveCaller
	}
	return o.store.SetOverride(&store.TrustOverride{Category: category, Granted: false, Reason: reason})
}

// Active returns the active override for a category, if any.
func (o *Overrides) Active(category string, now time.Time) (*store.TrustOverride, bool) {
	ov, err := o.store.GetOverride(category, now)
	if err != nil {
		return nil, false
	}
	return ov, true
}
