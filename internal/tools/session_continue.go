package tools

import (
	"time"
)

// CortexSessionContinue implements cortex_session_continue: forces
// inheritance from a specific prior session, bypassing the relevance-ranked
// candidate pool the automatic before_agent_start restore uses.
func (r *Registry) CortexSessionContinue(sessionID string) Result {
	if sessionID == "" {
		return errResult("validation_error", "session_id is required")
	}
	if r.engine.Session == nil {
		return errResult("internal_error", "session manager not available")
	}
	rc, err := r.engine.Session.RestoreFrom(sessionID, time.Now())
	if err != nil {
		return errResult("not_found", "session continue failed: "+err.Error())
	}
	return textWith(rc.Preamble(), map[string]interface{}{
		"previous_session_id": rc.PreviousSessionID,
		"pending_tasks":       rc.PendingTasks,
		"active_projects":     rc.ActiveProjects,
		"hot_topics":          rc.HotTopics,
		"inherited_pins":      len(rc.InheritedPins),
		"confidence":          rc.Confidence,
	})
}
