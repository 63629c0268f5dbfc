package transport

import "time"

// Subject patterns for Cortex's internal event bus. Only the incident and
// escalation-raise subjects have a publisher in this module (internal/selfheal);
// the others are defined with no publisher.
const (
	// SubjectGateDecision carries every Pre-Action Gate verdict, tagged by category.
	SubjectGateDecision = "cortex.gate.decision.%s"

	// SubjectGateDecisionAll subscribes to every gate verdict regardless of category.
	SubjectGateDecisionAll = "cortex.gate.decision.*"

	// SubjectIncidentDetected fires when the anomaly classifier opens a new incident.
	SubjectIncidentDetected = "cortex.heal.incident.detected"

	// SubjectIncidentTransition fires on every incident state change.
	SubjectIncidentTransition = "cortex.heal.incident.transition"

	// SubjectIncidentAll subscribes to all self-healing incident traffic.
	SubjectIncidentAll = "cortex.heal.incident.*"

	// SubjectEscalationRaise is used when the escalation router needs a human.
	SubjectEscalationRaise = "cortex.heal.escalation.raise"

	// SubjectEscalationResponse is the pattern for operator responses to an escalation.
	SubjectEscalationResponse = "cortex.heal.escalation.response.%s"

	// SubjectTrustUpdate fires whenever a category's EWMA trust score changes.
	SubjectTrustUpdate = "cortex.trust.update.%s"

	// SubjectSessionClosed fires when the Active Session Ring flushes a session to disk.
	SubjectSessionClosed = "cortex.session.closed"

	// SubjectSystemBroadcast carries process-wide announcements (shutdown, config reload).
	SubjectSystemBroadcast = "cortex.system.broadcast"
)

// GateDecisionEvent is the payload shape for SubjectGateDecision; no
// component in this module publishes it.
type GateDecisionEvent struct {
	DecisionID string    `json:"decision_id"`
	ToolName   string    `json:"tool_name"`
	Category   string    `json:"category"`
	Tier       int       `json:"tier"`
	Decision   string    `json:"decision"`
	Reason     string    `json:"reason"`
	Timestamp  time.Time `json:"timestamp"`
}

// IncidentEvent is published when an incident is detected or transitions state.
type IncidentEvent struct {
	IncidentID string    `json:"incident_id"`
	AnomalyType string   `json:"anomaly_type"`
	TargetID   string    `json:"target_id"`
	FromState  string    `json:"from_state,omitempty"`
	ToState    string    `json:"to_state"`
	Severity   string    `json:"severity"`
	Timestamp  time.Time `json:"timestamp"`
}

// EscalationRaiseEvent is published when a runbook exhausts its retries and
// needs a human (escalation tiers 2-3).
type EscalationRaiseEvent struct {
	ID         string    `json:"id"`
	IncidentID string    `json:"incident_id"`
	Tier       int       `json:"tier"`
	Reason     string    `json:"reason"`
	Timestamp  time.Time `json:"timestamp"`
}

// EscalationResponseEvent carries an operator's reply to a raised escalation.
type EscalationResponseEvent struct {
	ID        string    `json:"id"`
	Response  string    `json:"response"`
	From      string    `json:"from"`
	Timestamp time.Time `json:"timestamp"`
}

// TrustUpdateEvent is the payload shape for SubjectTrustUpdate; no component
// in this module publishes it.
type TrustUpdateEvent struct {
	Category      string    `json:"category"`
	PreviousScore float64   `json:"previous_score"`
	NewScore      float64   `json:"new_score"`
	DecisionCount int       `json:"decision_count"`
	Timestamp     time.Time `json:"timestamp"`
}

// SessionClosedEvent is the payload shape for SubjectSessionClosed; no
// component in this module publishes it.
type SessionClosedEvent struct {
	SessionID string    `json:"session_id"`
	Channel   string    `json:"channel"`
	Messages  int       `json:"messages"`
	Timestamp time.Time `json:"timestamp"`
}

// SystemBroadcastEvent carries process-wide announcements.
type SystemBroadcastEvent struct {
	Type      string                 `json:"type"`
	Message   string                 `json:"message"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}
