package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var openStates = map[IncidentState]bool{
	IncidentDetected:    true,
	IncidentDiagnosing:  true,
	IncidentRemediating: true,
	IncidentVerifying:   true,
}

// GetOpenIncident returns the non-terminal incident for (anomalyType, targetID)
// if one exists. Invariant: at most one such incident.
func (s *Store) GetOpenIncident(anomalyType, targetID string) (*Incident, error) {
	rows, err := s.db.Query(`SELECT id, anomaly_type, target_id, severity, state, runbook_id, detected_at,
		state_changed_at, resolved_at, escalation_tier, dismiss_until, audit_trail, details
		FROM incidents WHERE anomaly_type = ? AND target_id = ?
		AND state NOT IN ('resolved','escalated','self_resolved','remediation_failed','dismissed')`,
		anomalyType, targetID)
	if err != nil {
		return nil, fmt.Errorf("store: get open incident: %w", err)
	}
	defer rows.Close()
	incs, err := scanIncidents(rows)
	if err != nil {
		return nil, err
	}
	if len(incs) == 0 {
		return nil, ErrNotFound
	}
	return incs[0], nil
}

// UpsertIncident creates a new incident, or if a non-terminal incident for the
// same (anomaly_type, target_id) exists, refreshes its timestamp and appends
// an audit entry without duplicating it.
func (s *Store) UpsertIncident(inc *Incident, note string) (*Incident, error) {
	existing, err := s.GetOpenIncident(inc.AnomalyType, inc.TargetID)
	if err == nil {
		existing.StateChangedAt = time.Now()
		existing.AuditTrail = append(existing.AuditTrail, AuditEntry{
			At: existing.StateChangedAt, FromState: existing.State, ToState: existing.State, Note: note,
		})
		if err := s.saveIncident(existing); err != nil {
			return nil, err
		}
		return existing, nil
	}
	if err != ErrNotFound {
		return nil, err
	}

	if inc.ID == "" {
		inc.ID = uuid.New().String()
	}
	now := time.Now()
	if inc.DetectedAt.IsZero() {
		inc.DetectedAt = now
	}
	inc.StateChangedAt = now
	if inc.State == "" {
		inc.State = IncidentDetected
	}
	inc.AuditTrail = append(inc.AuditTrail, AuditEntry{At: now, FromState: "", ToState: inc.State, Note: note})

	if err := s.saveIncident(inc); err != nil {
		return nil, err
	}
	return inc, nil
}

// TransitionIncident moves an incident to a new state and appends an audit entry.
func (s *Store) TransitionIncident(id string, to IncidentState, note string) error {
	inc, err := s.GetIncident(id)
	if err != nil {
		return err
	}
	now := time.Now()
	inc.AuditTrail = append(inc.AuditTrail, AuditEntry{At: now, FromState: inc.State, ToState: to, Note: note})
	inc.State = to
	inc.StateChangedAt = now
	if to == IncidentResolved || to == IncidentSelfResolved {
		inc.ResolvedAt = &now
	}
	return s.saveIncident(inc)
}

// DismissIncident suppresses re-detection until the given time.
func (s *Store) DismissIncident(id string, until time.Time, note string) error {
	inc, err := s.GetIncident(id)
	if err != nil {
		return err
	}
	now := time.Now()
	inc.AuditTrail = append(inc.AuditTrail, AuditEntry{At: now, FromState: inc.State, ToState: IncidentDismissed, Note: note})
	inc.State = IncidentDismissed
	inc.StateChangedAt = now
	inc.DismissUntil = &until
	return s.saveIncident(inc)
}

// GetIncident fetches a single incident by id.
func (s *Store) GetIncident(id string) (*Incident, error) {
	rows, err := s.db.Query(`SELECT id, anomaly_type, target_id, severity, state, runbook_id, detected_at,
		state_changed_at, resolved_at, escalation_tier, dismiss_until, audit_trail, details
		FROM incidents WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("store: get incident: %w", err)
	}
	defer rows.Close()
	incs, err := scanIncidents(rows)
	if err != nil {
		return nil, err
	}
	if len(incs) == 0 {
		return nil, ErrNotFound
	}
	return incs[0], nil
}

// ListIncidents returns all incidents, optionally filtered to open ones.
func (s *Store) ListIncidents(openOnly bool) ([]*Incident, error) {
	query := `SELECT id, anomaly_type, target_id, severity, state, runbook_id, detected_at,
		state_changed_at, resolved_at, escalation_tier, dismiss_until, audit_trail, details FROM incidents`
	if openOnly {
		query += ` WHERE state NOT IN ('resolved','escalated','self_resolved','remediation_failed','dismissed')`
	}
	query += " ORDER BY detected_at DESC"
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("store: list incidents: %w", err)
	}
	defer rows.Close()
	return scanIncidents(rows)
}

func (s *Store) saveIncident(inc *Incident) error {
	audit, _ := json.Marshal(inc.AuditTrail)
	details, _ := json.Marshal(inc.Details)
	_, err := s.db.Exec(`INSERT INTO incidents (id, anomaly_type, target_id, severity, state, runbook_id,
			detected_at, state_changed_at, resolved_at, escalation_tier, dismiss_until, audit_trail, details)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			state = excluded.state, runbook_id = excluded.runbook_id,
			state_changed_at = excluded.state_changed_at, resolved_at = excluded.resolved_at,
			escalation_tier = excluded.escalation_tier, dismiss_until = excluded.dismiss_until,
			audit_trail = excluded.audit_trail, details = excluded.details`,
		inc.ID, inc.AnomalyType, inc.TargetID, string(inc.Severity), string(inc.State), inc.RunbookID,
		inc.DetectedAt, inc.StateChangedAt, inc.ResolvedAt, inc.EscalationTier, inc.DismissUntil,
		string(audit), string(details))
	if err != nil {
		return fmt.Errorf("store: save incident: %w", err)
	}
	return nil
}

func scanIncidents(rows *sql.Rows) ([]*Incident, error) {
	var out []*Incident
	for rows.Next() {
		inc := &Incident{Details: map[string]string{}}
		var severity, state string
		var runbookID sql.NullString
		var resolvedAt, dismissUntil sql.NullTime
		var audit, details string
		if err := rows.Scan(&inc.ID, &inc.AnomalyType, &inc.TargetID, &severity, &state, &runbookID,
			&inc.DetectedAt, &inc.StateChangedAt, &resolvedAt, &inc.EscalationTier, &dismissUntil,
			&audit, &details); err != nil {
			return nil, fmt.Errorf("store: scan incident: %w", err)
		}
		inc.Severity = Severity(severity)
		inc.State = IncidentState(state)
		inc.RunbookID = runbookID.String
		if resolvedAt.Valid {
			t := resolvedAt.Time
			inc.ResolvedAt = &t
		}
		if dismissUntil.Valid {
			t := dismissUntil.Time
			inc.DismissUntil = &t
		}
		json.Unmarshal([]byte(audit), &inc.AuditTrail)
		json.Unmarshal([]byte(details), &inc.Details)
		out = append(out, inc)
	}
	return out, rows.Err()
}
