package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AppendDecision records one Pre-Action/Trust gate decision.
func (s *Store) AppendDecision(d *DecisionLogEntry, dueAt *time.Time) error {
	if d.DecisionID == "" {
		d.DecisionID = uuid.New().String()
	}
	if d.Timestamp.IsZero() {
		d.Timestamp = time.Now()
	}
	if d.Outcome == "" {
		d.Outcome = OutcomePending
	}
	_, err := s.db.Exec(`INSERT INTO decision_log (decision_id, timestamp, tool_name, category, tier,
		gate_decision, outcome, tool_params_summary, tool_params_hash, due_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.DecisionID, d.Timestamp, d.ToolName, d.Category, d.Tier, string(d.GateDecision),
		string(d.Outcome), d.ToolParamsSummary, d.ToolParamsHash, dueAt)
	if err != nil {
		return fmt.Errorf("store: append decision: %w", err)
	}
	return nil
}

// ResolveOutcome updates a decision's outcome (sweep, correction, or gate result).
func (s *Store) ResolveOutcome(decisionID string, outcome Outcome) error {
	res, err := s.db.Exec(`UPDATE decision_log SET outcome = ? WHERE decision_id = ?`, string(outcome), decisionID)
	if err != nil {
		return fmt.Errorf("store: resolve outcome: %w", err)
	}
	return mustAffect(res, ErrNotFound)
}

// LatestPendingByCategory returns the most recent pending decision for a
// category, used by correction-detection within the feedback window.
func (s *Store) LatestPendingByCategory(category string) (*DecisionLogEntry, error) {
	row := s.db.QueryRow(`SELECT decision_id, timestamp, tool_name, category, tier, gate_decision,
		outcome, tool_params_summary, tool_params_hash FROM decision_log
		WHERE category = ? AND outcome = 'pending' ORDER BY timestamp DESC LIMIT 1`, category)
	return scanDecision(row)
}

// ExpiredPending returns pending decisions whose due_at has passed, for the sweep.
func (s *Store) ExpiredPending(now time.Time) ([]*DecisionLogEntry, error) {
	rows, err := s.db.Query(`SELECT decision_id, timestamp, tool_name, category, tier, gate_decision,
		outcome, tool_params_summary, tool_params_hash FROM decision_log
		WHERE outcome = 'pending' AND due_at IS NOT NULL AND due_at <= ?`, now)
	if err != nil {
		return nil, fmt.Errorf("store: expired pending: %w", err)
	}
	defer rows.Close()
	var out []*DecisionLogEntry
	for rows.Next() {
		d, err := scanDecisionRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func scanDecision(row *sql.Row) (*DecisionLogEntry, error) {
	d := &DecisionLogEntry{}
	var decision, outcome string
	if err := row.Scan(&d.DecisionID, &d.Timestamp, &d.ToolName, &d.Category, &d.Tier, &decision,
		&outcome, &d.ToolParamsSummary, &d.ToolParamsHash); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: scan decision: %w", err)
	}
	d.GateDecision = GateDecision(decision)
	d.Outcome = Outcome(outcome)
	return d, nil
}

func scanDecisionRows(rows *sql.Rows) (*DecisionLogEntry, error) {
	d := &DecisionLogEntry{}
	var decision, outcome string
	if err := rows.Scan(&d.DecisionID, &d.Timestamp, &d.ToolName, &d.Category, &d.Tier, &decision,
		&outcome, &d.ToolParamsSummary, &d.ToolParamsHash); err != nil {
		return nil, fmt.Errorf("store: scan decision: %w", err)
	}
	d.GateDecision = GateDecision(decision)
	d.Outcome = Outcome(outcome)
	return d, nil
}

// ================================================
// Trust scores and overrides
// ================================================

// GetTrustScore fetches a category's current score, defaulting to the
// mid-floor 0.5 with decision_count 0 if never written.
func (s *Store) GetTrustScore(category string, tier int) (*TrustScore, error) {
	t := &TrustScore{}
	err := s.db.QueryRow(`SELECT category, tier, current_score, decision_count, last_updated
		FROM trust_scores WHERE category = ?`, category).Scan(
		&t.Category, &t.Tier, &t.CurrentScore, &t.DecisionCount, &t.LastUpdated)
	if err == sql.ErrNoRows {
		return &TrustScore{Category: category, Tier: tier, CurrentScore: 0.5}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get trust score: %w", err)
	}
	return t, nil
}

// SaveTrustScore persists an updated EWMA score.
func (s *Store) SaveTrustScore(t *TrustScore) error {
	t.LastUpdated = time.Now()
	_, err := s.db.Exec(`INSERT INTO trust_scores (category, tier, current_score, decision_count, last_updated)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(category) DO UPDATE SET
			current_score = excluded.current_score, decision_count = excluded.decision_count,
			last_updated = excluded.last_updated`,
		t.Category, t.Tier, t.CurrentScore, t.DecisionCount, t.LastUpdated)
	if err != nil {
		return fmt.Errorf("store: save trust score: %w", err)
	}
	return nil
}

// TrustOverride is a caller-set category override.
type TrustOverride struct {
	Category  string
	Granted   bool
	Reason    string
	ExpiresAt *time.Time
}

// SetOverride writes a trust override for a category.
func (s *Store) SetOverride(o *TrustOverride) error {
	_, err := s.db.Exec(`INSERT INTO trust_overrides (category, granted, reason, expires_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(category) DO UPDATE SET granted = excluded.granted, reason = excluded.reason,
			expires_at = excluded.expires_at`,
		o.Category, boolToInt(o.Granted), o.Reason, o.ExpiresAt)
	if err != nil {
		return fmt.Errorf("store: set override: %w", err)
	}
	return nil
}

// GetOverride fetches an active override for a category, if any and unexpired.
func (s *Store) GetOverride(category string, now time.Time) (*TrustOverride, error) {
	o := &TrustOverride{}
	var granted int
	var expiresAt sql.NullTime
	var reason sql.NullString
	err := s.db.QueryRow(`SELECT category, granted, reason, expires_at FROM trust_overrides WHERE category = ?`,
		category).Scan(&o.Category, &granted, &reason, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get override: %w", err)
	}
	o.Granted = granted != 0
	o.Reason = reason.String
	if expiresAt.Valid {
		t := expiresAt.Time
		o.ExpiresAt = &t
		if now.After(t) {
			return nil, ErrNotFound
		}
	}
	return o, nil
}
