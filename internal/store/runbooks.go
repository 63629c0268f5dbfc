package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
)

// UpsertRunbook persists runtime state (mode, confidence, dry_run_count)
// layered over a built-in runbook definition.
func (s *Store) UpsertRunbook(r *RunbookRecord) error {
	applies, _ := json.Marshal(r.AppliesTo)
	_, err := s.db.Exec(`INSERT INTO runbooks (id, label, applies_to, mode, confidence, dry_run_count,
			auto_approve_whitelist)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			mode = excluded.mode, confidence = excluded.confidence, dry_run_count = excluded.dry_run_count,
			auto_approve_whitelist = excluded.auto_approve_whitelist`,
		r.ID, r.Label, string(applies), string(r.Mode), r.Confidence, r.DryRunCount, boolToInt(r.AutoApproveWhitelist))
	if err != nil {
		return fmt.Errorf("store: upsert runbook: %w", err)
	}
	return nil
}

// GetRunbook fetches persisted runbook runtime state.
func (s *Store) GetRunbook(id string) (*RunbookRecord, error) {
	r := &RunbookRecord{}
	var applies, mode string
	var whitelist int
	err := s.db.QueryRow(`SELECT id, label, applies_to, mode, confidence, dry_run_count,
		auto_approve_whitelist FROM runbooks WHERE id = ?`, id).Scan(
		&r.ID, &r.Label, &applies, &mode, &r.Confidence, &r.DryRunCount, &whitelist)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get runbook: %w", err)
	}
	json.Unmarshal([]byte(applies), &r.AppliesTo)
	r.Mode = RunbookMode(mode)
	r.AutoApproveWhitelist = whitelist != 0
	return r, nil
}

// ListRunbooks returns all persisted runbook records.
func (s *Store) ListRunbooks() ([]*RunbookRecord, error) {
	rows, err := s.db.Query(`SELECT id, label, applies_to, mode, confidence, dry_run_count,
		auto_approve_whitelist FROM runbooks`)
	if err != nil {
		return nil, fmt.Errorf("store: list runbooks: %w", err)
	}
	defer rows.Close()
	var out []*RunbookRecord
	for rows.Next() {
		r := &RunbookRecord{}
		var applies, mode string
		var whitelist int
		if err := rows.Scan(&r.ID, &r.Label, &applies, &mode, &r.Confidence, &r.DryRunCount, &whitelist); err != nil {
			return nil, fmt.Errorf("store: scan runbook: %w", err)
		}
		json.Unmarshal([]byte(applies), &r.AppliesTo)
		r.Mode = RunbookMode(mode)
		r.AutoApproveWhitelist = whitelist != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
