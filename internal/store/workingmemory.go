package store

import (
	"database/sql"
	"fmt"
	"time"
)

const maxPins = 10

// SaveWorkingMemory overwrites the pin set. Invariant: size <= 10,
// duplicate labels forbidden.
func (s *Store) SaveWorkingMemory(pins []WorkingMemoryPin) error {
	if len(pins) > maxPins {
		return fmt.Errorf("store: working memory exceeds cap of %d pins", maxPins)
	}
	seen := map[string]bool{}
	for _, p := range pins {
		if p.Label != "" {
			if seen[p.Label] {
				return fmt.Errorf("store: duplicate working-memory label %q", p.Label)
			}
			seen[p.Label] = true
		}
		if len(p.Content) > 500 {
			return fmt.Errorf("store: working-memory pin content exceeds 500 characters")
		}
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("store: begin working memory save: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM working_memory`); err != nil {
		return fmt.Errorf("store: clear working memory: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT INTO working_memory (content, label, pinned_at) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("store: prepare working memory insert: %w", err)
	}
	defer stmt.Close()
	for _, p := range pins {
		at := p.PinnedAt
		if at.IsZero() {
			at = time.Now()
		}
		if _, err := stmt.Exec(p.Content, p.Label, at); err != nil {
			return fmt.Errorf("store: insert pin: %w", err)
		}
	}
	return tx.Commit()
}

// GetWorkingMemory returns the current pin set, oldest first.
func (s *Store) GetWorkingMemory() ([]WorkingMemoryPin, error) {
	rows, err := s.db.Query(`SELECT content, label, pinned_at FROM working_memory ORDER BY pinned_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("store: get working memory: %w", err)
	}
	defer rows.Close()
	var out []WorkingMemoryPin
	for rows.Next() {
		var p WorkingMemoryPin
		var label sql.NullString
		if err := rows.Scan(&p.Content, &label, &p.PinnedAt); err != nil {
			return nil, fmt.Errorf("store: scan pin: %w", err)
		}
		p.Label = label.String
		out = append(out, p)
	}
	return out, rows.Err()
}
