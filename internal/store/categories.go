package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
)

// AddCategory inserts a category definition. Callers (Category Manager) are
// responsible for name/keyword disjointness checks before calling this;
// the store enforces only primary-key uniqueness.
func (s *Store) AddCategory(c *Category) error {
	kw, _ := json.Marshal(c.Keywords)
	_, err := s.db.Exec(`INSERT INTO categories (name, description, keywords) VALUES (?, ?, ?)`,
		c.Name, c.Description, string(kw))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUniqueViolation, err)
	}
	return nil
}

// ListCategories returns all category definitions.
func (s *Store) ListCategories() ([]*Category, error) {
	rows, err := s.db.Query(`SELECT name, description, keywords FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("store: list categories: %w", err)
	}
	defer rows.Close()
	var out []*Category
	for rows.Next() {
		c := &Category{}
		var kw string
		if err := rows.Scan(&c.Name, &c.Description, &kw); err != nil {
			return nil, fmt.Errorf("store: scan category: %w", err)
		}
		json.Unmarshal([]byte(kw), &c.Keywords)
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetCategory fetches one category by name.
func (s *Store) GetCategory(name string) (*Category, error) {
	c := &Category{}
	var kw string
	err := s.db.QueryRow(`SELECT name, description, keywords FROM categories WHERE name = ?`, name).
		Scan(&c.Name, &c.Description, &kw)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get category: %w", err)
	}
	json.Unmarshal([]byte(kw), &c.Keywords)
	return c, nil
}

// RecordMetric appends a telemetry metric record.
func (s *Store) RecordMetric(typ, name string, value float64, context string, ts interface{}) error {
	_, err := s.db.Exec(`INSERT INTO metrics (type, name, value, context, timestamp) VALUES (?, ?, ?, ?, ?)`,
		typ, name, value, context, ts)
	if err != nil {
		return fmt.Errorf("store: record metric: %w", err)
	}
	return nil
}
