package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CreateAtom inserts a four-facet causal knowledge unit. Invariant: all four
// facets must be non-empty.
func (s *Store) CreateAtom(a *Atom) error {
	if a.Subject == "" || a.Action == "" || a.Outcome == "" || a.Consequences == "" {
		return fmt.Errorf("store: atom facets must all be non-empty")
	}
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.Confidence == 0 {
		a.Confidence = 1.0
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	_, err := s.db.Exec(`
		INSERT INTO atoms (id, subject, action, outcome, consequences, confidence, source,
			created_at, validation_count, subject_embedding, action_embedding, outcome_embedding, consequences_embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Subject, a.Action, a.Outcome, a.Consequences, a.Confidence, a.Source, a.CreatedAt,
		a.ValidationCount, blobOrNil(a.SubjectEmbedding), blobOrNil(a.ActionEmbedding),
		blobOrNil(a.OutcomeEmbedding), blobOrNil(a.ConsequencesEmbedding),
	)
	if err != nil {
		return fmt.Errorf("store: create atom: %w", err)
	}
	return nil
}

// AtomField enumerates the facet searched by SearchAtomsByField.
type AtomField string

const (
	FieldSubject      AtomField = "subject"
	FieldAction       AtomField = "action"
	FieldOutcome      AtomField = "outcome"
	FieldConsequences AtomField = "consequences"
)

// SearchAtomsByField runs an FTS5 match against one facet column.
func (s *Store) SearchAtomsByField(field AtomField, query string, limit int) ([]*Atom, error) {
	col := string(field)
	switch field {
	case FieldSubject, FieldAction, FieldOutcome, FieldConsequences:
	default:
		return nil, fmt.Errorf("store: unknown atom field %q", field)
	}
	sqlQuery := fmt.Sprintf(`
		SELECT a.id, a.subject, a.action, a.outcome, a.consequences, a.confidence, a.source,
			a.created_at, a.validation_count
		FROM atoms a JOIN atom_fts f ON f.rowid = a.rowid
		WHERE f.%s MATCH ?
		ORDER BY a.confidence DESC`, col)
	args := []interface{}{ftsQuery(query)}
	if limit > 0 {
		sqlQuery += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.Query(sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("store: search atoms: %w", err)
	}
	defer rows.Close()

	var out []*Atom
	for rows.Next() {
		a := &Atom{}
		var source sql.NullString
		if err := rows.Scan(&a.ID, &a.Subject, &a.Action, &a.Outcome, &a.Consequences,
			&a.Confidence, &source, &a.CreatedAt, &a.ValidationCount); err != nil {
			return nil, fmt.Errorf("store: scan atom: %w", err)
		}
		a.Source = source.String
		out = append(out, a)
	}
	return out, rows.Err()
}

// GetAtom fetches a single atom by id.
func (s *Store) GetAtom(id string) (*Atom, error) {
	a := &Atom{}
	var source sql.NullString
	err := s.db.QueryRow(`SELECT id, subject, action, outcome, consequences, confidence, source,
		created_at, validation_count FROM atoms WHERE id = ?`, id).Scan(
		&a.ID, &a.Subject, &a.Action, &a.Outcome, &a.Consequences, &a.Confidence, &source,
		&a.CreatedAt, &a.ValidationCount)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get atom: %w", err)
	}
	a.Source = source.String
	return a, nil
}

// ValidateAtom increments the validation counter used by the confidence
// pipeline's "validation bonus".
func (s *Store) ValidateAtom(id string) error {
	res, err := s.db.Exec(`UPDATE atoms SET validation_count = validation_count + 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: validate atom: %w", err)
	}
	return mustAffect(res, ErrNotFound)
}

// CreateLink adds a directed causal edge. Invariant: from != to.
func (s *Store) CreateLink(l *CausalLink) error {
	if l.FromAtomID == l.ToAtomID {
		return fmt.Errorf("store: causal link cannot self-reference")
	}
	if l.Strength < 0 || l.Strength > 1 {
		return fmt.Errorf("store: link strength out of range [0,1]")
	}
	_, err := s.db.Exec(`INSERT OR REPLACE INTO causal_links (from_atom_id, to_atom_id, link_type, strength)
		VALUES (?, ?, ?, ?)`, l.FromAtomID, l.ToAtomID, string(l.LinkType), l.Strength)
	if err != nil {
		return fmt.Errorf("store: create link: %w", err)
	}
	return nil
}

// LinksFrom returns outgoing causal links for an atom, bounded by maxDepth
// traversal budgets applied by the caller (atoms form an arena with edges by
// opaque id, with no back-references).
func (s *Store) LinksFrom(atomID string) ([]*CausalLink, error) {
	rows, err := s.db.Query(`SELECT from_atom_id, to_atom_id, link_type, strength FROM causal_links WHERE from_atom_id = ?`, atomID)
	if err != nil {
		return nil, fmt.Errorf("store: links from: %w", err)
	}
	defer rows.Close()
	var out []*CausalLink
	for rows.Next() {
		l := &CausalLink{}
		var lt string
		if err := rows.Scan(&l.FromAtomID, &l.ToAtomID, &lt, &l.Strength); err != nil {
			return nil, fmt.Errorf("store: scan link: %w", err)
		}
		l.LinkType = LinkType(lt)
		out = append(out, l)
	}
	return out, rows.Err()
}

// LinksTo returns incoming causal links for an atom (used by "find causes").
func (s *Store) LinksTo(atomID string) ([]*CausalLink, error) {
	rows, err := s.db.Query(`SELECT from_atom_id, to_atom_id, link_type, strength FROM causal_links WHERE to_atom_id = ?`, atomID)
	if err != nil {
		return nil, fmt.Errorf("store: links to: %w", err)
	}
	defer rows.Close()
	var out []*CausalLink
	for rows.Next() {
		l := &CausalLink{}
		var lt string
		if err := rows.Scan(&l.FromAtomID, &l.ToAtomID, &lt, &l.Strength); err != nil {
			return nil, fmt.Errorf("store: scan link: %w", err)
		}
		l.LinkType = LinkType(lt)
		out = append(out, l)
	}
	return out, rows.Err()
}

func blobOrNil(f []float32) interface{} {
	if len(f) == 0 {
		return nil
	}
	return encodeEmbedding(f)
}
