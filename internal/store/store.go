package store

import (
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schema string

// Store is the single-writer SQLite-backed persistent store. Every
// entity's system of record lives here; every other component holds a
// read-mostly copy synchronized from this store.
type Store struct {
	db *sql.DB
}

// Open creates (or attaches to) the SQLite database at path, enabling WAL
// mode and a busy timeout the same way the reference operational/learning
// databases do, then applies the schema idempotently.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite serializes writers better with one connection

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: set pragma %q: %w", p, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle for maintenance operations that don't
// warrant a dedicated store method (e.g. the self-healing integrity probe's
// PRAGMA integrity_check).
func (s *Store) DB() *sql.DB {
	return s.db
}

// ================================================
// Memory (STM)
// ================================================

// AddMemory inserts a new memory with initial confidence 1.0 unless the
// caller pre-set one. Invariant: confidence must land in [0.1, 1.0].
func (s *Store) AddMemory(m *Memory) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.Confidence == 0 {
		m.Confidence = 1.0
	}
	if m.Importance == 0 {
		m.Importance = 1.0
	}
	if m.Confidence < 0.1 || m.Confidence > 1.0 {
		return ErrConfidenceOutOfRange
	}
	if len(m.Categories) == 0 {
		m.Categories = []string{"general"}
	}
	now := time.Now()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.LastAccessed = m.CreatedAt

	cats, _ := json.Marshal(m.Categories)

	_, err := s.db.Exec(`
		INSERT INTO memories (id, content, categories, importance, confidence, access_count,
			created_at, last_accessed, expires_at, source, source_message_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.Content, string(cats), m.Importance, m.Confidence, m.AccessCount,
		m.CreatedAt, m.LastAccessed, m.ExpiresAt, string(m.Source), m.SourceMessageID,
	)
	if err != nil {
		return fmt.Errorf("store: add memory: %w", err)
	}
	return s.auditConfidence(m.ID, 0, m.Confidence, "created")
}

// EditMemory replaces a memory's content wholesale (re-embed is the
// caller's responsibility at the semantic-index layer).
func (s *Store) EditMemory(id, newContent string) error {
	res, err := s.db.Exec(`UPDATE memories SET content = ? WHERE id = ?`, newContent, id)
	if err != nil {
		return fmt.Errorf("store: edit memory: %w", err)
	}
	return mustAffect(res, ErrNotFound)
}

// MemoryFields is a partial update for UpdateMemoryFields; nil fields are untouched.
type MemoryFields struct {
	Importance *float64
	Categories []string
}

// UpdateMemoryFields mutates importance and/or categories.
func (s *Store) UpdateMemoryFields(id string, f MemoryFields) error {
	if f.Importance != nil {
		if *f.Importance < 1.0 || *f.Importance > 3.0 {
			return fmt.Errorf("store: importance out of range [1.0, 3.0]")
		}
		if _, err := s.db.Exec(`UPDATE memories SET importance = ? WHERE id = ?`, *f.Importance, id); err != nil {
			return fmt.Errorf("store: update importance: %w", err)
		}
	}
	if f.Categories != nil {
		cats, _ := json.Marshal(f.Categories)
		if _, err := s.db.Exec(`UPDATE memories SET categories = ? WHERE id = ?`, string(cats), id); err != nil {
			return fmt.Errorf("store: update categories: %w", err)
		}
	}
	return nil
}

// DeleteMemory removes a single memory.
func (s *Store) DeleteMemory(id string) error {
	res, err := s.db.Exec(`DELETE FROM memories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete memory: %w", err)
	}
	return mustAffect(res, ErrNotFound)
}

// BatchDelete removes many memories in one statement.
func (s *Store) BatchDelete(ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("store: begin batch delete: %w", err)
	}
	defer tx.Rollback()

	var total int64
	stmt, err := tx.Prepare(`DELETE FROM memories WHERE id = ?`)
	if err != nil {
		return 0, fmt.Errorf("store: prepare batch delete: %w", err)
	}
	defer stmt.Close()
	for _, id := range ids {
		res, err := stmt.Exec(id)
		if err != nil {
			return int(total), fmt.Errorf("store: batch delete %s: %w", id, err)
		}
		n, _ := res.RowsAffected()
		total += n
	}
	if err := tx.Commit(); err != nil {
		return int(total), fmt.Errorf("store: commit batch delete: %w", err)
	}
	return int(total), nil
}

// GetRecent returns the most recently created memories, optionally scoped
// to a set of categories.
func (s *Store) GetRecent(limit int, categories []string) ([]*Memory, error) {
	query := `SELECT id, content, categories, importance, confidence, access_count,
		created_at, last_accessed, expires_at, source, source_message_id FROM memories`
	var args []interface{}
	if len(categories) > 0 {
		query += " WHERE " + categoryFilterSQL(categories, &args)
	}
	query += " ORDER BY created_at DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: get recent: %w", err)
	}
	defer rows.Close()
	return scanMemories(rows)
}

// Search performs an FTS5 full-text search with optional category and
// confidence filters.
func (s *Store) Search(query string, categories []string, minConfidence float64, limit int) ([]*Memory, error) {
	sqlQuery := `
		SELECT m.id, m.content, m.categories, m.importance, m.confidence, m.access_count,
			m.created_at, m.last_accessed, m.expires_at, m.source, m.source_message_id
		FROM memories m
		JOIN memory_fts f ON f.rowid = m.rowid
		WHERE memory_fts MATCH ?`
	args := []interface{}{ftsQuery(query)}
	if minConfidence > 0 {
		sqlQuery += " AND m.confidence >= ?"
		args = append(args, minConfidence)
	}
	if len(categories) > 0 {
		sqlQuery += " AND " + categoryFilterSQL(categories, &args)
	}
	sqlQuery += " ORDER BY m.confidence DESC, m.created_at DESC"
	if limit > 0 {
		sqlQuery += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.Query(sqlQuery, args...)
	if err != nil {
		// FTS5 syntax errors on pathological queries degrade to a LIKE scan
		// rather than surfacing a query-language error to callers.
		return s.searchFallback(query, categories, minConfidence, limit)
	}
	defer rows.Close()
	return scanMemories(rows)
}

func (s *Store) searchFallback(query string, categories []string, minConfidence float64, limit int) ([]*Memory, error) {
	sqlQuery := `SELECT id, content, categories, importance, confidence, access_count,
		created_at, last_accessed, expires_at, source, source_message_id FROM memories WHERE content LIKE ?`
	args := []interface{}{"%" + query + "%"}
	if minConfidence > 0 {
		sqlQuery += " AND confidence >= ?"
		args = append(args, minConfidence)
	}
	if len(categories) > 0 {
		sqlQuery += " AND " + categoryFilterSQL(categories, &args)
	}
	sqlQuery += " ORDER BY confidence DESC, created_at DESC"
	if limit > 0 {
		sqlQuery += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.Query(sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("store: search fallback: %w", err)
	}
	defer rows.Close()
	return scanMemories(rows)
}

// RecordAccess increments a memory's access count and refreshes last_accessed.
// Must only be called on explicit retrieval, never on context-injection.
func (s *Store) RecordAccess(id string) error {
	res, err := s.db.Exec(`UPDATE memories SET access_count = access_count + 1, last_accessed = ? WHERE id = ?`,
		time.Now(), id)
	if err != nil {
		return fmt.Errorf("store: record access: %w", err)
	}
	return mustAffect(res, ErrNotFound)
}

func categoryFilterSQL(categories []string, args *[]interface{}) string {
	clause := "("
	for i, c := range categories {
		if i > 0 {
			clause += " OR "
		}
		clause += "categories LIKE ?"
		*args = append(*args, "%\""+c+"\"%")
	}
	return clause + ")"
}

func ftsQuery(q string) string {
	if q == "" {
		return `""`
	}
	return q
}

func scanMemories(rows *sql.Rows) ([]*Memory, error) {
	var out []*Memory
	for rows.Next() {
		m := &Memory{}
		var cats string
		var source string
		var sourceMsg sql.NullString
		var expiresAt sql.NullTime
		if err := rows.Scan(&m.ID, &m.Content, &cats, &m.Importance, &m.Confidence, &m.AccessCount,
			&m.CreatedAt, &m.LastAccessed, &expiresAt, &source, &sourceMsg); err != nil {
			return nil, fmt.Errorf("store: scan memory: %w", err)
		}
		json.Unmarshal([]byte(cats), &m.Categories)
		m.Source = Source(source)
		if sourceMsg.Valid {
			m.SourceMessageID = sourceMsg.String
		}
		if expiresAt.Valid {
			t := expiresAt.Time
			m.ExpiresAt = &t
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) auditConfidence(memoryID string, old, new float64, reason string) error {
	_, err := s.db.Exec(`INSERT INTO confidence_audit (memory_id, old_value, new_value, reason, created_at)
		VALUES (?, ?, ?, ?, ?)`, memoryID, old, new, reason, time.Now())
	if err != nil {
		return fmt.Errorf("store: audit confidence: %w", err)
	}
	return nil
}

// SetConfidence persists a recomputed confidence and appends one audit entry,
// enforcing the [0.1, 1.0] confidence range.
func (s *Store) SetConfidence(memoryID string, newConfidence float64, reason string) error {
	if newConfidence < 0.1 || newConfidence > 1.0 {
		return ErrConfidenceOutOfRange
	}
	var old float64
	if err := s.db.QueryRow(`SELECT confidence FROM memories WHERE id = ?`, memoryID).Scan(&old); err != nil {
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		return fmt.Errorf("store: read confidence: %w", err)
	}
	if _, err := s.db.Exec(`UPDATE memories SET confidence = ? WHERE id = ?`, newConfidence, memoryID); err != nil {
		return fmt.Errorf("store: set confidence: %w", err)
	}
	return s.auditConfidence(memoryID, old, newConfidence, reason)
}

func mustAffect(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
