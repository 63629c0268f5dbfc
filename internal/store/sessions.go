package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
)

// GetSession retrieves a session by id.
func (s *Store) GetSession(id string) (*SessionState, error) {
	row := s.db.QueryRow(`SELECT session_id, start_time, end_time, channel, working_memory, hot_topics,
		active_projects, pending_tasks, recent_learnings, sop_interactions, previous_session_id, continued_by
		FROM sessions WHERE session_id = ?`, id)
	return scanSession(row)
}

// GetOpenSession returns the session with end_time = NULL for a channel, if any.
func (s *Store) GetOpenSession(channel string) (*SessionState, error) {
	row := s.db.QueryRow(`SELECT session_id, start_time, end_time, channel, working_memory, hot_topics,
		active_projects, pending_tasks, recent_learnings, sop_interactions, previous_session_id, continued_by
		FROM sessions WHERE channel = ? AND end_time IS NULL`, channel)
	return scanSession(row)
}

// UpsertSession inserts or replaces a session row wholesale.
func (s *Store) UpsertSession(sess *SessionState) error {
	wm, _ := json.Marshal(sess.WorkingMemory)
	ht, _ := json.Marshal(sess.HotTopics)
	ap, _ := json.Marshal(sess.ActiveProjects)
	pt, _ := json.Marshal(sess.PendingTasks)
	rl, _ := json.Marshal(sess.RecentLearnings)

	_, err := s.db.Exec(`INSERT INTO sessions (session_id, start_time, end_time, channel, working_memory,
			hot_topics, active_projects, pending_tasks, recent_learnings, sop_interactions,
			previous_session_id, continued_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			end_time = excluded.end_time, working_memory = excluded.working_memory,
			hot_topics = excluded.hot_topics, active_projects = excluded.active_projects,
			pending_tasks = excluded.pending_tasks, recent_learnings = excluded.recent_learnings,
			sop_interactions = excluded.sop_interactions, continued_by = excluded.continued_by`,
		sess.SessionID, sess.StartTime, sess.EndTime, sess.Channel, string(wm), string(ht),
		string(ap), string(pt), string(rl), sess.SOPInteractions, sess.PreviousSessionID, sess.ContinuedBy)
	if err != nil {
		return fmt.Errorf("store: upsert session: %w", err)
	}
	return nil
}

// ListDanglingSessions returns all sessions with end_time = NULL, used on
// startup for crash recovery.
func (s *Store) ListDanglingSessions() ([]*SessionState, error) {
	rows, err := s.db.Query(`SELECT session_id, start_time, end_time, channel, working_memory, hot_topics,
		active_projects, pending_tasks, recent_learnings, sop_interactions, previous_session_id, continued_by
		FROM sessions WHERE end_time IS NULL`)
	if err != nil {
		return nil, fmt.Errorf("store: list dangling sessions: %w", err)
	}
	defer rows.Close()
	var out []*SessionState
	for rows.Next() {
		sess, err := scanSessionRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

// ListRecentSessions returns sessions for a channel, most recently ended first.
func (s *Store) ListRecentSessions(channel string, limit int) ([]*SessionState, error) {
	rows, err := s.db.Query(`SELECT session_id, start_time, end_time, channel, working_memory, hot_topics,
		active_projects, pending_tasks, recent_learnings, sop_interactions, previous_session_id, continued_by
		FROM sessions WHERE channel = ? AND end_time IS NOT NULL ORDER BY end_time DESC LIMIT ?`, channel, limit)
	if err != nil {
		return nil, fmt.Errorf("store: list recent sessions: %w", err)
	}
	defer rows.Close()
	var out []*SessionState
	for rows.Next() {
		sess, err := scanSessionRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(row *sql.Row) (*SessionState, error) {
	sess, err := scanSessionGeneric(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return sess, err
}

func scanSessionRows(rows *sql.Rows) (*SessionState, error) {
	return scanSessionGeneric(rows)
}

func scanSessionGeneric(r rowScanner) (*SessionState, error) {
	sess := &SessionState{}
	var endTime sql.NullTime
	var wm, ht, ap, pt, rl string
	var prevID, continuedBy sql.NullString
	if err := r.Scan(&sess.SessionID, &sess.StartTime, &endTime, &sess.Channel, &wm, &ht, &ap, &pt, &rl,
		&sess.SOPInteractions, &prevID, &continuedBy); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("store: scan session: %w", err)
	}
	if endTime.Valid {
		t := endTime.Time
		sess.EndTime = &t
	}
	json.Unmarshal([]byte(wm), &sess.WorkingMemory)
	json.Unmarshal([]byte(ht), &sess.HotTopics)
	json.Unmarshal([]byte(ap), &sess.ActiveProjects)
	json.Unmarshal([]byte(pt), &sess.PendingTasks)
	json.Unmarshal([]byte(rl), &sess.RecentLearnings)
	sess.PreviousSessionID = prevID.String
	sess.ContinuedBy = continuedBy.String
	return sess, nil
}
