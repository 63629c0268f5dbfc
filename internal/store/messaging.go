package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SendMessage persists a new inter-agent message.
func (s *Store) SendMessage(m *Message) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.Priority == "" {
		m.Priority = PriorityInfo
	}
	if m.SentAt.IsZero() {
		m.SentAt = time.Now()
	}
	readBy, _ := json.Marshal(m.ReadBy)
	_, err := s.db.Exec(`INSERT INTO messages (id, from_agent, to_agent, subject, body, priority,
		thread_id, sent_at, read_at, acked_at, read_by) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.FromAgent, m.ToAgent, m.Subject, m.Body, string(m.Priority), m.ThreadID,
		m.SentAt, m.ReadAt, m.AckedAt, string(readBy))
	if err != nil {
		return fmt.Errorf("store: send message: %w", err)
	}
	return nil
}

// Inbox returns messages addressed to agent (or "all"), optionally including
// already-read messages.
func (s *Store) Inbox(agent string, includeRead bool, limit int) ([]*Message, error) {
	query := `SELECT id, from_agent, to_agent, subject, body, priority, thread_id, sent_at, read_at,
		acked_at, read_by FROM messages WHERE (to_agent = ? OR to_agent = 'all')`
	args := []interface{}{agent}
	if !includeRead {
		query += " AND read_at IS NULL"
	}
	query += " ORDER BY sent_at DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: inbox: %w", err)
	}
	defer rows.Close()
	return scanMessages(rows)
}

// ReadMessage marks a message as read by agent. Idempotent.
func (s *Store) ReadMessage(id, agent string) error {
	m, err := s.getMessage(id)
	if err != nil {
		return err
	}
	if m.ReadAt == nil {
		now := time.Now()
		m.ReadAt = &now
	}
	found := false
	for _, a := range m.ReadBy {
		if a == agent {
			found = true
			break
		}
	}
	if !found {
		m.ReadBy = append(m.ReadBy, agent)
	}
	readBy, _ := json.Marshal(m.ReadBy)
	_, err = s.db.Exec(`UPDATE messages SET read_at = ?, read_by = ? WHERE id = ?`, m.ReadAt, string(readBy), id)
	if err != nil {
		return fmt.Errorf("store: read message: %w", err)
	}
	return nil
}

// AckMessage marks a message acknowledged, optionally appending a reply body.
// Idempotent: acking twice is a no-op on the second call.
func (s *Store) AckMessage(id, agent, replyBody string) error {
	m, err := s.getMessage(id)
	if err != nil {
		return err
	}
	if m.AckedAt != nil {
		return nil
	}
	now := time.Now()
	_, err = s.db.Exec(`UPDATE messages SET acked_at = ? WHERE id = ?`, now, id)
	if err != nil {
		return fmt.Errorf("store: ack message: %w", err)
	}
	if replyBody != "" {
		return s.SendMessage(&Message{
			FromAgent: agent,
			ToAgent:   m.FromAgent,
			Subject:   "Re: " + m.Subject,
			Body:      replyBody,
			Priority:  PriorityInfo,
			ThreadID:  m.ThreadID,
		})
	}
	return nil
}

// History returns messages for a thread and/or agent, newest first.
func (s *Store) History(threadID, agent string, limit int) ([]*Message, error) {
	query := `SELECT id, from_agent, to_agent, subject, body, priority, thread_id, sent_at, read_at,
		acked_at, read_by FROM messages WHERE 1=1`
	var args []interface{}
	if threadID != "" {
		query += " AND thread_id = ?"
		args = append(args, threadID)
	}
	if agent != "" {
		query += " AND (from_agent = ? OR to_agent = ? OR to_agent = 'all')"
		args = append(args, agent, agent)
	}
	query += " ORDER BY sent_at DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: history: %w", err)
	}
	defer rows.Close()
	return scanMessages(rows)
}

func (s *Store) getMessage(id string) (*Message, error) {
	rows, err := s.db.Query(`SELECT id, from_agent, to_agent, subject, body, priority, thread_id, sent_at,
		read_at, acked_at, read_by FROM messages WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("store: get message: %w", err)
	}
	defer rows.Close()
	msgs, err := scanMessages(rows)
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return nil, ErrNotFound
	}
	return msgs[0], nil
}

func scanMessages(rows *sql.Rows) ([]*Message, error) {
	var out []*Message
	for rows.Next() {
		m := &Message{}
		var priority, readBy string
		var subject sql.NullString
		var threadID sql.NullString
		var readAt, ackedAt sql.NullTime
		if err := rows.Scan(&m.ID, &m.FromAgent, &m.ToAgent, &subject, &m.Body, &priority,
			&threadID, &m.SentAt, &readAt, &ackedAt, &readBy); err != nil {
			return nil, fmt.Errorf("store: scan message: %w", err)
		}
		m.Priority = Priority(priority)
		m.Subject = subject.String
		m.ThreadID = threadID.String
		if readAt.Valid {
			t := readAt.Time
			m.ReadAt = &t
		}
		if ackedAt.Valid {
			t := ackedAt.Time
			m.AckedAt = &t
		}
		json.Unmarshal([]byte(readBy), &m.ReadBy)
		out = append(out, m)
	}
	return out, rows.Err()
}
