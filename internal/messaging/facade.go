// Package messaging implements a thin verb layer over the store's
// message tables (send, inbox, read, ack, history), routed through the
// persistent store for durability rather than bare pub/sub request/reply.
package messaging

import "github.com/cortexmind/cortex/internal/store"

// Facade is the messaging verb surface consumed by agents and by the
// self-healing escalation router.
type Facade struct {
	store *store.Store
}

// New builds a messaging facade over a store.
func New(s *store.Store) *Facade {
	return &Facade{store: s}
}

// Send delivers a message, assigning id/priority/timestamp defaults; the
// thread id is stored as given.
func (f *Facade) Send(m *store.Message) error {
	return f.store.SendMessage(m)
}

// Inbox returns an agent's messages, optionally including already-read ones.
func (f *Facade) Inbox(agent string, includeRead bool, limit int) ([]*store.Message, error) {
	return f.store.Inbox(agent, includeRead, limit)
}

// Read marks a message read by an agent. Idempotent.
func (f *Facade) Read(id, agent string) error {
	return f.store.ReadMessage(id, agent)
}

// Ack acknowledges a message, optionally sending an auto-reply body in the
// same thread. Idempotent.
func (f *Facade) Ack(id, agent, replyBody string) error {
	return f.store.AckMessage(id, agent, replyBody)
}

// History returns a thread's messages, or an agent's full history when
// threadID is empty.
func (f *Facade) History(threadID, agent string, limit int) ([]*store.Message, error) {
	return f.store.History(threadID, agent, limit)
}
