package tools

import (
	"fmt"

	"github.com/cortexmind/cortex/internal/store"
)

// Synapse implements synapse: the agent-facing messaging facade. agentID is
// the caller's identity, used as the sender on send and as the viewing
// agent on inbox/read/ack/history.
func (r *Registry) Synapse(action, agentID, to, subject, body, priority, threadID, messageID string, includeRead bool, limit int) Result {
	switch action {
	case "send":
		if to == "" || body == "" {
			return errResult("validation_error", "to and body are required to send")
		}
		p := store.Priority(priority)
		if p == "" {
			p = store.PriorityInfo
		}
		m := &store.Message{FromAgent: agentID, ToAgent: to, Subject: subject, Body: body, Priority: p, ThreadID: threadID}
		if err := r.engine.Messaging.Send(m); err != nil {
			return errResult("validation_error", "send failed: "+err.Error())
		}
		return textWith("message sent: "+m.ID, map[string]interface{}{"message_id": m.ID, "thread_id": m.ThreadID})

	case "inbox":
		if limit <= 0 {
			limit = 20
		}
		msgs, err := r.engine.Messaging.Inbox(agentID, includeRead, limit)
		if err != nil {
			return errResult("internal_error", "inbox failed: "+err.Error())
		}
		return textWith(fmt.Sprintf("%d message(s)", len(msgs)), map[string]interface{}{"messages": messagesToDetails(msgs)})

	case "read":
		if messageID == "" {
			return errResult("validation_error", "message_id is required")
		}
		if err := r.engine.Messaging.Read(messageID, agentID); err != nil {
			return errResult("not_found", "read failed: "+err.Error())
		}
		return text("message marked read")

	case "ack":
		if messageID == "" {
			return errResult("validation_error", "message_id is required")
		}
		if err := r.engine.Messaging.Ack(messageID, agentID, body); err != nil {
			return errResult("not_found", "ack failed: "+err.Error())
		}
		return text("message acknowledged")

	case "history":
		if limit <= 0 {
			limit = 50
		}
		msgs, err := r.engine.Messaging.History(threadID, agentID, limit)
		if err != nil {
			return errResult("internal_error", "history failed: "+err.Error())
		}
		return textWith(fmt.Sprintf("%d message(s) in thread", len(msgs)), map[string]interface{}{"messages": messagesToDetails(msgs)})

	default:
		return errResult("validation_error", "unknown synapse action: "+action)
	}
}

func messagesToDetails(msgs []*store.Message) []map[string]interface{} {
	out := make([]map[string]interface{}, len(msgs))
	for i, m := range msgs {
		out[i] = map[string]interface{}{
			"id": m.ID, "from": m.FromAgent, "to": m.ToAgent, "subject": m.Subject,
			"body": m.Body, "priority": m.Priority, "thread_id": m.ThreadID, "sent_at": m.SentAt,
		}
	}
	return out
}
