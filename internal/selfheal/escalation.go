package selfheal

import (
	"fmt"
	"time"

	"github.com/cortexmind/cortex/internal/messaging"
	"github.com/cortexmind/cortex/internal/store"
	"github.com/cortexmind/cortex/internal/transport"
	"go.uber.org/zap"
)

// Tier 0 is silent telemetry only; tiers 1-3 escalate via messaging and, at
// tier 3, an additional out-of-band signal channel. Neither send blocks the
// other.
const (
	TierSilent   = 0
	TierInfo     = 1
	TierApproval = 2
	TierUrgent   = 3
)

// SignalSender delivers a tier-3 out-of-band page (e.g. PagerDuty, Slack).
// Kept as an interface so the concrete channel named in
// self_healing.tier3_signal_channel can be swapped without touching the
// router.
type SignalSender interface {
	Send(channel, message string) error
}

// Router drives incident escalation across tiers.
type Router struct {
	messaging *messaging.Facade
	bus       *transport.Client
	signal    SignalSender
	channel   string
	log       *zap.Logger
}

// NewRouter builds an escalation router.
func NewRouter(m *messaging.Facade, bus *transport.Client, signal SignalSender, tier3Channel string, log *zap.Logger) *Router {
	if log == nil {
		log = zap.NewNop()
	}
	return &Router{messaging: m, bus: bus, signal: signal, channel: tier3Channel, log: log}
}

// Escalate routes an incident at the given tier. Tier 0 only emits a metric
// event over the bus; tiers 1-2 send an info/approval-request message;
// tier 3 fires both the message and the signal channel independently.
func (r *Router) Escalate(inc *store.Incident, tier int, reason string) error {
	evt := transport.EscalationRaiseEvent{
		ID: inc.ID, IncidentID: inc.ID, Tier: tier, Reason: reason, Timestamp: time.Now(),
	}
	if r.bus != nil {
		if err := r.bus.PublishJSON(transport.SubjectEscalationRaise, evt); err != nil {
			r.log.Warn("failed to publish escalation event", zap.Error(err))
		}
	}

	switch tier {
	case TierSilent:
		return nil

	case TierInfo:
		return r.sendMessage(inc, store.PriorityInfo, reason)

	case TierApproval:
		return r.sendMessage(inc, store.PriorityAction, "approval requested: "+reason)

	case TierUrgent:
		var msgErr, sigErr error
		func() {
			defer func() {
				if p := recover(); p != nil {
					msgErr = fmt.Errorf("selfheal: messaging send panicked: %v", p)
				}
			}()
			msgErr = r.sendMessage(inc, store.PriorityUrgent, "URGENT: "+reason)
		}()
		func() {
			defer func() {
				if p := recover(); p != nil {
					sigErr = fmt.Errorf("selfheal: signal send panicked: %v", p)
				}
			}()
			if r.signal != nil {
				sigErr = r.signal.Send(r.channel, fmt.Sprintf("incident %s: %s", inc.ID, reason))
			}
		}()
		if msgErr != nil {
			r.log.Error("tier-3 messaging send failed", zap.Error(msgErr))
		}
		if sigErr != nil {
			r.log.Error("tier-3 signal send failed", zap.Error(sigErr))
		}
		if msgErr != nil && sigErr != nil {
			return fmt.Errorf("selfheal: both tier-3 channels failed: messaging=%v signal=%v", msgErr, sigErr)
		}
		return nil

	default:
		return fmt.Errorf("selfheal: unknown escalation tier %d", tier)
	}
}

func (r *Router) sendMessage(inc *store.Incident, priority store.Priority, body string) error {
	return r.messaging.Send(&store.Message{
		FromAgent: "selfheal",
		ToAgent:   "all",
		Subject:   fmt.Sprintf("incident %s (%s)", inc.ID, inc.AnomalyType),
		Body:      body,
		Priority:  priority,
	})
}
