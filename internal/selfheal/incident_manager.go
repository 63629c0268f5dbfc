package selfheal

import (
	"fmt"
	"time"

	"github.com/cortexmind/cortex/internal/store"
	"github.com/cortexmind/cortex/internal/transport"
	"go.uber.org/zap"
)

// IncidentManager wraps store's incident operations with the broadcast and
// dismiss-window semantics needed on top of the raw CRUD (store.go
// already enforces the uniqueness invariant; this layer adds transport
// fan-out and the dismiss-until filter for re-detection).
type IncidentManager struct {
	store *store.Store
	bus   *transport.Client
	log   *zap.Logger
}

// NewIncidentManager builds a manager over a store and an optional transport
// client (bus may be nil, in which case events are simply not published).
func NewIncidentManager(s *store.Store, bus *transport.Client, log *zap.Logger) *IncidentManager {
	if log == nil {
		log = zap.NewNop()
	}
	return &IncidentManager{store: s, bus: bus, log: log}
}

// Detect opens or refreshes an incident for a classified anomaly, honoring
// any active dismiss window.
func (m *IncidentManager) Detect(a Anomaly) (*store.Incident, error) {
	inc := &store.Incident{AnomalyType: string(a.Type), TargetID: a.TargetID, Severity: a.Severity}
	saved, err := m.store.UpsertIncident(inc, "anomaly detected")
	if err != nil {
		return nil, fmt.Errorf("selfheal: detect: %w", err)
	}

	if saved.DismissUntil != nil && time.Now().Before(*saved.DismissUntil) {
		return saved, nil
	}

	m.publish(saved, "")
	return saved, nil
}

// Transition moves an incident forward and publishes the transition.
func (m *IncidentManager) Transition(id string, to store.IncidentState, note string) error {
	if err := m.store.TransitionIncident(id, to, note); err != nil {
		return fmt.Errorf("selfheal: transition: %w", err)
	}
	inc, err := m.store.GetIncident(id)
	if err == nil {
		m.publish(inc, note)
	}
	return nil
}

// Dismiss suppresses re-detection of an incident until the given time.
func (m *IncidentManager) Dismiss(id string, until time.Time, note string) error {
	if err := m.store.DismissIncident(id, until, note); err != nil {
		return fmt.Errorf("selfheal: dismiss: %w", err)
	}
	return nil
}

func (m *IncidentManager) publish(inc *store.Incident, note string) {
	if m.bus == nil {
		return
	}
	evt := transport.IncidentEvent{
		IncidentID:  inc.ID,
		AnomalyType: inc.AnomalyType,
		TargetID:    inc.TargetID,
		ToState:     string(inc.State),
		Severity:    string(inc.Severity),
		Timestamp:   time.Now(),
	}
	if len(inc.AuditTrail) > 1 {
		evt.FromState = string(inc.AuditTrail[len(inc.AuditTrail)-2].ToState)
	}
	subject := transport.SubjectIncidentTransition
	if len(inc.AuditTrail) == 1 {
		subject = transport.SubjectIncidentDetected
	}
	if err := m.bus.PublishJSON(subject, evt); err != nil {
		m.log.Warn("failed to publish incident event", zap.String("incident_id", inc.ID), zap.Error(err))
	}
}
