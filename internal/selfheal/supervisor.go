package selfheal

import (
	"context"
	"sync"
	"time"

	"github.com/cortexmind/cortex/internal/store"
	"go.uber.org/zap"
)

// Supervisor wires the classifier, incident manager, executor, and
// escalation router into the event loop fed by the polling engine's reading stream
// (PollingEngine.onReading), plus Cortex's own supplemental probes.
type Supervisor struct {
	incidents     *IncidentManager
	registry      *Registry
	executor      *Executor
	router        *Router
	graduateAfter int

	mu           sync.Mutex
	dryRunStreak map[string]int // keyed by anomaly_type: consecutive clean dry-run verifications
}

// NewSupervisor builds a Supervisor. graduateAfter is
// self_healing.dry_run_graduation_count (default 3).
func NewSupervisor(incidents *IncidentManager, registry *Registry, executor *Executor, router *Router, graduateAfter int) *Supervisor {
	return &Supervisor{
		incidents: incidents, registry: registry, executor: executor, router: router,
		graduateAfter: graduateAfter, dryRunStreak: make(map[string]int),
	}
}

// OnReading is the PollingEngine.onReading callback. Subscriber exceptions
// must not propagate to the engine, so classification and handling are
// wrapped in a recover.
func (s *Supervisor) OnReading(r Reading) {
	defer func() {
		recover()
	}()

	for _, a := range Classify(r) {
		inc, err := s.incidents.Detect(a)
		if err != nil {
			continue
		}
		if inc.State != store.IncidentDetected {
			continue // already being handled; re-detection just refreshed timestamps
		}
		go s.run(inc)
	}
}

func (s *Supervisor) run(inc *store.Incident) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if err := s.executor.Handle(ctx, inc); err != nil {
		s.mu.Lock()
		s.dryRunStreak[inc.AnomalyType] = 0
		s.mu.Unlock()
		s.escalate(inc, err.Error())
		return
	}

	refreshed, err := s.incidents.store.GetIncident(inc.ID)
	if err != nil {
		return
	}
	if refreshed.State == store.IncidentVerifying {
		s.recordDryRun(inc)
	}
}

// recordDryRun tracks the graduation streak: dryRunGraduationCount
// consecutive dry-run verifications for the same anomaly type promote the
// runbook to auto_execute.
func (s *Supervisor) recordDryRun(inc *store.Incident) {
	rb, ok := s.registry.ForAnomaly(AnomalyType(inc.AnomalyType))
	if !ok || rb.Mode != store.RunbookDryRun {
		return
	}

	s.mu.Lock()
	s.dryRunStreak[inc.AnomalyType]++
	streak := s.dryRunStreak[inc.AnomalyType]
	s.mu.Unlock()

	if streak >= s.graduateAfter {
		rb.Mode = store.RunbookAutoExecute
		s.registry.Persist(rb)
		s.mu.Lock()
		s.dryRunStreak[inc.AnomalyType] = 0
		s.mu.Unlock()
	}
}

// Graduate explicitly promotes a runbook to auto_execute (the "explicit
// approval also graduates" path).
func (s *Supervisor) Graduate(runbookID string) error {
	rb, ok := s.registry.runbooks[runbookID]
	if !ok {
		return store.ErrNotFound
	}
	rb.Mode = store.RunbookAutoExecute
	return s.registry.Persist(rb)
}

func (s *Supervisor) escalate(inc *store.Incident, reason string) {
	tier := TierInfo
	switch inc.Severity {
	case store.SeverityCritical:
		tier = TierUrgent
	case store.SeverityHigh:
		tier = TierApproval
	}
	s.router.Escalate(inc, tier, reason)
	s.incidents.Transition(inc.ID, store.IncidentEscalated, reason)
}
