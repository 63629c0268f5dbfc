package selfheal

import (
	"context"
	"fmt"
	"time"

	"github.com/cortexmind/cortex/internal/store"
	"go.uber.org/zap"
)

// Prober re-checks a target for a clear reading, used both for the
// pre-verify shortcut and the post-remediation verification loop.
type Prober func(ctx context.Context, anomalyType AnomalyType, targetID string) (clear bool, err error)

// ExecutorConfig carries the self_healing.* timing knobs (config.SelfHealing).
type ExecutorConfig struct {
	VerificationInterval time.Duration
	MinClearReadings     int
}

// Executor drives a single incident through its runbook to resolution or
// failure via the RunbookExecutor state machine.
type Executor struct {
	incidents *IncidentManager
	registry  *Registry
	probe     Prober
	cfg       ExecutorConfig
	log       *zap.Logger
}

// NewExecutor builds an Executor.
func NewExecutor(incidents *IncidentManager, registry *Registry, probe Prober, cfg ExecutorConfig, log *zap.Logger) *Executor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Executor{incidents: incidents, registry: registry, probe: probe, cfg: cfg, log: log}
}

// Handle runs the full remediation cycle for an open incident.
func (e *Executor) Handle(ctx context.Context, inc *store.Incident) error {
	anomalyType := AnomalyType(inc.AnomalyType)

	clear, err := e.probe(ctx, anomalyType, inc.TargetID)
	if err != nil {
		e.log.Warn("pre-verify probe failed", zap.String("incident_id", inc.ID), zap.Error(err))
	}
	if clear {
		return e.incidents.Transition(inc.ID, store.IncidentSelfResolved, "pre-verify found condition already clear")
	}

	rb, ok := e.registry.ForAnomaly(anomalyType)
	if !ok {
		return e.incidents.Transition(inc.ID, store.IncidentRemediationFailed, "no runbook registered for anomaly type")
	}

	if err := e.incidents.Transition(inc.ID, store.IncidentDiagnosing, fmt.Sprintf("matched runbook %s", rb.ID)); err != nil {
		return err
	}
	if err := e.incidents.Transition(inc.ID, store.IncidentRemediating, "executing runbook steps"); err != nil {
		return err
	}

	for _, step := range rb.Steps {
		stepCtx, cancel := context.WithTimeout(ctx, time.Duration(step.TimeoutMs())*time.Millisecond)
		var out string
		var stepErr error
		if rb.Mode == store.RunbookDryRun {
			out, stepErr = step.DryRun(stepCtx, inc.TargetID)
		} else {
			out, stepErr = step.Execute(stepCtx, inc.TargetID)
		}
		cancel()

		if stepErr != nil {
			e.incidents.Transition(inc.ID, store.IncidentRemediationFailed,
				fmt.Sprintf("step %q failed: %v", step.Name(), stepErr))
			return stepErr
		}
		e.log.Info("runbook step completed", zap.String("incident_id", inc.ID), zap.String("step", step.Name()), zap.String("output", out))
	}

	if rb.Mode == store.RunbookDryRun {
		rb.DryRunCount++
		if err := e.registry.Persist(rb); err != nil {
			e.log.Warn("failed to persist dry-run count", zap.Error(err))
		}
		return e.incidents.Transition(inc.ID, store.IncidentVerifying, "dry-run steps logged, no changes applied")
	}

	if err := e.incidents.Transition(inc.ID, store.IncidentVerifying, "remediation applied, awaiting verification"); err != nil {
		return err
	}

	clearCount := 0
	for clearCount < e.cfg.MinClearReadings {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(e.cfg.VerificationInterval):
		}
		clear, err := e.probe(ctx, anomalyType, inc.TargetID)
		if err != nil {
			e.log.Warn("verification probe failed", zap.String("incident_id", inc.ID), zap.Error(err))
			clearCount = 0
			continue
		}
		if clear {
			clearCount++
		} else {
			clearCount = 0
		}
	}

	return e.incidents.Transition(inc.ID, store.IncidentResolved,
		fmt.Sprintf("%d consecutive clear readings", e.cfg.MinClearReadings))
}
