package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/cortexmind/cortex/internal/selfheal"
	"github.com/cortexmind/cortex/internal/store"
)

// CortexHeal implements cortex_heal: the operator-facing surface over the
// self-healing state machine. execute is the only action gated on an
// explicit confirm flag. dry_run and execute both run the incident's runbook
// in the runbook's persisted mode, so dry_run against an auto_execute
// runbook executes its steps.
func (r *Registry) CortexHeal(action, incidentID, runbookID, note string, untilHours int, confirm bool) Result {
	switch action {
	case "status":
		return r.healStatus()
	case "list_runbooks":
		return r.healListRunbooks()
	case "approve":
		return r.healApprove(runbookID)
	case "dry_run":
		return r.healRun(incidentID, false)
	case "execute":
		if !confirm {
			return errResult("validation_error", "execute requires confirm=true")
		}
		return r.healRun(incidentID, true)
	case "record_fix":
		return r.healRecordFix(incidentID, note)
	case "dismiss":
		return r.healDismiss(incidentID, untilHours, note)
	default:
		return errResult("validation_error", "unknown heal action: "+action)
	}
}

func (r *Registry) healStatus() Result {
	incidents, err := r.engine.Store.ListIncidents(true)
	if err != nil {
		return errResult("internal_error", "list incidents failed: "+err.Error())
	}
	items := make([]map[string]interface{}, len(incidents))
	for i, inc := range incidents {
		items[i] = map[string]interface{}{
			"id": inc.ID, "anomaly_type": inc.AnomalyType, "target_id": inc.TargetID,
			"state": inc.State, "severity": inc.Severity, "detected_at": inc.DetectedAt,
		}
	}
	return textWith(fmt.Sprintf("%d open incident(s)", len(incidents)), map[string]interface{}{"incidents": items})
}

func (r *Registry) healListRunbooks() Result {
	rbs, err := r.engine.Store.ListRunbooks()
	if err != nil {
		return errResult("internal_error", "list runbooks failed: "+err.Error())
	}
	items := make([]map[string]interface{}, len(rbs))
	for i, rb := range rbs {
		items[i] = map[string]interface{}{
			"id": rb.ID, "label": rb.Label, "applies_to": rb.AppliesTo,
			"mode": rb.Mode, "confidence": rb.Confidence, "dry_run_count": rb.DryRunCount,
		}
	}
	return textWith(fmt.Sprintf("%d runbook(s)", len(rbs)), map[string]interface{}{"runbooks": items})
}

func (r *Registry) healApprove(runbookID string) Result {
	if runbookID == "" {
		return errResult("validation_error", "runbook_id is required")
	}
	if err := r.engine.Supervisor.Graduate(runbookID); err != nil {
		return errResult("not_found", "approve failed: "+err.Error())
	}
	return text("runbook " + runbookID + " graduated to auto-execute")
}

func (r *Registry) healRun(incidentID string, execute bool) Result {
	if incidentID == "" {
		return errResult("validation_error", "incident_id is required")
	}
	inc, err := r.engine.Store.GetIncident(incidentID)
	if err != nil {
		return errResult("not_found", "incident not found: "+err.Error())
	}
	if r.engine.Executor == nil {
		return errResult("internal_error", "self-healing executor not available")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	if err := r.engine.Executor.Handle(ctx, inc); err != nil {
		return errResult("internal_error", "runbook execution failed: "+err.Error())
	}
	verb := "dry run"
	if execute {
		verb = "execution"
	}
	return textWith(verb+" completed for incident "+incidentID, map[string]interface{}{"incident_id": incidentID})
}

func (r *Registry) healRecordFix(incidentID, note string) Result {
	if incidentID == "" {
		return errResult("validation_error", "incident_id is required")
	}
	if note == "" {
		note = "manually recorded fix"
	}
	if err := r.engine.IncidentManager.Transition(incidentID, store.IncidentResolved, note); err != nil {
		return errResult("not_found", "record fix failed: "+err.Error())
	}
	inc, err := r.engine.Store.GetIncident(incidentID)
	if err == nil && r.engine.Runbooks != nil {
		if rb, ok := r.engine.Runbooks.ForAnomaly(selfheal.AnomalyType(inc.AnomalyType)); ok {
			rb.Confidence += 0.05
			if rb.Confidence > 1.0 {
				rb.Confidence = 1.0
			}
			_ = r.engine.Runbooks.Persist(rb)
		}
	}
	return text("fix recorded for incident " + incidentID)
}

func (r *Registry) healDismiss(incidentID string, untilHours int, note string) Result {
	if incidentID == "" {
		return errResult("validation_error", "incident_id is required")
	}
	if untilHours <= 0 {
		untilHours = 24
	}
	until := time.Now().Add(time.Duration(untilHours) * time.Hour)
	if err := r.engine.IncidentManager.Dismiss(incidentID, until, note); err != nil {
		return errResult("not_found", "dismiss failed: "+err.Error())
	}
	return text("incident dismissed until " + until.Format(time.RFC3339))
}
