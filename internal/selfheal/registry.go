package selfheal

import (
	"fmt"
	"sync"

	"github.com/cortexmind/cortex/internal/store"
)

// Runbook pairs a set of static steps with the persisted runtime state
// (mode, confidence, dry_run_count) from store.RunbookRecord.
type Runbook struct {
	store.RunbookRecord
	Steps []Step
}

// Registry loads built-in runbook definitions and merges them with
// persisted runtime state, layering live state over static process
// definitions.
type Registry struct {
	mu       sync.RWMutex
	store    *store.Store
	runbooks map[string]*Runbook
}

// NewRegistry builds the registry with Cortex's fixed set of built-in
// runbooks and loads any persisted runtime state over them.
func NewRegistry(s *store.Store) (*Registry, error) {
	r := &Registry{store: s, runbooks: builtins()}
	for id, rb := range r.runbooks {
		persisted, err := s.GetRunbook(id)
		if err == store.ErrNotFound {
			rb.ID = id
			if err := s.UpsertRunbook(&rb.RunbookRecord); err != nil {
				return nil, fmt.Errorf("selfheal: seed runbook %s: %w", id, err)
			}
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("selfheal: load runbook %s: %w", id, err)
		}
		rb.RunbookRecord = *persisted
	}
	return r, nil
}

// builtins defines the fixed runbook-to-anomaly mapping. Log rotation and
// GC notify start in auto_execute, a deliberately small whitelist of
// low-risk actions; everything else starts in dry_run until it graduates.
func builtins() map[string]*Runbook {
	return map[string]*Runbook{
		"rotate_logs": {
			RunbookRecord: store.RunbookRecord{
				ID: "rotate_logs", Label: "Rotate oversized logs",
				AppliesTo: []string{string(LogBloat)}, Mode: store.RunbookAutoExecute,
				Confidence: 0.95, AutoApproveWhitelist: true,
			},
			Steps: []Step{
				execStep{name: "truncate_log", timeoutMs: 5000, command: "logrotate",
					args: []string{"-f"}, targetArg: 1, lookup: logrotateConfigs},
			},
		},
		"notify_gc": {
			RunbookRecord: store.RunbookRecord{
				ID: "notify_gc", Label: "Request GC on memory pressure",
				AppliesTo: []string{string(MemoryPressure)}, Mode: store.RunbookAutoExecute,
				Confidence: 0.9, AutoApproveWhitelist: true,
			},
			Steps: []Step{
				execStep{name: "send_gc_signal", timeoutMs: 3000, command: "kill",
					args: []string{"-USR2"}, targetArg: 1, lookup: processPids},
			},
		},
		"restart_process": {
			RunbookRecord: store.RunbookRecord{
				ID: "restart_process", Label: "Restart a dead or zombied process",
				AppliesTo: []string{string(ProcessDead), string(ProcessZombie)}, Mode: store.RunbookDryRun,
				Confidence: 0.5,
			},
			Steps: []Step{
				execStep{name: "restart_via_systemctl", timeoutMs: 15000, command: "systemctl",
					args: []string{"restart"}, targetArg: 1, lookup: systemdUnits},
			},
		},
		"clear_disk_pressure": {
			RunbookRecord: store.RunbookRecord{
				ID: "clear_disk_pressure", Label: "Clear disk pressure via cleanup script",
				AppliesTo: []string{string(DiskPressure), string(DiskCritical)}, Mode: store.RunbookDryRun,
				Confidence: 0.4,
			},
			Steps: []Step{
				execStep{name: "run_cleanup_script", timeoutMs: 30000, command: "cortex-disk-cleanup",
					args: []string{}, targetArg: 0, lookup: cleanupTargets},
			},
		},
		"restart_gateway": {
			RunbookRecord: store.RunbookRecord{
				ID: "restart_gateway", Label: "Restart an unresponsive gateway",
				AppliesTo: []string{string(GatewayUnresponsive), string(FleetUnreachable)}, Mode: store.RunbookDryRun,
				Confidence: 0.4,
			},
			Steps: []Step{
				execStep{name: "restart_via_systemctl", timeoutMs: 15000, command: "systemctl",
					args: []string{"restart"}, targetArg: 1, lookup: systemdUnits},
			},
		},
	}
}

// Pre-approved lookup tables: the only place anomaly-supplied target ids may
// resolve into command arguments.
var (
	logrotateConfigs = map[string]string{
		"cortex-runtime": "/etc/logrotate.d/cortex-runtime",
		"cortex-gate":    "/etc/logrotate.d/cortex-gate",
	}
	processPids = map[string]string{}
	systemdUnits = map[string]string{
		"cortex-runtime": "cortex-runtime.service",
		"cortex-gate":    "cortex-gate.service",
	}
	cleanupTargets = map[string]string{
		"cortex-data": "/var/lib/cortex",
	}
)

// ForAnomaly returns the runbook registered for an anomaly type, if any.
func (r *Registry) ForAnomaly(a AnomalyType) (*Runbook, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rb := range r.runbooks {
		for _, applies := range rb.AppliesTo {
			if applies == string(a) {
				return rb, true
			}
		}
	}
	return nil, false
}

// Persist writes a runbook's current runtime state back to the store.
func (r *Registry) Persist(rb *Runbook) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.UpsertRunbook(&rb.RunbookRecord)
}
