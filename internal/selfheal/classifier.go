// Package selfheal implements a reading-stream classifier that opens
// and drives incidents through remediation runbooks to resolution or
// escalation.
package selfheal

import "github.com/cortexmind/cortex/internal/store"

// AnomalyType enumerates the fixed rule-table output of the classifier.
type AnomalyType string

const (
	ProcessDead          AnomalyType = "process_dead"
	ProcessZombie        AnomalyType = "process_zombie"
	SignalStale          AnomalyType = "signal_stale"
	PhantomPosition      AnomalyType = "phantom_position"
	PipelineStuck        AnomalyType = "pipeline_stuck"
	FleetUnreachable     AnomalyType = "fleet_unreachable"
	DiskPressure         AnomalyType = "disk_pressure"
	DiskCritical         AnomalyType = "disk_critical"
	MemoryPressure       AnomalyType = "memory_pressure"
	MemoryCritical       AnomalyType = "memory_critical"
	DBCorruption         AnomalyType = "db_corruption"
	LogBloat             AnomalyType = "log_bloat"
	GatewayUnresponsive  AnomalyType = "gateway_unresponsive"
)

// Reading is one sample from a DataSourceAdapter (the polling engine's interface, consumed
// but not implemented here).
type Reading struct {
	SourceID  string
	Available bool
	Data      map[string]float64
	Error     string
}

// Anomaly is the classifier's output for a single reading.
type Anomaly struct {
	Type     AnomalyType
	TargetID string
	Severity store.Severity
}

// classifyRule is one row of the fixed rule table.
type classifyRule struct {
	anomaly  AnomalyType
	severity store.Severity
	match    func(Reading) bool
}

// rules is the fixed table driving Classify. Order does not affect the
// outcome: each rule targets a disjoint reading shape.
var rules = []classifyRule{
	{ProcessDead, store.SeverityCritical, func(r Reading) bool { return !r.Available && r.Error == "no_such_process" }},
	{ProcessZombie, store.SeverityHigh, func(r Reading) bool { return r.Data["state"] == 1 }},
	{SignalStale, store.SeverityMedium, func(r Reading) bool { return r.Data["staleness_ms"] > 60000 }},
	{PhantomPosition, store.SeverityHigh, func(r Reading) bool { return r.Data["position_mismatch"] == 1 }},
	{PipelineStuck, store.SeverityHigh, func(r Reading) bool { return r.Data["queue_depth"] > 1000 && r.Data["throughput"] == 0 }},
	{FleetUnreachable, store.SeverityCritical, func(r Reading) bool { return !r.Available && r.Error == "dial_timeout" }},
	{DiskCritical, store.SeverityCritical, func(r Reading) bool { return r.Data["disk_used_pct"] >= 95 }},
	{DiskPressure, store.SeverityHigh, func(r Reading) bool { return r.Data["disk_used_pct"] >= 80 && r.Data["disk_used_pct"] < 95 }},
	{MemoryCritical, store.SeverityCritical, func(r Reading) bool { return r.Data["mem_used_pct"] >= 95 }},
	{MemoryPressure, store.SeverityMedium, func(r Reading) bool { return r.Data["mem_used_pct"] >= 85 && r.Data["mem_used_pct"] < 95 }},
	{DBCorruption, store.SeverityCritical, func(r Reading) bool { return r.Data["integrity_check_failed"] == 1 }},
	{LogBloat, store.SeverityLow, func(r Reading) bool { return r.Data["log_size_mb"] > 500 }},
	{GatewayUnresponsive, store.SeverityHigh, func(r Reading) bool { return !r.Available && r.Error == "gateway_timeout" }},
}

// Classify is a pure function mapping a reading to zero or more anomalies.
// A reading can match more than one rule (e.g. disk pressure and disk
// critical never both fire since thresholds are disjoint bands, but a
// process and a pipeline probe on the same target can both fire).
func Classify(r Reading) []Anomaly {
	var out []Anomaly
	for _, rule := range rules {
		if rule.match(r) {
			out = append(out, Anomaly{Type: rule.anomaly, TargetID: r.SourceID, Severity: rule.severity})
		}
	}
	return out
}
