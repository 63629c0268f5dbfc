package telemetry

import (
	"bufio"
	"encoding/json"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// reasonCodes is the closed set of self-healing/model-routing event reasons
// accepted into the JSONL sink; anything else is coerced to "unspecified"
// so the log stays grep-able and downstream consumers never see free text.
var reasonCodes = map[string]bool{
	"incident_detected": true, "incident_escalated": true, "incident_resolved": true,
	"incident_dry_run": true, "runbook_graduated": true, "gate_block": true,
	"gate_timeout": true, "trust_override": true, "route_degraded": true,
}

// Event is one JSONL record in the telemetry sink.
type Event struct {
	Timestamp string `json:"timestamp"`
	Reason    string `json:"reason"`
	Component string `json:"component"`
	Detail    string `json:"detail,omitempty"`
}

// Recorder fans metric observations out to the Prometheus collectors and
// appends closed-vocabulary events to an on-disk JSONL sink, the way
// assaultResultKey/appendJSONL record batch outcomes to disk.
type Recorder struct {
	collectors *Collectors
	sinkPath   string
	mu         sync.Mutex
	log        *zap.Logger
}

// NewRecorder builds a Recorder. sinkPath may be empty to disable the JSONL sink.
func NewRecorder(collectors *Collectors, sinkPath string, log *zap.Logger) *Recorder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Recorder{collectors: collectors, sinkPath: sinkPath, log: log}
}

// Record pushes a point metric into the appropriate Prometheus series.
func (r *Recorder) Record(m Metric) {
	if r == nil || r.collectors == nil {
		return
	}
	switch m.Type {
	case "cortex":
		r.collectors.GateDecision(m.Context, m.Name)
	case "synapse":
		r.collectors.InjectTokens(m.Context, int(m.Value))
	case "pipeline":
		r.collectors.IncidentEvent(m.Context, m.Name)
	case "sop":
		r.collectors.MemoryConfidence(m.Context, m.Value)
	}
}

// LogEvent appends a structured event to the JSONL sink. control characters
// are stripped from detail so a malformed anomaly payload can't corrupt the
// line-oriented format.
func (r *Recorder) LogEvent(reason, component, detail string) {
	if r == nil || r.sinkPath == "" {
		return
	}
	if !reasonCodes[reason] {
		reason = "unspecified"
	}
	ev := Event{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Reason:    reason,
		Component: component,
		Detail:    stripControl(detail),
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := appendJSONL(r.sinkPath, ev); err != nil {
		r.log.Warn("telemetry sink write failed", zap.Error(err), zap.String("reason", reason))
	}
}

func appendJSONL(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	if _, err := w.Write(append(data, '\n')); err != nil {
		return err
	}
	return w.Flush()
}

func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 && r != '\t' {
			return -1
		}
		return r
	}, s)
}
