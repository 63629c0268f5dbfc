package telemetry

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLogEventCoercesUnknownReason(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	r := NewRecorder(nil, path, nil)

	r.LogEvent("totally_made_up", "selfheal", "detail\x07here")

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	scanner := bufio.NewScanner(f)
	require.True(t, scanner.Scan())
	var ev Event
	require.NoError(t, json.Unmarshal(scanner.Bytes(), &ev))
	require.Equal(t, "unspecified", ev.Reason)
	require.Equal(t, "detailhere", ev.Detail)
}

func TestLogEventKeepsKnownReason(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	r := NewRecorder(nil, path, nil)

	r.LogEvent("incident_detected", "selfheal", "anomaly seen")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var ev Event
	require.NoError(t, json.Unmarshal(data[:len(data)-1], &ev))
	require.Equal(t, "incident_detected", ev.Reason)
}

func TestLogEventNoopWithEmptySinkPath(t *testing.T) {
	r := NewRecorder(nil, "", nil)
	r.LogEvent("incident_detected", "selfheal", "should not panic or write")
}

func TestRecordNoopWithNilCollectors(t *testing.T) {
	r := NewRecorder(nil, "", nil)
	r.Record(Metric{Type: "cortex", Name: "blocked", Value: 1, Context: "read_file"})
}

func TestCollectorsRecordDispatchesByType(t *testing.T) {
	c := NewCollectors("cortex_test")
	r := NewRecorder(c, "", nil)

	r.Record(Metric{Type: "cortex", Name: "allow", Context: "read_file"})
	r.Record(Metric{Type: "synapse", Value: 120, Context: "L2"})
	r.Record(Metric{Type: "pipeline", Name: "resolved", Context: "latency_spike"})
	r.Record(Metric{Type: "sop", Value: 0.8, Context: "deploy"})
}
