package selfheal

import (
	"testing"

	"github.com/cortexmind/cortex/internal/store"
	"github.com/stretchr/testify/assert"
)

func TestClassifyDiskPressure(t *testing.T) {
	r := Reading{SourceID: "host-1", Available: true, Data: map[string]float64{"disk_used_pct": 82}}
	anomalies := Classify(r)
	assert.Len(t, anomalies, 1)
	assert.Equal(t, DiskPressure, anomalies[0].Type)
	assert.Equal(t, store.SeverityHigh, anomalies[0].Severity)
}

func TestClassifyDiskCriticalExcludesPressure(t *testing.T) {
	r := Reading{SourceID: "host-1", Available: true, Data: map[string]float64{"disk_used_pct": 97}}
	anomalies := Classify(r)
	assert.Len(t, anomalies, 1)
	assert.Equal(t, DiskCritical, anomalies[0].Type)
}

func TestClassifyProcessDead(t *testing.T) {
	r := Reading{SourceID: "cortex-runtime", Available: false, Error: "no_such_process"}
	anomalies := Classify(r)
	assert.Len(t, anomalies, 1)
	assert.Equal(t, ProcessDead, anomalies[0].Type)
	assert.Equal(t, store.SeverityCritical, anomalies[0].Severity)
}

func TestClassifyNoMatchReturnsEmpty(t *testing.T) {
	r := Reading{SourceID: "host-1", Available: true, Data: map[string]float64{"disk_used_pct": 10}}
	assert.Empty(t, Classify(r))
}
