package enforcement

import (
	"testing"
	"time"

	"github.com/cortexmind/cortex/internal/extract"
	"github.com/cortexmind/cortex/internal/sop"
	"github.com/cortexmind/cortex/internal/store"
	"github.com/stretchr/testify/assert"
)

func baseConfig() Config {
	return Config{
		Level:                LevelStrict,
		MinBlockingPriority:  90,
		ConfidenceThresholds: map[string]float64{"routine": 0.5, "critical": 0.8},
		MaxKnowledgeLength:   200,
	}
}

func TestDisabledAlwaysPasses(t *testing.T) {
	cfg := baseConfig()
	cfg.Level = LevelDisabled
	d := Decide(extract.Context{}, "operations", "exec", Knowledge{SOPs: []sop.Match{{Priority: 100}}}, cfg, nil, time.Now())
	assert.False(t, d.Block)
}

func TestStrictBlocksOnHighPrioritySOP(t *testing.T) {
	cfg := baseConfig()
	k := Knowledge{SOPs: []sop.Match{{Label: "destructive-delete", Priority: 100, Content: "be careful"}}}
	d := Decide(extract.Context{}, "operations", "exec", k, cfg, nil, time.Now())
	assert.True(t, d.Block)
}

func TestStrictPassesWhenNoThresholdMet(t *testing.T) {
	cfg := baseConfig()
	k := Knowledge{SOPs: []sop.Match{{Priority: 10}}, Memories: []*store.Memory{{Confidence: 0.2}}}
	d := Decide(extract.Context{}, "operations", "exec", k, cfg, nil, time.Now())
	assert.False(t, d.Block)
}

func TestEmergencyBypassForcesPass(t *testing.T) {
	cfg := baseConfig()
	cfg.EmergencyBypass = true
	k := Knowledge{SOPs: []sop.Match{{Priority: 100}}}
	d := Decide(extract.Context{}, "operations", "exec", k, cfg, nil, time.Now())
	assert.False(t, d.Block)
}

func TestCooldownSuppressesRepeatedBlock(t *testing.T) {
	cfg := baseConfig()
	k := Knowledge{SOPs: []sop.Match{{Priority: 100}}}
	cd := NewCooldown(5 * time.Minute)
	now := time.Now()

	first := Decide(extract.Context{}, "operations", "exec", k, cfg, cd, now)
	assert.True(t, first.Block)

	second := Decide(extract.Context{}, "operations", "exec", k, cfg, cd, now.Add(time.Minute))
	assert.False(t, second.Block)
}
