package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, 3001, cfg.Server.Port)
	assert.Equal(t, 4223, cfg.Server.NATSPort)
}

func TestValidateRejectsBadPort(t *testing.T) {
	cfg := Default()
	cfg.Server.Port = 0
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsOutOfRangeConfidence(t *testing.T) {
	cfg := Default()
	cfg.PreActionHooks.ConfidenceThreshold = 1.5
	assert.Error(t, cfg.Validate())
}

func TestLoadOverlaysYAMLOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cortex.yaml")
	doc := "server:\n  port: 9999\n  nats_port: 4223\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Server.Port)
	// fields not present in the overlay keep their defaults.
	assert.Equal(t, "data", cfg.DataDir)
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Server.Port, cfg.Server.Port)
}

func TestLiveGetReflectsSwap(t *testing.T) {
	live := NewLive(Default())
	assert.Equal(t, 3001, live.Get().Server.Port)

	next := Default()
	next.Server.Port = 4000
	live.Swap(next)
	assert.Equal(t, 4000, live.Get().Server.Port)
}
