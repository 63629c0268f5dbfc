package selfheal

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecStepRejectsUnapprovedTarget(t *testing.T) {
	s := execStep{
		name: "restart_via_systemctl", timeoutMs: 1000, command: "systemctl",
		args: []string{"restart"}, targetArg: 1, lookup: systemdUnits,
	}
	_, err := s.DryRun(context.Background(), "not-a-real-target")
	require.Error(t, err)
}

func TestExecStepDryRunNeverShellsOut(t *testing.T) {
	s := execStep{
		name: "restart_via_systemctl", timeoutMs: 1000, command: "systemctl",
		args: []string{"restart"}, targetArg: 1, lookup: systemdUnits,
	}
	out, err := s.DryRun(context.Background(), "cortex-runtime")
	require.NoError(t, err)
	assert.Contains(t, out, "systemctl")
	assert.Contains(t, out, "cortex-runtime.service")
}

func TestBuiltinRunbooksApplyToKnownAnomalies(t *testing.T) {
	reg := builtins()
	for id, rb := range reg {
		assert.NotEmpty(t, rb.Steps, "runbook %s has no steps", id)
		assert.NotEmpty(t, rb.AppliesTo, "runbook %s has no applies_to", id)
	}
}
