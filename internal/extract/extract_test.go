package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractDetectsReadOnlyCommand(t *testing.T) {
	ctx := Extract("exec", map[string]string{"command": "git status"})
	assert.Equal(t, "read_only", ctx.CommandType)
	assert.Equal(t, "low", ctx.RiskLevel)
}

func TestExtractDetectsRiskyVerb(t *testing.T) {
	ctx := Extract("exec", map[string]string{"command": "rm -rf /tmp/build"})
	assert.NotEqual(t, "read_only", ctx.CommandType)
	assert.Equal(t, "high", ctx.RiskLevel)
}

func TestExtractDetectsSSHHost(t *testing.T) {
	ctx := Extract("exec", map[string]string{"command": "ssh deploy-host-1 uptime"})
	assert.Equal(t, "deploy-host-1", ctx.HostTarget)
}

func TestExtractDetectsURLHost(t *testing.T) {
	ctx := Extract("browser", map[string]string{"url": "https://internal.example.com/dashboard"})
	assert.Equal(t, "internal.example.com", ctx.URLHost)
}
