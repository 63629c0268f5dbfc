package trust

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedactStripsBearerToken(t *testing.T) {
	out := Redact("curl -H \"Authorization: Bearer sk-abc123def456\" https://api.example.com")
	assert.NotContains(t, out, "sk-abc123def456")
}

func TestRedactStripsKeyValueSecret(t *testing.T) {
	out := Redact("api_key=abcdef1234567890 command=run")
	assert.NotContains(t, out, "abcdef1234567890")
}

func TestOverridePatternRejectsPipelineCaller(t *testing.T) {
	assert.True(t, nonInteractivePattern.MatchString("pipeline-7f3a"))
	assert.True(t, nonInteractivePattern.MatchString("cron_daily_sweep"))
	assert.False(t, nonInteractivePattern.MatchString("user-session-42"))
}
