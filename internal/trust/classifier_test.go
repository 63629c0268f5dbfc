package trust

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyFinancialBeatsReadOnlyShortcut(t *testing.T) {
	c := Classify("exec", map[string]string{"command": "cat invoice.txt"})
	assert.Equal(t, Tier4, c.Tier)
	assert.Equal(t, "financial", c.Category)
}

func TestClassifyCatchesTradingExecutionBypass(t *testing.T) {
	c := Classify("exec", map[string]string{"command": "ls && augur trade --live"})
	assert.Equal(t, Tier4, c.Tier)
	assert.Equal(t, "financial", c.Category)
}

func TestClassifyReadOnly(t *testing.T) {
	c := Classify("exec", map[string]string{"command": "git status"})
	assert.Equal(t, Tier1, c.Tier)
}

func TestClassifyDestructive(t *testing.T) {
	c := Classify("exec", map[string]string{"command": "rm -rf /var/data"})
	assert.Equal(t, Tier3, c.Tier)
}

func TestClassifyMutation(t *testing.T) {
	c := Classify("exec", map[string]string{"command": "deploy service-a"})
	assert.Equal(t, Tier2, c.Tier)
	assert.Equal(t, "mutation", c.Category)
}
