package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewDefaultsToInfoLevel(t *testing.T) {
	log, err := New(false)
	require.NoError(t, err)
	assert.False(t, log.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, log.Core().Enabled(zapcore.InfoLevel))
}

func TestNewVerboseEnablesDebug(t *testing.T) {
	log, err := New(true)
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(zapcore.DebugLevel))
}

func TestComponentTagsName(t *testing.T) {
	base, err := New(false)
	require.NoError(t, err)
	child := Component(base, "selfheal")
	assert.NotNil(t, child)
}

func TestComponentWithNilBaseReturnsNop(t *testing.T) {
	child := Component(nil, "selfheal")
	require.NotNil(t, child)
	assert.False(t, child.Core().Enabled(zapcore.ErrorLevel))
}
