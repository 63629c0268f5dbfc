package category

import (
	"path/filepath"
	"testing"

	"github.com/cortexmind/cortex/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAddRejectsDuplicateName(t *testing.T) {
	m, err := New(setupStore(t))
	require.NoError(t, err)

	require.NoError(t, m.Add("operations", "ops stuff", []string{"deploy", "restart"}))
	err = m.Add("operations", "dupe", nil)
	assert.ErrorIs(t, err, store.ErrUniqueViolation)
}

func TestAddRejectsClaimedKeyword(t *testing.T) {
	m, err := New(setupStore(t))
	require.NoError(t, err)

	require.NoError(t, m.Add("operations", "ops", []string{"deploy"}))
	err = m.Add("security", "sec", []string{"deploy"})
	assert.Error(t, err)
}

func TestDetectFallsBackToGeneral(t *testing.T) {
	m, err := New(setupStore(t))
	require.NoError(t, err)
	require.NoError(t, m.Add("operations", "ops", []string{"restart", "systemctl"}))

	assert.Equal(t, []string{"operations"}, m.Detect("please restart the service"))
	assert.Equal(t, []string{"general"}, m.Detect("what is the weather today"))
}
