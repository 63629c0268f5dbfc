package sop

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSOP(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestFindMatchesOrdersByPriority(t *testing.T) {
	dir := t.TempDir()
	writeSOP(t, dir, "deployment.sop", "preflight:\n  check disk space\ngotchas:\n  watch for migration lock\n")
	writeSOP(t, dir, "destructive-delete.sop", "preflight:\n  confirm target path\n")

	e := New(dir, DefaultPatterns(), nil)
	matches := e.FindMatches("command=rm -rf /tmp/build && deploy service")

	require.Len(t, matches, 2)
	assert.Equal(t, "destructive-delete", matches[0].Label) // priority 100 > 70
	assert.Equal(t, "confirm target path", matches[0].Sections["preflight"])
}

func TestFindMatchesSkipsUnreadableFile(t *testing.T) {
	dir := t.TempDir()
	e := New(dir, DefaultPatterns(), nil)
	matches := e.FindMatches("systemctl restart cortex-runtime")
	assert.Empty(t, matches)
}
