package tools

import (
	"path/filepath"
	"testing"

	"github.com/cortexmind/cortex/internal/category"
	"github.com/cortexmind/cortex/internal/index"
	"github.com/cortexmind/cortex/internal/messaging"
	"github.com/cortexmind/cortex/internal/runtime"
	"github.com/cortexmind/cortex/internal/sessionring"
	"github.com/cortexmind/cortex/internal/store"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	cats, err := category.New(st)
	require.NoError(t, err)

	e := &runtime.Engine{
		Store:      st,
		Index:      index.New(st, 50),
		Ring:       sessionring.New(20, 80000),
		Categories: cats,
		Messaging:  messaging.New(st),
	}
	return New(e)
}

func TestCortexAddAndSTM(t *testing.T) {
	r := newTestRegistry(t)

	res := r.CortexAdd("remember to rotate the deploy keys", nil, 1.5)
	require.NotContains(t, res.Details, "error")
	id, ok := res.Details["memory_id"].(string)
	require.True(t, ok)
	require.NotEmpty(t, id)

	stm := r.CortexSTM(10, nil)
	items, ok := stm.Details["items"].([]map[string]interface{})
	require.True(t, ok)
	require.Len(t, items, 1)
}

func TestCortexAddRejectsEmptyContent(t *testing.T) {
	r := newTestRegistry(t)
	res := r.CortexAdd("   ", nil, 0)
	require.Equal(t, "validation_error", res.Details["error"])
}

func TestCortexDedupeReportsGroups(t *testing.T) {
	r := newTestRegistry(t)
	r.CortexAdd("the deploy pipeline failed on staging", nil, 1.0)
	r.CortexAdd("the deploy pipeline failed on staging", nil, 1.0)

	res := r.CortexDedupe("report", nil, 0)
	groups, ok := res.Details["groups"].([]map[string]interface{})
	require.True(t, ok)
	require.Len(t, groups, 1)
}

func TestAtomCreateAndFindCauses(t *testing.T) {
	r := newTestRegistry(t)

	res := r.AtomCreate("deploy script", "skipped health check", "rollback triggered", "ten minutes downtime", 0.9, "agent")
	require.NotContains(t, res.Details, "error")
	atomID := res.Details["atom_id"].(string)

	other := r.AtomCreate("rollback triggered", "paged oncall", "incident opened", "postmortem scheduled", 0.8, "agent")
	otherID := other.Details["atom_id"].(string)

	link := r.AtomLink(atomID, otherID, "", 0)
	require.NotContains(t, link.Details, "error")

	causes := r.AtomFindCauses(otherID, "", 3)
	require.NotContains(t, causes.Details, "error")
}

func TestWorkingMemoryPinViewClear(t *testing.T) {
	r := newTestRegistry(t)

	pin := r.WorkingMemory("pin", "the prod DB password rotated on the 1st", "CRITICAL-db-pass", 0)
	require.NotContains(t, pin.Details, "error")

	view := r.WorkingMemory("view", "", "", 0)
	pins, ok := view.Details["pins"].([]map[string]interface{})
	require.True(t, ok)
	require.Len(t, pins, 1)

	clear := r.WorkingMemory("clear", "", "", 0)
	require.NotContains(t, clear.Details, "error")
}

func TestSynapseSendAndInbox(t *testing.T) {
	r := newTestRegistry(t)

	send := r.Synapse("send", "scout", "sentinel", "status", "all quiet", "info", "", "", false, 0)
	require.NotContains(t, send.Details, "error")

	inbox := r.Synapse("inbox", "sentinel", "", "", "", "", "", "", false, 10)
	msgs, ok := inbox.Details["messages"].([]map[string]interface{})
	require.True(t, ok)
	require.Len(t, msgs, 1)
}

func TestDispatchUnknownTool(t *testing.T) {
	r := newTestRegistry(t)
	_, err := r.Dispatch("not_a_real_tool", nil)
	require.Error(t, err)
}

func TestDispatchCortexAdd(t *testing.T) {
	r := newTestRegistry(t)
	res, err := r.Dispatch("cortex_add", map[string]interface{}{"content": "dispatched memory"})
	require.NoError(t, err)
	require.NotContains(t, res.Details, "error")
}
