package messaging

import (
	"path/filepath"
	"testing"

	"github.com/cortexmind/cortex/internal/store"
	"github.com/stretchr/testify/require"
)

func newTestFacade(t *testing.T) *Facade {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return New(s)
}

func TestSendInboxReadAck(t *testing.T) {
	f := newTestFacade(t)

	m := &store.Message{FromAgent: "scout", ToAgent: "sentinel", Subject: "status", Body: "all clear", Priority: store.PriorityInfo}
	require.NoError(t, f.Send(m))
	require.NotEmpty(t, m.ID)

	inbox, err := f.Inbox("sentinel", false, 10)
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	require.Equal(t, "all clear", inbox[0].Body)

	require.NoError(t, f.Read(m.ID, "sentinel"))

	unread, err := f.Inbox("sentinel", false, 10)
	require.NoError(t, err)
	require.Empty(t, unread)

	require.NoError(t, f.Ack(m.ID, "sentinel", "acknowledged"))
}

func TestHistoryByThread(t *testing.T) {
	f := newTestFacade(t)

	m1 := &store.Message{FromAgent: "a", ToAgent: "b", Body: "first", ThreadID: "thread-1"}
	require.NoError(t, f.Send(m1))
	m2 := &store.Message{FromAgent: "b", ToAgent: "a", Body: "second", ThreadID: "thread-1"}
	require.NoError(t, f.Send(m2))

	hist, err := f.History("thread-1", "a", 10)
	require.NoError(t, err)
	require.Len(t, hist, 2)
}
