package runtime

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/cortexmind/cortex/internal/config"
	"github.com/cortexmind/cortex/internal/sessionring"
	"github.com/cortexmind/cortex/internal/store"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	return &Engine{
		cfg:  config.NewLive(config.Default()),
		log:  zap.NewNop(),
		Store: st,
		Ring: sessionring.New(20, 80000),
	}
}

func TestBeforeToolCallNoGatesAllows(t *testing.T) {
	e := newTestEngine(t)
	res := e.BeforeToolCall(context.Background(), "sess-1", "read_file", map[string]string{"path": "/tmp/x"})
	require.False(t, res.Block)
}

func TestAfterToolCallNoPendingIsNoop(t *testing.T) {
	e := newTestEngine(t)
	e.AfterToolCall("sess-without-pending", true, false)
}

func TestMessageReceivedPushesToRing(t *testing.T) {
	e := newTestEngine(t)
	e.MessageReceived("sess-1", "the deploy finished cleanly", time.Now())
	require.Equal(t, 1, e.Ring.Len())
}

func TestBeforeAgentStartWithNoSessionManager(t *testing.T) {
	e := newTestEngine(t)
	res := e.BeforeAgentStart(context.Background(), "channel-1", "what's next", nil)
	require.Empty(t, res.PrependContext)
}

func TestAgentEndWithNoSessionManagerIsNoop(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.AgentEnd(&store.SessionState{SessionID: "s1"}))
}

func TestCloseIsSafeWithPartialEngine(t *testing.T) {
	e := newTestEngine(t)
	e.stop = make(chan struct{})
	e.Close()
}
