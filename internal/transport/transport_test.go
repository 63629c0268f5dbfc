package transport

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func startTestBroker(t *testing.T) *Broker {
	t.Helper()
	b, err := StartBroker(-1)
	require.NoError(t, err)
	t.Cleanup(b.Shutdown)
	return b
}

func TestBrokerStartAndURL(t *testing.T) {
	b := startTestBroker(t)
	require.Contains(t, b.URL(), "nats://")
}

func TestClientPublishSubscribeRoundTrip(t *testing.T) {
	b := startTestBroker(t)

	sub, err := NewClient(b.URL(), "subscriber", nil)
	require.NoError(t, err)
	t.Cleanup(sub.Close)

	pub, err := NewClient(b.URL(), "publisher", nil)
	require.NoError(t, err)
	t.Cleanup(pub.Close)

	received := make(chan *Message, 1)
	_, err = sub.Subscribe("cortex.test.subject", func(m *Message) {
		received <- m
	})
	require.NoError(t, err)

	require.True(t, pub.IsConnected())
	require.NoError(t, pub.PublishJSON("cortex.test.subject", map[string]string{"hello": "world"}))
	require.NoError(t, pub.Flush())

	select {
	case msg := <-received:
		require.Equal(t, "cortex.test.subject", msg.Subject)
		require.Contains(t, string(msg.Data), "world")
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for published message")
	}
}

func TestQueueSubscribeLoadBalances(t *testing.T) {
	b := startTestBroker(t)

	pub, err := NewClient(b.URL(), "publisher", nil)
	require.NoError(t, err)
	t.Cleanup(pub.Close)

	worker, err := NewClient(b.URL(), "worker", nil)
	require.NoError(t, err)
	t.Cleanup(worker.Close)

	received := make(chan *Message, 1)
	_, err = worker.QueueSubscribe("cortex.heal.incident.detected", "healers", func(m *Message) {
		received <- m
	})
	require.NoError(t, err)

	require.NoError(t, pub.Publish(SubjectIncidentDetected, []byte("incident-1")))
	require.NoError(t, pub.Flush())

	select {
	case msg := <-received:
		require.Equal(t, "incident-1", string(msg.Data))
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for queue-subscribed message")
	}
}
