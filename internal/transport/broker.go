// Package transport provides the embedded pub/sub broker and client used to
// fan out incident transitions and escalations to observers (dashboards, the self-healing engine, external integrations)
// without coupling the runtime engine to any one subscriber.
package transport

import (
	"fmt"
	"time"

	"github.com/nats-io/nats-server/v2/server"
)

// Broker wraps an embedded NATS server so the runtime can run without any
// external message bus dependency, keeping the whole system a single
// deployable binary.
type Broker struct {
	srv *server.Server
}

// StartBroker launches an embedded NATS server on the given port with
// logging and monitoring disabled.
func StartBroker(port int) (*Broker, error) {
	opts := &server.Options{
		Port:     port,
		HTTPPort: -1,
		NoLog:    true,
		NoSigs:   true,
	}

	srv, err := server.NewServer(opts)
	if err != nil {
		return nil, fmt.Errorf("transport: create broker: %w", err)
	}

	go srv.Start()

	if !srv.ReadyForConnections(5 * time.Second) {
		return nil, fmt.Errorf("transport: broker did not become ready")
	}

	return &Broker{srv: srv}, nil
}

// URL returns the connection string agents/clients should dial.
func (b *Broker) URL() string {
	return fmt.Sprintf("nats://%s", b.srv.Addr().String())
}

// Shutdown stops the embedded broker.
func (b *Broker) Shutdown() {
	b.srv.Shutdown()
}
