package transport

import (
	"encoding/json"
	"fmt"
	"time"

	nc "github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Message is a received pub/sub message.
type Message struct {
	Subject string
	Reply   string
	Data    []byte
}

// Client wraps a NATS connection with JSON publish and subscribe convenience
// methods; the self-healing incident manager and escalation router publish
// incident and escalation events through it.
type Client struct {
	conn     *nc.Conn
	clientID string
	log      *zap.Logger
}

// NewClient dials the broker with reconnect handling. clientID identifies
// the publisher in logs, e.g. "gate", "selfheal", "trust".
func NewClient(url, clientID string, log *zap.Logger) (*Client, error) {
	if log == nil {
		log = zap.NewNop()
	}
	opts := []nc.Option{
		nc.Name(clientID),
		nc.ReconnectWait(2 * time.Second),
		nc.MaxReconnects(-1),
		nc.DisconnectErrHandler(func(conn *nc.Conn, err error) {
			if err != nil {
				log.Warn("transport disconnected", zap.String("client", clientID), zap.Error(err))
			}
		}),
		nc.ReconnectHandler(func(conn *nc.Conn) {
			log.Info("transport reconnected", zap.String("client", clientID), zap.String("url", conn.ConnectedUrl()))
		}),
		nc.ClosedHandler(func(conn *nc.Conn) {
			log.Info("transport closed", zap.String("client", clientID))
		}),
	}

	conn, err := nc.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("transport: connect: %w", err)
	}

	return &Client{conn: conn, clientID: clientID, log: log}, nil
}

// ClientID returns the identifier this client registered with.
func (c *Client) ClientID() string {
	return c.clientID
}

// Close closes the underlying connection.
func (c *Client) Close() {
	if c.conn != nil {
		c.conn.Close()
	}
}

// Publish sends a raw payload to a subject.
func (c *Client) Publish(subject string, data []byte) error {
	if err := c.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("transport: publish %s: %w", subject, err)
	}
	return nil
}

// PublishJSON marshals v and publishes it.
func (c *Client) PublishJSON(subject string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("transport: marshal for %s: %w", subject, err)
	}
	return c.Publish(subject, data)
}

// Subscribe registers an asynchronous handler for a subject.
func (c *Client) Subscribe(subject string, handler func(*Message)) (*nc.Subscription, error) {
	sub, err := c.conn.Subscribe(subject, func(msg *nc.Msg) {
		handler(&Message{Subject: msg.Subject, Reply: msg.Reply, Data: msg.Data})
	})
	if err != nil {
		return nil, fmt.Errorf("transport: subscribe %s: %w", subject, err)
	}
	return sub, nil
}

// QueueSubscribe registers a load-balanced subscription within a queue group,
// used so multiple escalation-router instances share incident traffic.
func (c *Client) QueueSubscribe(subject, queue string, handler func(*Message)) (*nc.Subscription, error) {
	sub, err := c.conn.QueueSubscribe(subject, queue, func(msg *nc.Msg) {
		handler(&Message{Subject: msg.Subject, Reply: msg.Reply, Data: msg.Data})
	})
	if err != nil {
		return nil, fmt.Errorf("transport: queue subscribe %s: %w", subject, err)
	}
	return sub, nil
}

// Flush blocks until buffered publishes reach the broker.
func (c *Client) Flush() error {
	if err := c.conn.Flush(); err != nil {
		return fmt.Errorf("transport: flush: %w", err)
	}
	return nil
}

// IsConnected reports whether the underlying connection is live.
func (c *Client) IsConnected() bool {
	return c.conn != nil && c.conn.IsConnected()
}
