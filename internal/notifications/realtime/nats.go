package realtime

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"

	"freightline/internal/types"
)

// Compile-time assertion that NATSConnector implements RealtimeConnector.
var _ types.RealtimeConnector = (*NATSConnector)(nil)

// NATSConnector opens NATS connections for the realtime dispatcher. It is
// constructed once at process start and injected; the connector holds no
// connection state itself, matching the one-connection-per-publish model.
type NATSConnector struct {
	url   string
	token string
	name  string
}

// NewNATSConnector creates a connector for the given server address and
// auth token.
func NewNATSConnector(url, token string) *NATSConnector {
	return &NATSConnector{
		url:   url,
		token: token,
		name:  "freightline-notifier",
	}
}

// Connect dials the NATS server.
func (c *NATSConnector) Connect(ctx context.Context) (types.RealtimeConn, error) {
	opts := []nats.Option{nats.Name(c.name)}
	if c.token != "" {
		opts = append(opts, nats.Token(c.token))
	}

	nc, err := nats.Connect(c.url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect %s: %w", c.url, err)
	}
	return &natsConn{nc: nc}, nil
}

type natsConn struct {
	nc *nats.Conn
}

func (c *natsConn) Publish(channel string, data []byte) error {
	return c.nc.Publish(channel, data)
}

// Drain flushes buffered publishes and closes the connection.
func (c *natsConn) Drain() error {
	return c.nc.Drain()
}
