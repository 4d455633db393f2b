package tcp

import (
	"fmt"
	"net"
	"sync"

	"gitlab.com/pixelgrid.net/internal/core/ports/primary"
	"gitlab.com/pixelgrid.net/internal/protocol"
)

// Client is an outbound connection to the master. The socket is
// symmetric: the same reader loop that services server-side
// connections delivers the peer's frames here, so one connection
// carries requests out and responses in.
type Client struct {
	conn     net.Conn
	events   chan Event
	stopCh   chan struct{}
	stopOnce sync.Once
	logger   primary.Logger
}

// Dial connects to the master and starts the reader.
func Dial(address string, logger primary.Logger) (*Client, error) {
	conn, err := net.Dial("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", address, err)
	}

	c := &Client{
		conn:   conn,
		events: make(chan Event, defaultEventBuffer),
		stopCh: make(chan struct{}),
		logger: logger,
	}

	go readLoop(conn, c.events, c.stopCh, logger)

	return c, nil
}

// Events returns the inbound frame channel.
func (c *Client) Events() <-chan Event {
	return c.events
}

// Send writes one message to the peer.
func (c *Client) Send(msg *protocol.NetworkMessage) error {
	return SendMessage(c.conn, msg)
}

// LocalAddr returns the local endpoint of the connection.
func (c *Client) LocalAddr() net.Addr {
	return c.conn.LocalAddr()
}

// Close stops the reader and closes the connection.
func (c *Client) Close() error {
	c.stopOnce.Do(func() { close(c.stopCh) })
	return c.conn.Close()
}
