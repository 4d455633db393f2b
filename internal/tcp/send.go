package tcp

import (
	"fmt"
	"net"

	"gitlab.com/pixelgrid.net/internal/protocol"
)

// SendMessage serializes msg and writes it as one frame on conn.
// Callers serialize their own writes per connection. The worker runtime
// sends from a single goroutine; the dispatcher sends from its event
// loop and, when the pending sweep is enabled, also from the sweep
// goroutine while holding its mutex.
func SendMessage(conn net.Conn, msg *protocol.NetworkMessage) error {
	body, err := msg.Encode()
	if err != nil {
		return err
	}
	if err := WriteFrame(conn, body); err != nil {
		return fmt.Errorf("failed to send %s: %w", msg.Type, err)
	}
	return nil
}
