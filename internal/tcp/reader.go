package tcp

import (
	"bufio"
	"errors"
	"io"
	"net"
	"strconv"

	"gitlab.com/pixelgrid.net/internal/core/ports/primary"
	"gitlab.com/pixelgrid.net/internal/protocol"
)

// Event is what the transport publishes for the dispatcher to consume:
// a decoded message together with the connection it arrived on, or a
// terminal connection error (Msg nil, Err set). The transport owns the
// channel; consumers own their loop.
type Event struct {
	Msg  *protocol.NetworkMessage
	Conn net.Conn
	Err  error
}

// readLoop services one connection until error, EOF or stop. Frames are
// decoded, stamped with the observed remote endpoint and published in
// arrival order. An oversized frame is dropped and the loop continues;
// any other read or parse failure terminates the connection.
func readLoop(conn net.Conn, events chan<- Event, stopCh <-chan struct{}, logger primary.Logger) {
	defer conn.Close()

	br := bufio.NewReader(conn)
	remoteIp, remotePort := splitAddr(conn.RemoteAddr())

	for {
		select {
		case <-stopCh:
			return
		default:
		}

		body, err := ReadFrame(br)
		if errors.Is(err, ErrFrameTooLarge) {
			logger.Warn("Dropping oversized frame", "remote", conn.RemoteAddr().String())
			continue
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				logger.Error("Failed to read frame", "remote", conn.RemoteAddr().String(), "error", err)
			}
			publish(events, stopCh, Event{Conn: conn, Err: err})
			return
		}

		msg, err := protocol.DecodeMessage(body)
		if err != nil {
			logger.Error("Failed to decode message", "remote", conn.RemoteAddr().String(), "error", err)
			publish(events, stopCh, Event{Conn: conn, Err: err})
			return
		}

		// Sender fields are never trusted from the wire.
		msg.SenderIp = remoteIp
		msg.SenderPort = remotePort

		if !publish(events, stopCh, Event{Msg: msg, Conn: conn}) {
			return
		}
	}
}

// publish delivers an event unless the transport is stopping.
func publish(events chan<- Event, stopCh <-chan struct{}, ev Event) bool {
	select {
	case events <- ev:
		return true
	case <-stopCh:
		return false
	}
}

func splitAddr(addr net.Addr) (string, int) {
	host, portStr, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String(), 0
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return host, 0
	}
	return host, port
}
