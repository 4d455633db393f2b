package tcp

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"gitlab.com/pixelgrid.net/internal/core/ports/primary"
	"gitlab.com/pixelgrid.net/internal/protocol"
)

const defaultEventBuffer = 256

// Server accepts inbound connections from workers and submitters and
// runs one reader goroutine per connection. Decoded frames from every
// connection funnel into a single bounded event channel; frames keep
// per-connection order, nothing is promised across connections.
type Server struct {
	address   string
	listener  net.Listener
	events    chan Event
	stopCh    chan struct{}
	stopOnce  sync.Once
	logger    primary.Logger
	connMutex sync.Mutex
	conns     map[net.Conn]struct{}
	wg        sync.WaitGroup
}

// ServerOption configures a Server
type ServerOption func(*Server)

// WithAddress sets the server address
func WithAddress(address string) ServerOption {
	return func(s *Server) {
		s.address = address
	}
}

// WithEventBuffer sets the capacity of the event channel.
func WithEventBuffer(n int) ServerOption {
	return func(s *Server) {
		s.events = make(chan Event, n)
	}
}

// NewServer creates a new TCP server
func NewServer(logger primary.Logger, options ...ServerOption) *Server {
	server := &Server{
		address: ":9000", // Default address
		events:  make(chan Event, defaultEventBuffer),
		stopCh:  make(chan struct{}),
		logger:  logger,
		conns:   make(map[net.Conn]struct{}),
	}

	for _, option := range options {
		option(server)
	}

	return server
}

// Start starts the TCP server
func (s *Server) Start() error {
	var err error
	s.listener, err = net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("failed to start TCP server: %w", err)
	}

	s.logger.Info("TCP server listening", "address", s.address)

	// Accept connections in a goroutine
	go s.acceptConnections()

	return nil
}

// Events returns the channel the dispatcher consumes.
func (s *Server) Events() <-chan Event {
	return s.events
}

// Addr returns the bound listener address.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop stops accepting, closes every connection and waits for the
// readers to observe the cancellation, up to the context deadline.
func (s *Server) Stop(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.stopCh) })

	if s.listener != nil {
		if err := s.listener.Close(); err != nil {
			s.logger.Error("Failed to close listener", "error", err)
		}
	}

	s.connMutex.Lock()
	for conn := range s.conns {
		if err := conn.Close(); err != nil {
			s.logger.Debug("Failed to close connection", "remote", conn.RemoteAddr().String(), "error", err)
		}
	}
	s.connMutex.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// acceptConnections accepts incoming connections
func (s *Server) acceptConnections() {
	for {
		select {
		case <-s.stopCh:
			return
		default:
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.stopCh:
					return
				default:
					s.logger.Error("Failed to accept connection", "error", err)
					time.Sleep(protocol.ConnectionRetryDelay) // Avoid tight loop on error
					continue
				}
			}

			s.trackConn(conn)
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				defer s.untrackConn(conn)
				readLoop(conn, s.events, s.stopCh, s.logger)
			}()
		}
	}
}

func (s *Server) trackConn(conn net.Conn) {
	s.connMutex.Lock()
	s.conns[conn] = struct{}{}
	s.connMutex.Unlock()
}

func (s *Server) untrackConn(conn net.Conn) {
	s.connMutex.Lock()
	delete(s.conns, conn)
	s.connMutex.Unlock()
}
