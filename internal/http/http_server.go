package http

// this is entry point of the http status handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"gitlab.com/pixelgrid.net/internal/core/ports/primary"
	"gitlab.com/pixelgrid.net/internal/core/services/dispatch"
	"gitlab.com/pixelgrid.net/internal/handlers/status"
)

// Server exposes the master's read-only status API next to the TCP
// dispatch port.
type Server struct {
	router          *mux.Router
	srv             *http.Server
	Port            int
	ServiceName     string
	dispatchService dispatch.IDispatchService
	logger          primary.Logger
}

func NewServer(port int, serviceName string, dispatchService dispatch.IDispatchService, logger primary.Logger) *Server {
	return &Server{
		Port:            port,
		ServiceName:     serviceName,
		dispatchService: dispatchService,
		logger:          logger,
	}
}

func (s *Server) Init() error {
	r := mux.NewRouter()
	status.NewHandler(s.dispatchService).Register(r)
	s.router = r
	return nil
}

func (s *Server) Start(ctx context.Context) {
	s.srv = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start the server in a goroutine
	go func() {
		s.logger.Info("HTTP status server listening", "addr", s.srv.Addr, "service", s.ServiceName)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server error", "error", err)
		}
	}()
}

func (s *Server) Stop(ctx context.Context) {
	s.logger.Info("Shutting down http server...")
	if s.srv != nil {
		if err := s.srv.Shutdown(ctx); err != nil {
			s.logger.Error("HTTP server forced to shutdown", "error", err)
		}
	}
}
