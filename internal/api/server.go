package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"freightline/internal/types"
)

// Server owns the HTTP ingest surface. It wires the router, middleware and
// handlers; lifecycle (listen, shutdown) belongs to the caller via Run.
type Server struct {
	dispatcher Dispatcher
	history    HistorySource
	logger     types.Logger
	httpServer *http.Server
}

// NewServer builds the server and its route table.
func NewServer(addr string, dispatcher Dispatcher, history HistorySource, logger types.Logger) *Server {
	s := &Server{
		dispatcher: dispatcher,
		history:    history,
		logger:     logger,
	}

	r := chi.NewRouter()
	r.Use(Recoverer(logger))
	r.Use(RequestID)
	r.Use(RequestLogger(logger))

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1/notifications", func(r chi.Router) {
		r.Post("/dispatch", s.handleDispatch)
		r.Get("/", s.handleHistory)
	})

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return s
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("Run: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("Run: shutdown: %w", err)
	}
	return nil
}
