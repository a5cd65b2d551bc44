// Package server assembles the textflow HTTP surface: routing, middleware,
// and lifecycle for the normalization endpoints.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/textflow-ai/textflow/config"
	"github.com/textflow-ai/textflow/errors"
	"github.com/textflow-ai/textflow/pipeline"
	"github.com/textflow-ai/textflow/server/handlers"
	"github.com/textflow-ai/textflow/server/middleware"
)

// NewRouter builds the chi router with the standard middleware chain and
// the normalize endpoints. The metrics handler is mounted when metrics are
// provided.
func NewRouter(stage pipeline.Stage[any, string], m *pipeline.Metrics, logger *zap.Logger) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logging(logger))
	r.Use(errors.ErrorHandler(logger))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	if m != nil {
		r.Method(http.MethodGet, "/metrics", m.Handler())
	}

	r.Route("/v1", func(r chi.Router) {
		r.Method(http.MethodPost, "/normalize", handlers.NewNormalizeHandler(stage, logger))
		r.Method(http.MethodPost, "/normalize/stream", handlers.NewStreamHandler(stage, logger))
	})

	return r
}

// Server wraps the HTTP server with lifecycle management.
type Server struct {
	httpServer *http.Server
	cfg        config.ServerConfig
	logger     *zap.Logger
}

// NewServer creates a server from configuration and a handler.
func NewServer(cfg config.ServerConfig, handler http.Handler, logger *zap.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:           fmt.Sprintf(":%d", cfg.Port),
			Handler:        handler,
			ReadTimeout:    cfg.ReadTimeout,
			WriteTimeout:   cfg.WriteTimeout,
			MaxHeaderBytes: cfg.MaxHeaderBytes,
		},
		cfg:    cfg,
		logger: logger,
	}
}

// Start starts the server and blocks until ctx is cancelled or the listener
// fails. Cancellation triggers a graceful shutdown bounded by the
// configured shutdown timeout.
func (s *Server) Start(ctx context.Context) error {
	errChan := make(chan error, 1)

	go func() {
		s.logger.Info("Server started", zap.String("address", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()

		s.logger.Info("Shutting down server")
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error during server shutdown: %w", err)
		}
		return nil
	case err := <-errChan:
		return err
	}
}
