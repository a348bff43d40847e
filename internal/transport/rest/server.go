package rest

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/airealtor/recall/internal/config"
	"github.com/airealtor/recall/pkg/log"
)

// Server runs the REST API as a managed service.
type Server struct {
	httpServer      *http.Server
	shutdownTimeout time.Duration
}

// NewServer builds the HTTP server around the router. The parent context
// becomes the base context of every request, so handlers inherit the
// process logger.
func NewServer(ctx context.Context, cfg *config.HTTPConfig, handler http.Handler) *Server {
	return &Server{
		shutdownTimeout: cfg.ShutdownTimeout,
		httpServer: &http.Server{
			Addr:        cfg.Addr,
			Handler:     handler,
			ReadTimeout: cfg.ReadTimeout,
			IdleTimeout: cfg.IdleTimeout,
			BaseContext: func(net.Listener) context.Context { return ctx },
		},
	}
}

func (s *Server) Start(ctx context.Context) error {
	log.FromCtx(ctx).Info().Str("addr", s.httpServer.Addr).Msg("starting http api")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests. The parent is already canceled when
// the signal arrives, so the grace period runs on a detached context.
func (s *Server) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.shutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}
