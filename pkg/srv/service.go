package srv

import (
	"context"

	"github.com/airealtor/recall/pkg/log"
)

// Service is anything with a blocking Start and a graceful Shutdown.
type Service interface {
	Start(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// StartServices launches every service on its own goroutine. A failed
// start takes the process down; half-running stacks are worse than none.
func StartServices(ctx context.Context, services []Service) {
	logger := log.FromCtx(ctx)
	for _, service := range services {
		go func(service Service) {
			if err := service.Start(ctx); err != nil {
				logger.Fatal().Err(err).Msgf("%T failed to start", service)
			}
		}(service)
	}
}

// ShutdownServices blocks until the context is canceled, then shuts the
// services down in reverse registration order: the HTTP server drains
// in-flight requests before the storage it depends on is closed.
func ShutdownServices(ctx context.Context, services []Service) {
	<-ctx.Done()
	for i := len(services) - 1; i >= 0; i-- {
		if err := services[i].Shutdown(ctx); err != nil {
			log.FromCtx(ctx).Error().Err(err).Msgf("%T failed to shutdown", services[i])
		}
	}
}
