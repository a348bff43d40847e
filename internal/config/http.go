package config

import (
	"context"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/airealtor/recall/pkg/log"
)

type HTTPConfig struct {
	Addr        string        `env:"RECALL_HTTP_ADDR" envDefault:":8080"`
	CORSOrigins []string      `env:"RECALL_CORS_ORIGINS" envSeparator:"," envDefault:"*"`
	ReadTimeout time.Duration `env:"RECALL_HTTP_READ_TIMEOUT" envDefault:"15s"`
	IdleTimeout time.Duration `env:"RECALL_HTTP_IDLE_TIMEOUT" envDefault:"60s"`

	// Grace period for in-flight requests on shutdown
	ShutdownTimeout time.Duration `env:"RECALL_HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

func NewHTTPConfig(ctx context.Context) *HTTPConfig {
	c := &HTTPConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse HTTP config")
	}
	return c
}
