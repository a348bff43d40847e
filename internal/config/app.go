package config

import (
	"context"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"

	"github.com/airealtor/recall/pkg/log"
)

type AppConfig struct {
	RuntimePath string `env:"RECALL_RUNTIME_PATH" envDefault:".recall"`

	// Database file inside the runtime dir
	DatabaseFile string `env:"RECALL_DATABASE_FILE" envDefault:"recall.db"`
}

func NewAppConfig(ctx context.Context) *AppConfig {
	c := &AppConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse App config")
	}
	return c
}

// GetRuntimePath anchors a relative runtime dir under the user's home, the
// same way the package-level GetRuntimePath does.
func (c AppConfig) GetRuntimePath() string {
	path := c.RuntimePath
	if !filepath.IsAbs(path) {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path)
	}
	return path
}

func (c AppConfig) GetDatabasePath() string {
	return filepath.Join(c.GetRuntimePath(), c.DatabaseFile)
}
