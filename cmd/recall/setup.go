package main

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/airealtor/recall/internal/config"
	"github.com/airealtor/recall/internal/observability"
	"github.com/airealtor/recall/internal/service/memory"
	"github.com/airealtor/recall/internal/storage/sqlite"
	"github.com/airealtor/recall/internal/transport/mcp"
	"github.com/airealtor/recall/internal/transport/rest"
	"github.com/airealtor/recall/pkg/log"
	"github.com/airealtor/recall/pkg/srv"
)

// NewServices assembles what recall serve runs: storage with its cleanup,
// and one HTTP server carrying the REST API, metrics, probes and the
// streamable MCP endpoint.
func NewServices(ctx context.Context) []srv.Service {
	logger := log.FromCtx(ctx)
	services := make([]srv.Service, 0)

	// init env
	if err := initEnv(ctx, config.GetRuntimePath()); err != nil {
		logger.Fatal().Err(err).Msg("failed to init env")
	}

	// 1. Configuration
	appCfg := config.NewAppConfig(ctx)
	httpCfg := config.NewHTTPConfig(ctx)

	// 2. Storage + memory service
	db, svc, err := initStorage(ctx, appCfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize storage")
	}
	services = append(services, srv.NewCleanup(db.Close))

	// 3. HTTP transport: REST + metrics + MCP over streamable HTTP
	collector := observability.NewCollector("recall")
	tools := mcp.NewServer(svc, version)
	router := rest.NewRouter(svc, collector, httpCfg.CORSOrigins, tools.HTTPHandler())
	services = append(services, rest.NewServer(ctx, httpCfg, router))

	return services
}

// initStorage opens the database (migrating on open) and wires the memory
// service over the graph repository.
func initStorage(ctx context.Context, cfg *config.AppConfig) (*sql.DB, *memory.Memory, error) {
	db, err := sqlite.NewDB(ctx, cfg.GetDatabasePath())
	if err != nil {
		return nil, nil, err
	}
	return db, memory.NewMemory(sqlite.NewMemoryRepo(db), nil), nil
}

func initEnv(ctx context.Context, runtimePath string) error {
	logger := log.FromCtx(ctx)
	envFile := filepath.Join(runtimePath, ".env")

	if _, err := os.Stat(envFile); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	if err := godotenv.Load(envFile); err != nil {
		logger.Warn().Err(err).Str("path", envFile).Msg("failed to load .env file")
		return err
	}

	logger.Debug().Str("path", envFile).Msg("loaded .env file")
	return nil
}
