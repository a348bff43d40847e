package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/airealtor/recall/internal/config"
	"github.com/airealtor/recall/internal/storage/sqlite"
	"github.com/airealtor/recall/pkg/log"
)

var migrateCmd = &cobra.Command{
	Use:          "migrate",
	Short:        "Apply pending schema migrations",
	Long:         `Opens the database, applies any pending migrations and reports the schema version. serve and mcp migrate on startup too; this exists for provisioning and upgrades.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		// logger setup
		var flushLog func()
		ctx, flushLog = setupLogger(ctx)
		defer flushLog()

		logger := log.FromCtx(ctx)

		if err := initEnv(ctx, config.GetRuntimePath()); err != nil {
			return fmt.Errorf("failed to init env: %w", err)
		}
		appCfg := config.NewAppConfig(ctx)

		// NewDB migrates on open.
		db, err := sqlite.NewDB(ctx, appCfg.GetDatabasePath())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()

		schemaVersion, err := sqlite.SchemaVersion(ctx, db)
		if err != nil {
			return fmt.Errorf("failed to read schema version: %w", err)
		}

		logger.Info().
			Int64("version", schemaVersion).
			Str("path", appCfg.GetDatabasePath()).
			Msg("database schema is up to date")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
