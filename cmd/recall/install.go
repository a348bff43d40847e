package main

import (
	"fmt"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/airealtor/recall/internal/config"
	"github.com/airealtor/recall/internal/service/installer"
	"github.com/airealtor/recall/internal/storage/sqlite"
	"github.com/airealtor/recall/pkg/log"
)

var installCmd = &cobra.Command{
	Use:           "install",
	Short:         "Set up the runtime directory interactively",
	SilenceUsage:  true,
	SilenceErrors: false,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		// Setup logger
		var flushLog func()
		ctx, flushLog = setupLogger(ctx)
		defer flushLog()

		logger := log.FromCtx(ctx)
		logger.Info().Msg("starting setup")

		// run wizard (includes save step)
		if _, err := installer.RunWizard(); err != nil {
			return err
		}

		// Load the newly created .env file so the config sees the values
		runtimePath := config.GetRuntimePath()
		envPath := filepath.Join(runtimePath, ".env")
		if err := godotenv.Load(envPath); err != nil {
			logger.Warn().Err(err).Str("path", envPath).Msg("failed to load .env file")
		}

		// Create the database up front so the first assistant session
		// doesn't pay for migrations.
		appCfg := config.NewAppConfig(ctx)
		db, err := sqlite.NewDB(ctx, appCfg.GetDatabasePath())
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer db.Close()

		logger.Info().Msgf("initialized runtime directory at: %s", runtimePath)
		logger.Info().Msg("Setup complete! Run 'recall serve' or point your assistant at 'recall mcp'.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(installCmd)
}
