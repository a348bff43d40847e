package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/airealtor/recall/internal/config"
	"github.com/airealtor/recall/internal/transport/mcp"
	"github.com/airealtor/recall/pkg/log"
)

var mcpCmd = &cobra.Command{
	Use:          "mcp",
	Short:        "Serve the memory tools over stdio",
	Long:         `Runs the MCP server on stdin/stdout for assistants that spawn recall as a subprocess. Logs go to stderr so the protocol stream stays clean.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		// logger setup
		var flushLog func()
		ctx, flushLog = setupLogger(ctx)
		defer flushLog()

		logger := log.FromCtx(ctx)

		if err := initEnv(ctx, config.GetRuntimePath()); err != nil {
			return fmt.Errorf("failed to init env: %w", err)
		}
		appCfg := config.NewAppConfig(ctx)

		db, svc, err := initStorage(ctx, appCfg)
		if err != nil {
			return fmt.Errorf("failed to initialize storage: %w", err)
		}
		defer func() {
			if err := db.Close(); err != nil {
				logger.Error().Err(err).Msg("failed to close database")
			}
		}()

		// Blocks until the assistant closes stdin or we get a signal.
		if err := mcp.NewServer(svc, version).ServeStdio(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("mcp server stopped: %w", err)
		}

		logger.Info().Msg("mcp server has been shut down")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
