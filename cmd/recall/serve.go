package main

import (
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/airealtor/recall/pkg/log"
	"github.com/airealtor/recall/pkg/srv"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the memory graph over HTTP",
	Long:  `Starts the HTTP stack: the REST API under /api/v1, health probes, Prometheus metrics and the streamable MCP endpoint at /mcp.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		// logger setup
		var flushLog func()
		ctx, flushLog = setupLogger(ctx)
		defer flushLog()

		logger := log.FromCtx(ctx)
		logger.Info().Msg("starting recall")

		services := NewServices(ctx)

		// Start services
		srv.StartServices(ctx, services)

		// Wait for shutdown signal
		srv.ShutdownServices(ctx, services)
		logger.Info().Msg("recall has been shut down gracefully")

		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
