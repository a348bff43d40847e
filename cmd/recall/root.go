package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/airealtor/recall/internal/config"
	"github.com/airealtor/recall/internal/service/ui"
	"github.com/airealtor/recall/pkg/log"
)

// version is what MCP clients see during initialization.
const version = "1.0.0"

var (
	debug bool
)

var rootCmd = &cobra.Command{
	Use:   "recall",
	Short: "Recall — Session Memory for the AI Realtor",
	Long:  `Recall keeps what the assistant learned during a session as a typed memory graph and serves it back over MCP and REST.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	// Global flags available to all subcommands
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", config.IsDebug(), "enable debug logging")

	CustomizeHelp(rootCmd)
}

func setupLogger(ctx context.Context) (context.Context, func()) {
	isDebug := debug || config.IsDebug()
	return log.NewContextWithLogger(ctx, isDebug)
}

func CustomizeHelp(rootCmd *cobra.Command) {

	cobra.AddTemplateFunc("StyleTitle", func(s string) string { return ui.TitleStyle.Render(s) })
	cobra.AddTemplateFunc("StyleUsage", func(s string) string { return ui.UsageStyle.Render(s) })
	cobra.AddTemplateFunc("StyleFlag", func(s string) string { return ui.FlagStyle.Render(s) })
	cobra.AddTemplateFunc("StyleDesc", func(s string) string { return ui.DescStyle.Render(s) })

	template := `
{{StyleTitle "USAGE"}}
  {{.UseLine}}
{{if gt (len .Commands) 0}}{{StyleTitle "AVAILABLE COMMANDS"}}
{{range .Commands}}{{if (or .IsAvailableCommand (eq .Name "help"))}}
  {{rpad .Name .NamePadding}} {{StyleDesc .Short}}{{end}}
{{end}}{{end}}
{{if .HasAvailableLocalFlags}}{{StyleTitle "FLAGS"}}
{{.LocalFlags.FlagUsages | trimTrailingWhitespaces}}
{{end}}
`
	rootCmd.SetHelpTemplate(template)
}
