package installer

import (
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/airealtor/recall/internal/config"
	"github.com/airealtor/recall/pkg/env"
)

// FinalizationStep fills in defaults for anything left blank.
type FinalizationStep struct{}

func NewFinalizationStep() Step {
	return &FinalizationStep{}
}

func (s *FinalizationStep) Init() tea.Cmd {
	return func() tea.Msg { return nextMsg{} }
}

func (s *FinalizationStep) Update(msg tea.Msg, state *SetupState, width, height int) (Step, tea.Cmd) {
	if state.EnvVars["RECALL_HTTP_ADDR"] == "" {
		state.EnvVars["RECALL_HTTP_ADDR"] = ":8080"
	}
	if state.EnvVars["RECALL_CORS_ORIGINS"] == "" {
		state.EnvVars["RECALL_CORS_ORIGINS"] = "*"
	}
	if state.EnvVars["RECALL_DEBUG"] == "" {
		state.EnvVars["RECALL_DEBUG"] = "0"
	}

	return nil, nil
}

func (s *FinalizationStep) View(state *SetupState) string {
	return "Finalizing configuration...\n"
}

// envFile fixes the order of the generated .env entries.
type envFile struct {
	Addr        string `env:"RECALL_HTTP_ADDR"`
	CORSOrigins string `env:"RECALL_CORS_ORIGINS"`
	Debug       string `env:"RECALL_DEBUG"`
}

// SaveEnvStep writes the collected configuration to the runtime .env file.
type SaveEnvStep struct {
	err   error
	saved bool
}

func NewSaveEnvStep() Step {
	return &SaveEnvStep{}
}

func (s *SaveEnvStep) Init() tea.Cmd {
	return func() tea.Msg { return nextMsg{} }
}

func (s *SaveEnvStep) Update(msg tea.Msg, state *SetupState, width, height int) (Step, tea.Cmd) {
	if s.saved {
		return nil, nil
	}

	path := config.GetRuntimePath()

	if err := os.MkdirAll(path, 0755); err != nil {
		s.err = fmt.Errorf("failed to create runtime directory: %w", err)
		return s, nil
	}

	envPath := filepath.Join(path, ".env")

	// Never clobber an existing configuration.
	if _, err := os.Stat(envPath); err == nil {
		s.err = fmt.Errorf(".env file already exists at %s", envPath)
		return s, nil
	}

	content := env.MarshalEnv(&envFile{
		Addr:        state.EnvVars["RECALL_HTTP_ADDR"],
		CORSOrigins: state.EnvVars["RECALL_CORS_ORIGINS"],
		Debug:       state.EnvVars["RECALL_DEBUG"],
	})

	if err := os.WriteFile(envPath, []byte(content), 0600); err != nil {
		s.err = err
		return s, nil
	}

	s.saved = true
	return nil, nil
}

func (s *SaveEnvStep) View(state *SetupState) string {
	if s.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v", s.err)) + "\n\n(press ctrl+c to quit)\n"
	}
	if s.saved {
		return "Configuration saved successfully!\n"
	}
	return "Saving configuration...\n"
}
