package installer

import (
	"fmt"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// ListenStep collects the HTTP listen address for recall serve.
type ListenStep struct {
	input textinput.Model
}

func NewListenStep() Step {
	input := textinput.New()
	input.Focus()
	input.CharLimit = 64
	input.Width = 40
	input.Placeholder = ":8080"

	return &ListenStep{input: input}
}

func (s *ListenStep) Init() tea.Cmd {
	return textinput.Blink
}

func (s *ListenStep) Update(msg tea.Msg, state *SetupState, width, height int) (Step, tea.Cmd) {
	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "enter" {
			state.EnvVars["RECALL_HTTP_ADDR"] = s.input.Value()
			return nil, nil
		}
	}
	return s, cmd
}

func (s *ListenStep) View(state *SetupState) string {
	return fmt.Sprintf("HTTP listen address for recall serve (press Enter for :8080):\n\n%s\n\n(press enter to confirm)\n",
		s.input.View())
}

// OriginsStep collects the allowed CORS origins for the CRM frontend.
type OriginsStep struct {
	input textinput.Model
}

func NewOriginsStep() Step {
	input := textinput.New()
	input.Focus()
	input.CharLimit = 255
	input.Width = 40
	input.Placeholder = "https://crm.example.com,https://app.example.com"

	return &OriginsStep{input: input}
}

func (s *OriginsStep) Init() tea.Cmd {
	return textinput.Blink
}

func (s *OriginsStep) Update(msg tea.Msg, state *SetupState, width, height int) (Step, tea.Cmd) {
	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "enter" {
			state.EnvVars["RECALL_CORS_ORIGINS"] = s.input.Value()
			return nil, nil
		}
	}
	return s, cmd
}

func (s *OriginsStep) View(state *SetupState) string {
	return fmt.Sprintf("Allowed CORS origins, comma separated (press Enter to allow any):\n\n%s\n\n(press enter to confirm)\n",
		s.input.View())
}
