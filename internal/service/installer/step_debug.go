package installer

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// DebugStep selects the default logging level.
type DebugStep struct {
	choices []string
	cursor  int
}

func NewDebugStep() Step {
	return &DebugStep{
		choices: []string{"Info (recommended)", "Debug"},
		cursor:  0,
	}
}

func (s *DebugStep) Init() tea.Cmd {
	return nil
}

func (s *DebugStep) Update(msg tea.Msg, state *SetupState, width, height int) (Step, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if s.cursor > 0 {
				s.cursor--
			}
		case "down", "j":
			if s.cursor < len(s.choices)-1 {
				s.cursor++
			}
		case "enter":
			if s.cursor == 1 {
				state.EnvVars["RECALL_DEBUG"] = "1"
			} else {
				state.EnvVars["RECALL_DEBUG"] = "0"
			}
			return nil, nil
		}
	}
	return s, nil
}

func (s *DebugStep) View(state *SetupState) string {
	var b strings.Builder
	b.WriteString("Select the logging level:\n\n")
	for i, choice := range s.choices {
		cursor := " "
		if s.cursor == i {
			cursor = "❯"
			b.WriteString(selStyle.Render(fmt.Sprintf("%s %s", cursor, choice)) + "\n")
		} else {
			b.WriteString(itemStyle.Render(fmt.Sprintf("%s %s", cursor, choice)) + "\n")
		}
	}
	b.WriteString("\n(press ctrl+c to quit)\n")
	return b.String()
}
