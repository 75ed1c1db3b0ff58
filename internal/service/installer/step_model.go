package installer

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

var defaultModels = map[string]string{
	"openrouter": "google/gemma-3-27b-it:free",
	"openai":     "gpt-4o-mini",
	"anthropic":  "claude-3-5-haiku-latest",
	"ollama":     "llama3.1",
}

// ModelStep asks for the model name, suggesting one per provider.
type ModelStep struct {
	input textinput.Model
	ready bool
}

func NewModelStep() Step {
	return &ModelStep{}
}

func (s *ModelStep) Init() tea.Cmd {
	return next
}

func (s *ModelStep) Update(msg tea.Msg, state *InstallState, width, height int) (Step, tea.Cmd) {
	if !s.ready {
		s.input = textinput.New()
		s.input.Focus()
		s.input.Width = 50
		s.input.Placeholder = defaultModels[state.Provider]
		s.ready = true
		return s, textinput.Blink
	}

	if key, ok := msg.(tea.KeyMsg); ok && key.String() == "enter" {
		val := strings.TrimSpace(s.input.Value())
		if val == "" {
			val = s.input.Placeholder
		}
		if val == "" {
			return s, nil
		}
		state.EnvVars["LLM_MODEL"] = val
		return nil, nil
	}

	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)
	return s, cmd
}

func (s *ModelStep) View(state *InstallState) string {
	if !s.ready {
		return "Loading...\n"
	}
	return "Enter the model name (Enter accepts the suggestion):\n\n" + s.input.View() + "\n\n(press enter to confirm)\n"
}
