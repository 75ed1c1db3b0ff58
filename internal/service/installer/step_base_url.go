package installer

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

type urlField struct {
	envKey   string
	title    string
	fallback string
}

var baseURLs = map[string]urlField{
	"ollama": {"OLLAMA_BASE_URL", "Ollama base URL", "http://localhost:11434"},
	"custom": {"CUSTOM_OPENAI_BASE_URL", "Custom OpenAI base URL", ""},
}

// BaseURLStep asks where self-hosted providers live. Other providers skip it.
type BaseURLStep struct {
	input textinput.Model
	field urlField
	ready bool
}

func NewBaseURLStep() Step {
	return &BaseURLStep{}
}

func (s *BaseURLStep) Init() tea.Cmd {
	return next
}

func (s *BaseURLStep) Update(msg tea.Msg, state *InstallState, width, height int) (Step, tea.Cmd) {
	if !s.ready {
		field, ok := baseURLs[state.Provider]
		if !ok {
			return nil, nil
		}
		s.field = field
		s.input = textinput.New()
		s.input.Focus()
		s.input.Width = 50
		s.input.Placeholder = field.fallback
		if field.fallback == "" {
			s.input.Placeholder = "https://api.example.com"
		}
		s.ready = true
		return s, textinput.Blink
	}

	if key, ok := msg.(tea.KeyMsg); ok && key.String() == "enter" {
		val := strings.TrimRight(strings.TrimSpace(s.input.Value()), "/")
		if val == "" {
			val = s.field.fallback
		}
		if val == "" {
			return s, nil
		}
		state.EnvVars[s.field.envKey] = val
		return nil, nil
	}

	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)
	return s, cmd
}

func (s *BaseURLStep) View(state *InstallState) string {
	if !s.ready {
		return "Loading...\n"
	}
	return fmt.Sprintf("Enter %s:\n\n%s\n\n(press enter to confirm)\n", s.field.title, s.input.View())
}
