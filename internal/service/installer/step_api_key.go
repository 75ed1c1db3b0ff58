package installer

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

type keyField struct {
	envKey      string
	title       string
	placeholder string
	optional    bool
}

var apiKeys = map[string]keyField{
	"openrouter": {"OPENROUTER_API_KEY", "OpenRouter API Key", "sk-or-v1-...", false},
	"openai":     {"OPENAI_API_KEY", "OpenAI API Key", "sk-...", false},
	"anthropic":  {"ANTHROPIC_API_KEY", "Anthropic API Key", "sk-ant-...", false},
	"ollama":     {"OLLAMA_API_KEY", "Ollama API Key", "press Enter to skip", true},
	"custom":     {"CUSTOM_OPENAI_API_KEY", "API Key", "press Enter to skip", true},
}

// APIKeyStep collects the key for the selected provider.
type APIKeyStep struct {
	input textinput.Model
	field keyField
	ready bool
}

func NewAPIKeyStep() Step {
	return &APIKeyStep{}
}

func (s *APIKeyStep) Init() tea.Cmd {
	return next
}

func (s *APIKeyStep) Update(msg tea.Msg, state *InstallState, width, height int) (Step, tea.Cmd) {
	if !s.ready {
		field, ok := apiKeys[state.Provider]
		if !ok {
			return nil, nil
		}
		s.field = field
		s.input = textinput.New()
		s.input.Focus()
		s.input.CharLimit = 255
		s.input.Width = 40
		s.input.Placeholder = field.placeholder
		if !field.optional {
			s.input.EchoMode = textinput.EchoPassword
			s.input.EchoCharacter = '•'
		}
		s.ready = true
		return s, textinput.Blink
	}

	if key, ok := msg.(tea.KeyMsg); ok && key.String() == "enter" {
		val := strings.TrimSpace(s.input.Value())
		if val == "" && !s.field.optional {
			return s, nil
		}
		if val != "" {
			state.EnvVars[s.field.envKey] = val
		}
		return nil, nil
	}

	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)
	return s, cmd
}

func (s *APIKeyStep) View(state *InstallState) string {
	if !s.ready {
		return "Loading...\n"
	}

	hint := ""
	if s.field.optional {
		hint = " (optional)"
	}
	return fmt.Sprintf("Enter your %s%s:\n\n%s\n\n(press enter to confirm)\n", s.field.title, hint, s.input.View())
}
