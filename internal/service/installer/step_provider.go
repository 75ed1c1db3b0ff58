package installer

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

type providerChoice struct {
	id    string
	title string
}

var providerChoices = []providerChoice{
	{"openrouter", "OpenRouter"},
	{"openai", "OpenAI"},
	{"anthropic", "Anthropic"},
	{"ollama", "Ollama (local)"},
	{"custom", "Custom OpenAI-compatible endpoint"},
}

// ProviderStep allows selection of the AI provider
type ProviderStep struct {
	cursor int
}

func NewProviderStep() Step {
	return &ProviderStep{}
}

func (s *ProviderStep) Init() tea.Cmd {
	return nil
}

func (s *ProviderStep) Update(msg tea.Msg, state *InstallState, width, height int) (Step, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return s, nil
	}

	switch key.String() {
	case "up", "k":
		if s.cursor > 0 {
			s.cursor--
		}
	case "down", "j":
		if s.cursor < len(providerChoices)-1 {
			s.cursor++
		}
	case "enter":
		state.Provider = providerChoices[s.cursor].id
		state.EnvVars["LLM_PROVIDER"] = state.Provider
		return nil, nil
	}
	return s, nil
}

func (s *ProviderStep) View(state *InstallState) string {
	var b strings.Builder
	b.WriteString("Select your AI provider:\n\n")
	for i, choice := range providerChoices {
		if s.cursor == i {
			b.WriteString(selStyle.Render(fmt.Sprintf("> %s", choice.title)) + "\n")
		} else {
			b.WriteString(itemStyle.Render(fmt.Sprintf("  %s", choice.title)) + "\n")
		}
	}
	b.WriteString("\n(press ctrl+c to quit)\n")
	return b.String()
}
