package installer

import (
	"os"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func enter() tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyEnter} }
func down() tea.KeyMsg  { return tea.KeyMsg{Type: tea.KeyDown} }

func typeText(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// drive feeds msgs to the model. Every step after the first starts with
// the next command, so each transition is followed by a nextMsg.
func drive(t *testing.T, m model, msgs ...tea.Msg) model {
	t.Helper()

	for _, msg := range msgs {
		before := m.currentStep
		out, _ := m.Update(msg)
		m = out.(model)
		for m.currentStep != before && m.currentStep < len(m.steps) {
			before = m.currentStep
			out, _ = m.Update(nextMsg{})
			m = out.(model)
		}
	}
	return m
}

func readEnv(t *testing.T, dir string) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join(dir, ".env"))
	require.NoError(t, err)
	return string(b)
}

func TestWizard_Flows(t *testing.T) {
	tests := []struct {
		name     string
		msgs     []tea.Msg
		provider string
		contains []string
	}{
		{
			name:     "openrouter_with_default_model",
			msgs:     []tea.Msg{enter(), typeText("sk-or-v1-abc"), enter(), enter()},
			provider: "openrouter",
			contains: []string{
				"LLM_PROVIDER=openrouter",
				"OPENROUTER_API_KEY=sk-or-v1-abc",
				"LLM_MODEL=google/gemma-3-27b-it:free",
			},
		},
		{
			name:     "anthropic_custom_model",
			msgs:     []tea.Msg{down(), down(), enter(), typeText("sk-ant-1"), enter(), typeText("claude-x"), enter()},
			provider: "anthropic",
			contains: []string{
				"LLM_PROVIDER=anthropic",
				"ANTHROPIC_API_KEY=sk-ant-1",
				"LLM_MODEL=claude-x",
			},
		},
		{
			name:     "ollama_skips_key_and_uses_default_url",
			msgs:     []tea.Msg{down(), down(), down(), enter(), enter(), enter(), enter()},
			provider: "ollama",
			contains: []string{
				"LLM_PROVIDER=ollama",
				"OLLAMA_BASE_URL=http://localhost:11434",
				"# OLLAMA_API_KEY=",
				"LLM_MODEL=llama3.1",
			},
		},
		{
			name: "custom_requires_url",
			msgs: []tea.Msg{
				down(), down(), down(), down(), enter(),
				enter(),
				enter(), // empty url is refused
				typeText("https://llm.internal/v1/"), enter(),
				typeText("mixtral"), enter(),
			},
			provider: "custom",
			contains: []string{
				"LLM_PROVIDER=custom",
				"CUSTOM_OPENAI_BASE_URL=https://llm.internal/v1\n",
				"LLM_MODEL=mixtral",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			m := newModel(NewInstallState(dir), getSteps())
			m = drive(t, m, tt.msgs...)

			assert.False(t, m.quitting)
			assert.Equal(t, len(m.steps), m.currentStep)
			assert.Equal(t, tt.provider, m.state.Provider)
			assert.Equal(t, filepath.Join(dir, ".env"), m.state.Written)

			content := readEnv(t, dir)
			for _, want := range tt.contains {
				assert.Contains(t, content, want)
			}
			assert.DirExists(t, filepath.Join(dir, "prompts"))
		})
	}
}

func TestAPIKeyStep_RequiredKeyBlocksEmptyEnter(t *testing.T) {
	state := NewInstallState(t.TempDir())
	state.Provider = "openai"

	var step Step = NewAPIKeyStep()
	step, _ = step.Update(nextMsg{}, state, 80, 24)
	require.NotNil(t, step)

	step, _ = step.Update(enter(), state, 80, 24)
	require.NotNil(t, step, "empty key must not advance")
	assert.NotContains(t, state.EnvVars, "OPENAI_API_KEY")
	assert.Contains(t, step.View(state), "OpenAI API Key")
}

func TestWizard_CtrlCQuits(t *testing.T) {
	m := newModel(NewInstallState(t.TempDir()), getSteps())
	out, _ := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	m = out.(model)

	assert.True(t, m.quitting)
	assert.Equal(t, "Setup cancelled.\n", m.View())
}

func TestSaveEnv(t *testing.T) {
	t.Run("refuses_existing_file", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("KEEP=1\n"), 0600))

		state := NewInstallState(dir)
		state.EnvVars["LLM_PROVIDER"] = "openai"

		err := SaveEnv(state)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already exists")
		assert.Equal(t, "KEEP=1\n", readEnv(t, dir))
	})

	t.Run("invalid_values", func(t *testing.T) {
		state := NewInstallState(t.TempDir())
		state.EnvVars["MEMORY_WINDOW_SIZE"] = "0"

		err := SaveEnv(state)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid configuration")
	})

	t.Run("file_mode", func(t *testing.T) {
		dir := t.TempDir()
		state := NewInstallState(dir)
		state.EnvVars["OPENAI_API_KEY"] = "sk-1"

		require.NoError(t, SaveEnv(state))
		fi, err := os.Stat(filepath.Join(dir, ".env"))
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), fi.Mode().Perm())
		assert.Contains(t, readEnv(t, dir), "LETTERDESK_RUNTIME_PATH="+dir)
	})
}

func TestWizard_View(t *testing.T) {
	dir := t.TempDir()
	m := newModel(NewInstallState(dir), getSteps())

	view := m.View()
	assert.Contains(t, view, "step 1 of 5")
	assert.Contains(t, view, "OpenRouter")

	m = drive(t, m, enter(), typeText("sk-or-v1-abc"), enter(), enter())
	assert.Equal(t, "Configuration saved to "+filepath.Join(dir, ".env")+"\n", m.View())
}
