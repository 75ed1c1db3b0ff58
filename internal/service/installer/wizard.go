package installer

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	itemStyle  = lipgloss.NewStyle().PaddingLeft(2)
	selStyle   = lipgloss.NewStyle().PaddingLeft(2).Foreground(lipgloss.Color("5"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
)

// Step represents a single step in the setup wizard. Update returns nil
// when the step is done or does not apply.
type Step interface {
	Init() tea.Cmd
	Update(msg tea.Msg, state *InstallState, width, height int) (Step, tea.Cmd)
	View(state *InstallState) string
}

func getSteps() []Step {
	return []Step{
		NewProviderStep(),
		NewAPIKeyStep(),
		NewBaseURLStep(),
		NewModelStep(),
		NewSaveEnvStep(),
	}
}

type nextMsg struct{}

// next makes a step receive an Update right after Init, so steps that do
// not apply can skip themselves without a key press.
func next() tea.Msg { return nextMsg{} }

// model is the main Bubble Tea model that orchestrates the steps
type model struct {
	steps       []Step
	currentStep int
	state       *InstallState
	quitting    bool
	width       int
	height      int
}

func newModel(state *InstallState, steps []Step) model {
	return model{
		steps: steps,
		state: state,
	}
}

func (m model) Init() tea.Cmd {
	if len(m.steps) > 0 {
		return m.steps[0].Init()
	}
	return tea.Quit
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.quitting {
		return m, tea.Quit
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}
	}

	if m.currentStep >= len(m.steps) {
		return m, tea.Quit
	}

	nextStep, cmd := m.steps[m.currentStep].Update(msg, m.state, m.width, m.height)
	if nextStep == nil {
		m.currentStep++
		if m.currentStep >= len(m.steps) {
			return m, tea.Quit
		}
		return m, m.steps[m.currentStep].Init()
	}

	m.steps[m.currentStep] = nextStep
	return m, cmd
}

func (m model) View() string {
	switch {
	case m.quitting:
		return "Setup cancelled.\n"
	case m.currentStep >= len(m.steps):
		return fmt.Sprintf("Configuration saved to %s\n", m.state.Written)
	}

	header := titleStyle.Render("Setting up LetterDesk") +
		itemStyle.Render(fmt.Sprintf("step %d of %d", m.currentStep+1, len(m.steps)))
	return header + "\n\n" + m.steps[m.currentStep].View(m.state)
}

// RunWizard runs the interactive setup and writes <runtimePath>/.env.
func RunWizard(runtimePath string) (*InstallState, error) {
	p := tea.NewProgram(newModel(NewInstallState(runtimePath), getSteps()), tea.WithAltScreen())
	m, err := p.Run()
	if err != nil {
		return nil, err
	}

	final := m.(model)
	if final.quitting {
		return nil, fmt.Errorf("setup interrupted")
	}
	return final.state, nil
}
