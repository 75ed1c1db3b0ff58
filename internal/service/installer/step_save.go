package installer

import (
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sandevgo/letterdesk/internal/config"
	"github.com/sandevgo/letterdesk/pkg/env"
)

// SaveEnvStep writes the collected configuration to the .env file.
type SaveEnvStep struct {
	err error
}

func NewSaveEnvStep() Step {
	return &SaveEnvStep{}
}

func (s *SaveEnvStep) Init() tea.Cmd {
	return next
}

func (s *SaveEnvStep) Update(msg tea.Msg, state *InstallState, width, height int) (Step, tea.Cmd) {
	if s.err != nil {
		return s, nil
	}
	if err := SaveEnv(state); err != nil {
		s.err = err
		return s, nil
	}
	return nil, nil
}

func (s *SaveEnvStep) View(state *InstallState) string {
	if s.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v", s.err)) + "\n\n(press ctrl+c to quit)\n"
	}
	return "Saving configuration...\n"
}

// SaveEnv renders the collected answers over the config defaults and writes
// them to <runtime>/.env. An existing file is never overwritten.
func SaveEnv(state *InstallState) error {
	cfg, err := config.ParseFrom(state.EnvVars)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	cfg.RuntimePath = state.RuntimePath

	content, err := env.MarshalEnvWithSecrets(cfg)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Join(state.RuntimePath, "prompts"), 0755); err != nil {
		return fmt.Errorf("failed to create runtime directory: %w", err)
	}

	envPath := cfg.GetEnvPath()
	f, err := os.OpenFile(envPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		if os.IsExist(err) {
			return fmt.Errorf(".env file already exists at %s", envPath)
		}
		return err
	}
	defer f.Close()

	if _, err := f.WriteString(content); err != nil {
		return fmt.Errorf("failed to write .env: %w", err)
	}
	state.Written = envPath
	return nil
}
