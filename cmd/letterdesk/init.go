package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sandevgo/letterdesk/internal/config"
	"github.com/sandevgo/letterdesk/internal/service/installer"
	"github.com/sandevgo/letterdesk/pkg/env"
	"github.com/sandevgo/letterdesk/pkg/log"
	"github.com/spf13/cobra"
)

var (
	force       bool
	interactive bool
)

var initCmd = &cobra.Command{
	Use:          "init",
	Short:        "Create the runtime directory with a default .env",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, flushLog := setupLogger(cmd.Context())
		defer flushLog()
		logger := log.FromCtx(ctx)

		runtimePath := config.GetRuntimePath()
		if err := os.MkdirAll(filepath.Join(runtimePath, "prompts"), 0755); err != nil {
			return fmt.Errorf("failed to create runtime directory: %w", err)
		}

		envPath := filepath.Join(runtimePath, ".env")
		if _, err := os.Stat(envPath); err == nil && !force {
			return fmt.Errorf("%s already exists, use --force to overwrite", envPath)
		} else if err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}

		if interactive {
			if force {
				if err := os.Remove(envPath); err != nil && !errors.Is(err, os.ErrNotExist) {
					return err
				}
			}
			state, err := installer.RunWizard(runtimePath)
			if err != nil {
				return err
			}
			logger.Info().Msgf("configuration written to: %s", state.Written)
			logger.Info().Msg("Run 'letterdesk start' to begin drafting.")
			return nil
		}

		// current environment wins over defaults
		cfg, err := config.Parse()
		if err != nil {
			return err
		}
		cfg.RuntimePath = runtimePath

		content, err := env.MarshalEnv(cfg)
		if err != nil {
			return fmt.Errorf("failed to render .env: %w", err)
		}
		if err := os.WriteFile(envPath, []byte(content), 0600); err != nil {
			return fmt.Errorf("failed to write .env: %w", err)
		}

		logger.Info().Msgf("initialized runtime directory at: %s", runtimePath)
		logger.Info().Msg("Edit the .env file to add your API key, then run 'letterdesk start'.")
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing .env")
	initCmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "choose the provider, key and model step by step")
	rootCmd.AddCommand(initCmd)
}
