package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/sandevgo/letterdesk/pkg/log"
)

// GetRuntimePath resolves the runtime directory; relative paths are taken
// from the user's home directory.
func GetRuntimePath() string {
	path := os.Getenv("LETTERDESK_RUNTIME_PATH")
	if path == "" {
		path = ".letterdesk"
	}

	if !filepath.IsAbs(path) {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path)
	}
	return path
}

// LoadEnvFile loads <runtimePath>/.env into the process environment.
// A missing file is not an error; existing variables are not overridden.
func LoadEnvFile(ctx context.Context, runtimePath string) error {
	logger := log.FromCtx(ctx)
	envFile := filepath.Join(runtimePath, ".env")

	if _, err := os.Stat(envFile); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}

	if err := godotenv.Load(envFile); err != nil {
		logger.Warn().Err(err).Str("path", envFile).Msg("failed to load .env file")
		return err
	}

	logger.Debug().Str("path", envFile).Msg("loaded .env file")
	return nil
}
