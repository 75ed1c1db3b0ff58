package main

import (
	"os"
	"os/signal"
	"time"

	"github.com/sandevgo/letterdesk/pkg/log"
	"github.com/sandevgo/letterdesk/pkg/srv"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

var (
	letterPath string
	category   string
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a chat session",
	Long:  `Starts the background workers and an interactive chat about a letter on stdin.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		// logger setup
		var flushLog func()
		ctx, flushLog = setupLogger(ctx)
		defer flushLog()

		logger := log.FromCtx(ctx)
		logger.Info().Msg("starting letterdesk")

		appCfg, err := loadConfig(ctx)
		if err != nil {
			return err
		}

		var letter string
		if letterPath != "" {
			data, err := os.ReadFile(letterPath)
			if err != nil {
				return err
			}
			letter = string(data)
		}

		chat, services := NewServices(ctx, appCfg, os.Stdin, os.Stdout)
		chat.Letter = letter
		chat.Category = category
		chat.OnExit = stop

		// Start services
		srv.StartServices(ctx, services)

		// Wait for shutdown signal
		srv.ShutdownServices(ctx, shutdownTimeout, services)
		logger.Info().Msg("letterdesk has been shut down gracefully")

		return nil
	},
}

func init() {
	startCmd.Flags().StringVarP(&letterPath, "letter", "l", "", "letter file to start from")
	startCmd.Flags().StringVarP(&category, "category", "c", "", "letter category, e.g. \"cover letter\"")
	rootCmd.AddCommand(startCmd)
}
