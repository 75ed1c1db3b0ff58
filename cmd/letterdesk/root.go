package main

import (
	"context"
	"os"

	"github.com/sandevgo/letterdesk/internal/config"
	"github.com/sandevgo/letterdesk/internal/core"
	"github.com/sandevgo/letterdesk/internal/service/ui"
	"github.com/sandevgo/letterdesk/pkg/log"
	"github.com/spf13/cobra"
)

var (
	debug bool
)

var rootCmd = &cobra.Command{
	Use:     "letterdesk",
	Short:   "LetterDesk, a letter-drafting assistant",
	Long:    `LetterDesk helps you write and revise letters and remembers how you like them written.`,
	Version: core.AppVersion,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	// Global flags available to all subcommands
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", config.IsDebug(), "enable debug logging")
}

func setupLogger(ctx context.Context) (context.Context, func()) {
	isDebug := debug || config.IsDebug()
	return log.NewContextWithLogger(ctx, isDebug)
}

// loadConfig reads <runtime>/.env and parses the app config, pinning the
// runtime path to its resolved absolute form.
func loadConfig(ctx context.Context) (*config.AppConfig, error) {
	runtimePath := config.GetRuntimePath()
	if err := config.LoadEnvFile(ctx, runtimePath); err != nil {
		return nil, err
	}

	cfg, err := config.Parse()
	if err != nil {
		return nil, err
	}
	cfg.RuntimePath = runtimePath
	return cfg, nil
}

func CustomizeHelp(rootCmd *cobra.Command) {
	cobra.AddTemplateFunc("StyleTitle", func(s string) string { return ui.TitleStyle.Render(s) })
	cobra.AddTemplateFunc("StyleUsage", func(s string) string { return ui.UsageStyle.Render(s) })
	cobra.AddTemplateFunc("StyleFlag", func(s string) string { return ui.FlagStyle.Render(s) })
	cobra.AddTemplateFunc("StyleDesc", func(s string) string { return ui.DescStyle.Render(s) })

	template := `
{{StyleTitle "USAGE"}}
  {{StyleUsage .UseLine}}
{{if gt (len .Commands) 0}}{{StyleTitle "AVAILABLE COMMANDS"}}
{{range .Commands}}{{if (or .IsAvailableCommand (eq .Name "help"))}}
  {{rpad .Name .NamePadding}} {{StyleDesc .Short}}{{end}}
{{end}}{{end}}
{{if .HasAvailableLocalFlags}}{{StyleTitle "FLAGS"}}
{{StyleFlag (.LocalFlags.FlagUsages | trimTrailingWhitespaces)}}
{{end}}
`
	rootCmd.SetHelpTemplate(template)
}
