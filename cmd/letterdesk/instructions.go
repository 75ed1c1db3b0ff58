package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/sandevgo/letterdesk/internal/service/memory"
	"github.com/sandevgo/letterdesk/internal/service/ui"
	"github.com/sandevgo/letterdesk/internal/storage/sqlite"
	"github.com/spf13/cobra"
)

var showInactive bool

var instructionsCmd = &cobra.Command{
	Use:   "instructions",
	Short: "Inspect remembered instructions",
}

var instructionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored instructions",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openInstructions(cmd)
		if err != nil {
			return err
		}

		records := store.Snapshot()
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, ui.TitleStyle.Render("ID\tTYPE\tPRIORITY\tSCOPE\tCATEGORY\tUSED\tACTIVE\tTEXT"))
		for _, r := range records {
			if !r.Active && !showInactive {
				continue
			}
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%d\t%t\t%s\n",
				r.ID, r.Type, r.Priority, r.Scope, r.Category, r.UsageCount, r.Active, r.Text)
		}
		return w.Flush()
	},
}

var instructionsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show instruction counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openInstructions(cmd)
		if err != nil {
			return err
		}

		st := store.Stats()
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s %d\n", ui.TitleStyle.Render("total:"), st.Total)
		fmt.Fprintf(out, "%s %d\n", ui.TitleStyle.Render("active:"), st.Active)

		types := make([]string, 0, len(st.ByType))
		for t, n := range st.ByType {
			types = append(types, fmt.Sprintf("  %s: %d", t, n))
		}
		scopes := make([]string, 0, len(st.ByScope))
		for s, n := range st.ByScope {
			scopes = append(scopes, fmt.Sprintf("  %s: %d", s, n))
		}
		sort.Strings(types)
		sort.Strings(scopes)

		fmt.Fprintln(out, ui.UsageStyle.Render("by type"))
		for _, line := range types {
			fmt.Fprintln(out, line)
		}
		fmt.Fprintln(out, ui.UsageStyle.Render("by scope"))
		for _, line := range scopes {
			fmt.Fprintln(out, line)
		}
		return nil
	},
}

var instructionsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Print all stored instructions as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openInstructions(cmd)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(store.Snapshot())
	},
}

// openInstructions loads the stored instructions into a read-only store.
func openInstructions(cmd *cobra.Command) (*memory.Store, error) {
	ctx, flushLog := setupLogger(cmd.Context())
	defer flushLog()

	cfg, err := loadConfig(ctx)
	if err != nil {
		return nil, err
	}

	db, err := sqlite.NewDB(ctx, cfg.GetDatabasePath())
	if err != nil {
		return nil, err
	}
	defer db.Close()

	store := memory.NewStore()
	if err := store.Load(ctx, sqlite.NewInstructionRepo(db)); err != nil {
		return nil, err
	}
	return store, nil
}

func init() {
	instructionsListCmd.Flags().BoolVarP(&showInactive, "all", "a", false, "include superseded instructions")
	instructionsCmd.AddCommand(instructionsListCmd, instructionsStatsCmd, instructionsExportCmd)
	rootCmd.AddCommand(instructionsCmd)
}

