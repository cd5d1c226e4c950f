package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nao1215/autoposter/internal/config"
	"github.com/nao1215/autoposter/internal/database"
	"github.com/nao1215/autoposter/internal/report"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "List previous poster runs",
		Long: `History lists the runs recorded by generate, newest first.

Pass a run id to show that run in full.

Examples:
  # Last 20 runs
  autoposter history

  # Runs for one make as Markdown
  autoposter history --make audi --format markdown

  # One run in detail
  autoposter history 0b6f3c1e-7d4a-4c8e-9a55-2f1c0e7b9d10`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().String("make", "",
		"Only list runs for this make (case-insensitive)")
	cmd.Flags().IntP("limit", "n", database.DefaultListLimit,
		"Maximum number of runs to list")
	cmd.Flags().StringP("format", "f", config.FormatText,
		"Output format: text, json or markdown")
	cmd.Flags().String("data-dir", config.XDGDataDir(),
		"Directory holding the run history")

	return cmd
}

func runHistoryCmd(cmd *cobra.Command, args []string) error {
	makeName, err := cmd.Flags().GetString("make")
	if err != nil {
		return err
	}
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	dataDir, err := cmd.Flags().GetString("data-dir")
	if err != nil {
		return err
	}

	w, err := report.New(format, cmd.OutOrStdout(), getVersion())
	if err != nil {
		return err
	}

	opts := database.DefaultOptions()
	opts.CreateIfNotExists = false
	db, err := database.Open(dataDir, opts)
	if err != nil {
		return fmt.Errorf("no history available: %w", err)
	}
	defer db.Close()

	if len(args) == 1 {
		run, err := db.GetRun(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		_, err = w.Write(run)
		return err
	}

	runs, err := db.ListRuns(cmd.Context(), makeName, limit)
	if err != nil {
		return err
	}
	_, err = w.WriteRuns(runs)
	return err
}
