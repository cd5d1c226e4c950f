package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for autoposter.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "autoposter",
		Short: "Generate vehicle posters from an online specification catalog",
		Long: `autoposter finds a make and model in an online vehicle catalog, extracts
year, engine, power, torque, weight, acceleration and top speed, downloads
the vehicle photo and writes a poster manifest for the renderer.

When scraping fails the poster falls back to built-in sample data, so a
poster is always produced.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(NewGenerateCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewCookiesCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
