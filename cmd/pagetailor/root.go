// Package main provides the entry point for the pagetailor CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for pagetailor.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pagetailor",
		Short: "Batch post-processing for scanned document images",
		Long: `pagetailor cleans up scanned document images in batch.
Each page runs through a fixed pipeline of stages: orientation fix,
page splitting, deskew, content selection, page layout, and output.

Pages are processed independently; a failing page is recorded and the
batch continues with the remaining pages.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewRunCmd())
	cmd.AddCommand(NewHistoryCmd())
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
