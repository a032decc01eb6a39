package cmd

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the sabotage command tree. It is called once in main.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "sabotage",
		Short:         "Crypto Crew: Sabotage match server and tools",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	rootCmd.AddCommand(newServeCmd(), newReplayCmd())
	return rootCmd
}
