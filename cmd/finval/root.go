package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "finval",
	Short: "Financial statement validation",
	Long: `finval checks financial statements against Schedule III (Division II)
and Ind AS disclosure requirements.

Each enabled agent (Balance Sheet, Profit & Loss, Cash Flow, Notes) asks a
language model to review the document against its criteria. Scores are
folded into one report with an overall compliance percentage.

Run history is kept in a local SQLite database by default. The same runs are
available over HTTP with 'finval serve'.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(promptsCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
