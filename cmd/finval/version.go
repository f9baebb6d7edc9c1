package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/finval/internal/version"
)

// Version returns the current version string.
func Version() string {
	return version.Get()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "finval version %s\n", Version())
	},
}
