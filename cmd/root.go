// Package cmd provides the command-line interface of the watcher.
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "ffe-pre-engage",
	Short: "Watch FFE registration pages and alert on openings",
	Long: `ffe-pre-engage monitors FFE competition registration pages and raises
an alert the moment a registration opens or a previously full class
frees a slot.

The serve command runs the local API the UI talks to, together with
the polling engine. Targets can also be managed straight from the
command line.`,
	Example: `  # Run the local API and watcher
  ffe-pre-engage serve --watch

  # Manage targets without the UI
  ffe-pre-engage target add --label "CSO Tours" --url https://ffecompet.ffe.com/concours/42
  ffe-pre-engage target list
  ffe-pre-engage target rm 3`,
}

// Execute runs the root command. Called once from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
