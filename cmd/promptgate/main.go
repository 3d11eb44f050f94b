// Package main provides the promptgate binary: an interactive step-prompt
// host for protocol files, plus validation and schema tooling.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags.
var version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "promptgate",
	Short: "Human-prompt step gate for automated protocols",
	Long: `promptgate — a step handler that gates protocol execution on operator
prompts: plain acknowledgements or structured forms generated from
user-authored field schemas.`,
}

func init() {
	rootCmd.Version = version
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(mcpCmd)
}
