package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/loamdb/loam/cmd/loam/commands"
	"github.com/loamdb/loam/logger"
)

var rootCmd = &cobra.Command{
	Use:   "loam",
	Short: "loam - embedded graph store tooling",
	Long: `loam - embedded graph store tooling.

Available commands:
  import  - Build a new store from delimited input files
  version - Show version information

Examples:
  loam import --into ./graph --nodes Person=people.csv \
      --relationships KNOWS=knows.csv
  loam version`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Initialize global logger before any command runs
		jsonOutput, _ := cmd.Flags().GetBool("json")
		if err := logger.Initialize(jsonOutput); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose progress output and full failure diagnostics")
	rootCmd.PersistentFlags().Bool("json", false, "Emit structured JSON log output")

	rootCmd.AddCommand(commands.ImportCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	defer logger.Cleanup()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
