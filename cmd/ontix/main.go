package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teranos/ontix/cmd/ontix/commands"
	"github.com/teranos/ontix/logger"
)

var rootCmd = &cobra.Command{
	Use:   "ontix",
	Short: "ontix - Federated ontology backend",
	Long: `ontix - Federated ontology backend.

ontix presents multiple heterogeneous knowledge stores as a single
logical backend serving a graph of typed entities: classes, properties,
elements, and links.

Available commands:
  serve    - Start the federation server
  backends - Probe configured backends
  db       - Manage local SQLite backends
  config   - Show the effective configuration
  version  - Show version information

Examples:
  ontix serve                     # Serve the federated ontology
  ontix backends                  # Check backend reachability
  ontix db init --path local.db   # Create a local backend database
  ontix db stats --path local.db  # Show backend statistics`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbosity, _ := cmd.Flags().GetCount("verbose")
		jsonLogs, _ := cmd.Flags().GetBool("log-json")
		if err := logger.InitializeWithVerbosity(jsonLogs, verbosity); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv, -vvv)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Emit logs as JSON instead of console output")
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to a config file (overrides discovery)")

	rootCmd.AddCommand(commands.ServeCmd)
	rootCmd.AddCommand(commands.BackendsCmd)
	rootCmd.AddCommand(commands.DbCmd)
	rootCmd.AddCommand(commands.ConfigCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
