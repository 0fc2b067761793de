package commands

import (
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teranos/ontix/db"
	"github.com/teranos/ontix/errors"
	"github.com/teranos/ontix/logger"
)

// DbCmd manages local SQLite ontology databases.
var DbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage local SQLite backends",
	Long: `Manage local SQLite ontology databases.

Examples:
  ontix db init --path local.db    # Create and migrate a backend database
  ontix db stats --path local.db   # Show entity and link counts`,
}

var dbInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create and migrate a backend database",
	RunE:  runDbInit,
}

var dbStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show database statistics",
	RunE:  runDbStats,
}

var dbPathFlag string

func init() {
	DbCmd.AddCommand(dbInitCmd)
	DbCmd.AddCommand(dbStatsCmd)
	DbCmd.PersistentFlags().StringVar(&dbPathFlag, "path", "ontology.db", "Path to the database file")
}

func runDbInit(cmd *cobra.Command, args []string) error {
	database, err := db.Open(dbPathFlag, logger.Logger)
	if err != nil {
		return errors.Wrap(err, "failed to open database")
	}
	defer database.Close()

	if err := db.Migrate(database, logger.Logger); err != nil {
		return errors.Wrap(err, "failed to migrate database")
	}

	fmt.Printf("Database ready: %s\n", dbPathFlag)
	return nil
}

func runDbStats(cmd *cobra.Command, args []string) error {
	database, err := db.Open(dbPathFlag, logger.Logger)
	if err != nil {
		return errors.Wrap(err, "failed to open database")
	}
	defer database.Close()

	counts := []struct {
		label string
		query string
	}{
		{"Classes", "SELECT COUNT(*) FROM classes"},
		{"Properties", "SELECT COUNT(*) FROM properties"},
		{"Link types", "SELECT COUNT(*) FROM link_types"},
		{"Elements", "SELECT COUNT(*) FROM elements"},
		{"Links", "SELECT COUNT(*) FROM links"},
	}

	fmt.Println("Database Statistics")
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("Path:       %s\n", dbPathFlag)
	for _, c := range counts {
		var n int
		if err := database.QueryRow(c.query).Scan(&n); err != nil {
			if err == sql.ErrNoRows {
				n = 0
			} else {
				return errors.Wrapf(err, "failed to count %s", c.label)
			}
		}
		fmt.Printf("%-11s %d\n", c.label+":", n)
	}
	return nil
}
