package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/foodshare/pickup-api/internal/repository/sqlstore"
	"github.com/foodshare/pickup-api/internal/server"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, "migrate up", (*sqlstore.DB).MigrateUp)
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the most recent migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, "migrate down", (*sqlstore.DB).MigrateDown)
	},
}

// withStore opens the configured database, runs fn and reports the schema
// version it left behind.
func withStore(cmd *cobra.Command, name string, fn func(*sqlstore.DB) error) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}

	db, err := server.OpenStore(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := fn(db); err != nil {
		return err
	}

	version, dirty, err := db.SchemaVersion()
	if err != nil {
		return err
	}
	logger.Info(name+" complete",
		slog.String("database", string(db.Dialect())),
		slog.Uint64("version", uint64(version)),
		slog.Bool("dirty", dirty),
	)
	return nil
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
}
