package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/foodshare/pickup-api/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Starts the FoodShare API. Pending migrations are applied before the
server accepts connections. SIGINT or SIGTERM shuts it down gracefully.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}

		srv, err := server.New(cmd.Context(), cfg, logger)
		if err != nil {
			return fmt.Errorf("failed to create server: %w", err)
		}

		// Start blocks until the server is shut down.
		return srv.Start(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
