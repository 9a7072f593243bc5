// Package main is the entry point for the FoodShare API.
//
// MAIN PACKAGE IN GO:
// The main package should stay minimal. Its job is to:
//  1. Read configuration (internal/config)
//  2. Create the logger
//  3. Hand over to the right command
//
// All actual logic lives in internal/.
//
// COMMANDS (github.com/spf13/cobra):
//
//	foodshare serve            start the HTTP server (applies migrations first)
//	foodshare migrate up       apply pending migrations
//	foodshare migrate down     roll back the latest migration
//	foodshare admin create     create a verified admin account
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/foodshare/pickup-api/internal/config"
)

var rootCmd = &cobra.Command{
	Use:           "foodshare",
	Short:         "FoodShare pickup coordination API",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// setup loads the configuration and installs the process-wide logger.
// Every command starts here.
//
// Log levels (least to most severe): Debug → Info → Warn → Error.
// LOG_LEVEL picks the minimum; production usually runs at info or warn.
func setup() (config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	// Handlers log encoding failures through the default logger.
	slog.SetDefault(logger)

	return cfg, logger, nil
}
