package main

import (
	"errors"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/foodshare/pickup-api/internal/server"
	"github.com/foodshare/pickup-api/internal/service"
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Manage admin accounts",
}

var adminInput service.AdminInput

// Admins cannot sign up through the API; this is the only way to create one.
var adminCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a verified admin account",
	Long: `Creates an admin account that can log in immediately.

The password is read from --password or, when that is empty, from the
ADMIN_PASSWORD environment variable so it stays out of shell history.

	foodshare admin create --email admin@example.org --first-name Ada --last-name Lovelace`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if adminInput.Password == "" {
			adminInput.Password = os.Getenv("ADMIN_PASSWORD")
		}
		if adminInput.Password == "" {
			return errors.New("a password is required (--password or ADMIN_PASSWORD)")
		}

		cfg, logger, err := setup()
		if err != nil {
			return err
		}

		db, err := server.OpenStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.MigrateUp(); err != nil {
			return err
		}

		sender, err := server.NewSender(cfg, logger)
		if err != nil {
			return err
		}
		authService, err := server.NewAuthService(cfg, db, sender, logger)
		if err != nil {
			return err
		}

		user, err := authService.CreateAdmin(cmd.Context(), adminInput)
		if err != nil {
			return err
		}
		logger.Info("admin account ready", slog.Int64("id", user.ID), slog.String("email", user.Email))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(adminCmd)
	adminCmd.AddCommand(adminCreateCmd)

	f := adminCreateCmd.Flags()
	f.StringVar(&adminInput.Email, "email", "", "admin email address")
	f.StringVar(&adminInput.Password, "password", "", "admin password (8-72 bytes)")
	f.StringVar(&adminInput.FirstName, "first-name", "Admin", "first name")
	f.StringVar(&adminInput.LastName, "last-name", "", "last name")
	f.StringVar(&adminInput.Phone, "phone", "", "contact phone")
	_ = adminCreateCmd.MarkFlagRequired("email")
}
