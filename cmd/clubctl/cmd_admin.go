package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sakif/owners-club/internal/service"
)

// adminCmd manages the admin role.
var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Grant or revoke the admin role",
	Long: `Grant or revoke the admin role for an existing account.

Available subcommands:
  grant  - Make an account an admin
  revoke - Remove the admin role`,
}

var adminGrantCmd = &cobra.Command{
	Use:   "grant <email>",
	Short: "Make an account an admin",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setAdmin(cmd, args[0], true)
	},
}

var adminRevokeCmd = &cobra.Command{
	Use:   "revoke <email>",
	Short: "Remove the admin role from an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setAdmin(cmd, args[0], false)
	},
}

func setAdmin(cmd *cobra.Command, email string, admin bool) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	// Role changes need neither tokens nor password hashing.
	svc := service.NewAuthService(db.Users(), nil, nil, newLogger(cmd.ErrOrStderr()))
	user, err := svc.SetAdminByEmail(cmd.Context(), email, admin)
	if err != nil {
		return fmt.Errorf("updating %s: %w", email, err)
	}

	verb := "granted"
	if !admin {
		verb = "revoked"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "admin role %s for %s (%s)\n", verb, user.Email, user.ID)
	return nil
}
