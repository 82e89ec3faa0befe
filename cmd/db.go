package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ocnguye/epa-dash-sub000/config"
	"github.com/ocnguye/epa-dash-sub000/credentials"
)

// NewDbCommand creates the db command with its subcommands.
func NewDbCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Manage the dashboard database connection",
		Long: `Manage the dashboard database connection settings and credentials.

The database password is never stored in the config file. It is
resolved at run time from the EPADASH_DB_PASSWORD environment
variable, the system keyring, or an interactive prompt, in that
order.`,
	}

	cmd.AddCommand(newDbPasswordCommand())
	return cmd
}

// newDbPasswordCommand creates the 'db password' subcommand group.
func newDbPasswordCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "password",
		Short: "Manage the stored database password",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set",
		Short: "Store the database password in the system keyring",
		Long: `Prompt for the database password and store it in the system keyring
(macOS Keychain, Windows Credential Manager, Linux Secret Service).

Subsequent commands read the password from the keyring without
prompting. Requires an interactive terminal.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return fmt.Errorf("loading configuration: %w", err)
			}
			user := cfg.Database.User

			password, err := credentials.NewPromptProvider().Password(user)
			if err != nil {
				if errors.Is(err, credentials.ErrNoPassword) {
					return fmt.Errorf("an interactive terminal is required to set the password")
				}
				return err
			}

			if err := credentials.SetPassword(user, password); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stored password for database user %q in the system keyring.\n", user)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Remove the stored database password from the keyring",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return fmt.Errorf("loading configuration: %w", err)
			}
			user := cfg.Database.User

			if err := credentials.DeletePassword(user); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed stored password for database user %q.\n", user)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show where the database password would come from",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return fmt.Errorf("loading configuration: %w", err)
			}
			user := cfg.Database.User
			out := cmd.OutOrStdout()

			fmt.Fprintf(out, "Database user: %s\n", user)
			if os.Getenv(credentials.EnvPassword) != "" {
				fmt.Fprintf(out, "  %s: set (takes precedence)\n", credentials.EnvPassword)
			} else {
				fmt.Fprintf(out, "  %s: not set\n", credentials.EnvPassword)
			}
			if credentials.HasStoredPassword(user) {
				fmt.Fprintln(out, "  Keyring: password stored")
			} else {
				fmt.Fprintln(out, "  Keyring: no password stored")
			}
			return nil
		},
	})

	return cmd
}
