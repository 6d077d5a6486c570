package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"stockroom/domain"
)

func init() {
	// login
	loginCmd := &cobra.Command{
		Use:   "login <secret>",
		Short: "Log in with your secret code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := authenticator.Login(context.Background(), args[0])
			if err != nil {
				if domain.IsWarehousemanNotFoundError(err) {
					return fmt.Errorf("invalid secret code")
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "logged in as %s (warehouse %d)\n", user.Name, user.WarehouseID)
			return nil
		},
	}
	rootCmd.AddCommand(loginCmd)

	// logout
	logoutCmd := &cobra.Command{
		Use:   "logout",
		Short: "Forget the logged-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := authenticator.Logout(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "logged out")
			return nil
		},
	}
	rootCmd.AddCommand(logoutCmd)

	// whoami
	whoamiCmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			user, ok, err := authenticator.Current()
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "not logged in")
				return nil
			}
			user.SecretKey = ""
			return printJSON(cmd.OutOrStdout(), user)
		},
	}
	rootCmd.AddCommand(whoamiCmd)
}
