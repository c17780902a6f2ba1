package main

import (
	"context"
	"fmt"

	"billdesk/internal/api"
	"billdesk/internal/cli"

	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to the billing backend and store the session token",
	Example: `  # Use API_EMAIL and API_PASSWORD from the environment
  billdesk login

  # Explicit credentials
  billdesk login --email ops@example.com --password s3cret`,
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session token",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, app *cli.App) error {
			if err := app.Remote.Logout(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
			return nil
		})
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the user behind the stored session",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, app *cli.App) error {
			user, err := app.Remote.Me(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s <%s>\n", user.Name, user.Email)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(loginCmd, logoutCmd, whoamiCmd)

	loginCmd.Flags().String("email", "", "Account email (default: API_EMAIL)")
	loginCmd.Flags().String("password", "", "Account password (default: API_PASSWORD)")
}

func runLogin(cmd *cobra.Command, args []string) error {
	email, _ := cmd.Flags().GetString("email")
	password, _ := cmd.Flags().GetString("password")
	if email == "" {
		email = appConfig.APIEmail
	}
	if password == "" {
		password = appConfig.APIPassword
	}

	return withApp(cmd, func(ctx context.Context, app *cli.App) error {
		user, err := app.Remote.Login(ctx, api.Credentials{Email: email, Password: password})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s <%s>.\n", user.Name, user.Email)
		return nil
	})
}
