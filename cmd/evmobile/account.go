package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"evmobile/internal/app"
)

func NewLoginCommand() *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:     "login [phone-number]",
		Short:   "Sign in and store the credential on this device",
		GroupID: gAccount,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("EVM_PASSWORD")
			}
			if strings.TrimSpace(password) == "" {
				return errors.New("password is required, pass --password or set EVM_PASSWORD")
			}
			return withApp(func(a *app.App, logger *zap.Logger) error {
				resp, err := a.Auth.Login(cmd.Context(), args[0], password)
				if err != nil {
					return fmt.Errorf("failed to log in: %w", err)
				}
				name := args[0]
				if resp.User != nil && resp.User.FullName != "" {
					name = resp.User.FullName
				}
				cmd.Printf("signed in as %s\n", name)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&password, "password", "p", "", "account password")
	return cmd
}

func NewLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "logout",
		Short:   "Sign out and wipe the stored credential",
		GroupID: gAccount,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(func(a *app.App, logger *zap.Logger) error {
				if err := a.Auth.Logout(cmd.Context()); err != nil {
					// local state is already wiped
					logger.Warn("logout endpoint failed", zap.Error(err))
				}
				cmd.Println("signed out")
				return nil
			})
		},
	}
}
