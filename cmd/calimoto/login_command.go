package main

import (
	"fmt"

	"github.com/eshaffer321/calimoto-go/internal/config"
	"github.com/spf13/cobra"
)

func newLoginCommand(ctx *commandContext) *cobra.Command {
	var emailFlag string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			email := cfg.Username
			if emailFlag != "" {
				email = emailFlag
			}
			if email == "" || cfg.Password == "" {
				return fmt.Errorf("credentials missing: set CALIMOTO_USERNAME and CALIMOTO_PASSWORD or add a %s file", config.CredentialsFile)
			}

			client, err := ctx.ensureClient()
			if err != nil {
				return err
			}

			session, err := client.Auth.Login(cmd.Context(), email, cfg.Password)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Logged in as %s (user %s)\n", email, session.UserID)
			if cfg.SessionFile != "" {
				fmt.Fprintf(out, "Session saved to %s\n", cfg.SessionFile)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&emailFlag, "email", "", "Account email (overrides CALIMOTO_USERNAME)")
	return cmd
}

func newLogoutCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			client, err := ctx.ensureClient()
			if err != nil {
				return err
			}
			client.Auth.Logout()

			if cfg.SessionFile != "" {
				if err := removeIfExists(cfg.SessionFile); err != nil {
					return err
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}
