package main

import (
	"github.com/eshaffer321/calimoto-go/pkg/calimoto"
	"github.com/spf13/cobra"
)

// newRootCommand returns the command tree and a cleanup that flushes Sentry
// and the logger; cleanup must run whether or not the command fails
func newRootCommand() (*cobra.Command, func()) {
	return newRootCommandWithOptions(nil)
}

// newRootCommandWithOptions lets tests point the client at a fake backend
func newRootCommandWithOptions(base *calimoto.ClientOptions) (*cobra.Command, func()) {
	var configDirFlag string
	var logLevelFlag string
	var sessionFileFlag string

	ctx := newCommandContext(&configDirFlag, &logLevelFlag, &sessionFileFlag, base)

	rootCmd := &cobra.Command{
		Use:           "calimoto",
		Short:         "Export Calimoto routes and tracks as GPX",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&configDirFlag, "config-dir", "", "Directory holding .env and .credentials (default: working directory)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&sessionFileFlag, "session-file", "", "Persist the session in this file")

	rootCmd.AddCommand(newLoginCommand(ctx))
	rootCmd.AddCommand(newLogoutCommand(ctx))
	rootCmd.AddCommand(newListCommand(ctx))
	rootCmd.AddCommand(newExportCommand(ctx))

	return rootCmd, ctx.close
}
