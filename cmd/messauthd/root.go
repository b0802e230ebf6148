package main

import (
	"github.com/spf13/cobra"
)

// configFile is the optional YAML config shared by every subcommand.
var configFile string

// NewRootCmd creates the root command for the messauthd CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "messauthd",
		Short: "messauthd - account registration and login service",
		Long: `messauthd serves email-verified registration, login, password reset
and profile management, and guards role-restricted routes.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())

	return cmd
}
