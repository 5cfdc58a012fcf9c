package main

import (
	"github.com/spf13/cobra"

	"github.com/bindery/bindery/internal/config"
	"github.com/bindery/bindery/internal/logging"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the Bindery CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bindery",
		Short: "Bindery - Roblox role bind policy engine",
		Long: `Bindery decides which server roles and nickname a member should have
based on their linked Roblox identity and the guild's bind configuration.`,
	}

	// Global flags for config file path and logging overrides
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")
	cmd.PersistentFlags().String("log.level", "", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("log.format", "", "log format (json, text)")

	// Add subcommands
	cmd.AddCommand(NewEvalCmd())
	cmd.AddCommand(NewConvertCmd())
	cmd.AddCommand(NewBindsCmd())
	cmd.AddCommand(NewMigrateCmd())

	return cmd
}

// loadConfig resolves configuration for a subcommand and installs the
// default logger.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(configFile, cmd.Root().PersistentFlags())
	if err != nil {
		return cfg, err
	}
	logging.SetDefault("bindery", version, cfg.Log.Format, cfg.Log.Level)
	return cfg, nil
}
