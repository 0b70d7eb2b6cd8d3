// Package app implements the main application commands.
package app

import (
	"github.com/spf13/cobra"

	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/config"
	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/logger"
)

var (
	configPath string // directory holding main.toml
	cfg        config.Config

	rootCmd = &cobra.Command{
		Use:   "go-storefront-admin",
		Short: "GoStorefront-Admin is the back office of the storefront",
		Long: `GoStorefront-Admin is the back office of the storefront.
It manages staff accounts, roles and their permissions, CMS pages and the
settings of the integrated providers, and records security events.`,
		Args:          cobra.OnlyValidArgs,
		SilenceUsage:  true,
	}
)

func init() { //nolint: gochecknoinits
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "./etc/", "directory of main.toml")
}

// loadConfig reads the configuration and initialises the logger.
func loadConfig() error {
	var err error

	if cfg, err = config.ReadConfig(configPath); err != nil {
		return err //nolint:wrapcheck
	}

	return logger.Init(cfg.Log) //nolint:wrapcheck
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute() //nolint:wrapcheck
}
