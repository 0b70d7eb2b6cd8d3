package app

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/daemon"
)

func init() { //nolint: gochecknoinits
	rootCmd.AddCommand(migrateCmd)
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Migrate the database and seed permissions, roles and the first administrator",
	PreRunE: func(_ *cobra.Command, _ []string) error {
		return loadConfig()
	},
	RunE: func(cmd *cobra.Command, _ []string) error {
		db, err := daemon.OpenDB(&cfg)
		if err != nil {
			return err //nolint:wrapcheck
		}

		if err = daemon.Migrate(cmd.Context(), &cfg, db); err != nil {
			return err //nolint:wrapcheck
		}

		log.Info().Msg("database migrated")

		return nil
	},
}
