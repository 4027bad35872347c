package main

import (
	"errors"

	"github.com/spf13/cobra"

	"photoshelf/internal/config"
	"photoshelf/internal/database"
	"photoshelf/internal/log"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		logger := log.New(cfg.Environment)

		if !cfg.RecordsMode() {
			return errors.New("migrations only apply to the records catalog mode")
		}
		if err := database.Migrate(cfg.Database); err != nil {
			logger.Error().Err(err).Msg("migration failed")
			return err
		}
		logger.Info().Str("driver", cfg.Database.Driver).Msg("database migrations applied")
		return nil
	},
}
