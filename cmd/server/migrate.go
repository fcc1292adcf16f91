package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"routelink/internal/config"
	"routelink/internal/logger"
	"routelink/internal/migrate"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations and exit",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		logger.Setup(cfg.Log)

		db, err := config.OpenDB(cfg.DB, logger.NewGormLogger())
		if err != nil {
			return err
		}
		if err := migrate.Up(db); err != nil {
			return err
		}
		v, err := migrate.Version(db)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "schema at version %d\n", v)
		return nil
	},
}
