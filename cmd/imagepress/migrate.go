package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/imagepress/imagepress/internal/platform"
	"github.com/imagepress/imagepress/pkg/config"
)

func newMigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			defer log.Sync()

			if cfg.Database.Driver != config.DriverPostgres {
				return fmt.Errorf("migrate requires the postgres driver, config selects %q", cfg.Database.Driver)
			}
			db, err := platform.OpenDB(cmd.Context(), cfg.Database.URL)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := platform.AutoMigrate(db, log); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}
