package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/tihomirborovcak/radni-nalozi/internal/config"
	"github.com/tihomirborovcak/radni-nalozi/internal/infrastructure/storage/postgres"
)

var migrateCmd = &cobra.Command{
	Use:       "migrate [up|down|status]",
	Short:     "Apply or inspect database migrations",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{string(postgres.MigrateUp), string(postgres.MigrateDown), string(postgres.MigrateStatus)},
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Storage.Driver != config.DriverPostgres {
			return errors.New("migrate requires storage.driver=postgres")
		}
		ctx := cmd.Context()

		pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(cfg.Database.DSN))
		if err != nil {
			return err
		}
		defer pool.Close()

		return postgres.Migrate(ctx, pool, postgres.MigrateCommand(args[0]))
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
