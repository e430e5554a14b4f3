package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/PittChallenge/pittchallenge.com/config"
	"github.com/PittChallenge/pittchallenge.com/pkg/database"
)

func migrateCmd() *cobra.Command {
	var dsn string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending Postgres schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dsn == "" {
				cfg, err := config.Load()
				if err != nil {
					return err
				}
				if cfg.Store.Driver != config.DriverPostgres {
					return errors.New("migrate needs STORE_DRIVER=postgres or --dsn")
				}
				dsn = cfg.Store.DatabaseURL
			}
			if err := database.Migrate(dsn, cliLogger()); err != nil {
				return err
			}
			cmd.Println("migrations applied")
			return nil
		},
	}
	cmd.Flags().StringVar(&dsn, "dsn", "", "postgres connection string (default DATABASE_URL)")
	return cmd
}
