package main

import (
	"github.com/spf13/cobra"

	"property-governance-backend/config"
	"property-governance-backend/database"
)

func migrateCommand(load func() *config.Config) *cobra.Command {
	var seed bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := load()
			log := newLogger(cfg)
			db, err := database.Open(cfg.Database, log)
			if err != nil {
				return err
			}
			defer database.Close(db, log)

			if err := database.Migrate(db, log); err != nil {
				return err
			}
			if seed {
				return database.SeedRoles(db, log)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&seed, "seed-roles", false, "create the platform roles when none exist")
	return cmd
}
