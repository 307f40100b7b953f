package main

import (
	"github.com/spf13/cobra"

	"vepbot/internal/db"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update tables and indexes",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			if err := db.AutoMigrateAndIndexes(a.db); err != nil {
				return err
			}
			a.log.Infow("migrations applied")
			return nil
		},
	}
}
