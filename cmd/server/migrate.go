package main

import (
	"fmt"

	"github.com/maheshrc27/campaignflow/internal/db"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema",
	RunE:  runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	database, err := db.Open(cmd.Context(), cfg.PostgresURI)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := db.Migrate(cmd.Context(), database); err != nil {
		return err
	}

	fmt.Println("Migrations completed successfully")
	return nil
}
