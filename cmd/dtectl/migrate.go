package main

import (
	"github.com/spf13/cobra"

	"github.com/jhoicas/dte-sv/internal/infrastructure/postgres"
	"github.com/jhoicas/dte-sv/pkg/config"
)

var migrateCmd = &cobra.Command{
	Use:       "migrate [up|down]",
	Short:     "Aplica o revierte las migraciones de PostgreSQL",
	Example:   "  dtectl migrate up\n  DATABASE_URL=postgres://... dtectl migrate down",
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"up", "down"},
	RunE: func(cmd *cobra.Command, args []string) error {
		direction := "up"
		if len(args) == 1 {
			direction = args[0]
		}
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		return postgres.Migrate(cfg.DB.ConnectionString(), direction, cliLogger("migrate"))
	},
}
