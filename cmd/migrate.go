package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/planit/planit/db"
	"github.com/planit/planit/internal/config"
	"github.com/planit/planit/internal/log"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	Long: `Applies all pending schema migrations and exits. The serve
command also runs migrations on startup; this command exists for
deploy pipelines that migrate before rolling out.`,
	RunE: func(_ *cobra.Command, _ []string) error {
		return runMigrate()
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := log.New(log.Config{Level: cfg.SlogLevel(), JSON: cfg.LogJSON})
	logger.Info("applying migrations", "db", cfg.PostgresDBName)

	if err := db.Migrate(cfg.DatabaseURL()); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("migrations applied")
	return nil
}
