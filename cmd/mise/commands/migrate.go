package commands

import (
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"miseagent/app"
	"miseagent/tools/storage"
)

func NewMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the Postgres schema",
		Long: `Create the Postgres schema in DATABASE_URL.

Every statement is idempotent, so running it twice is safe.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadConfig()
			if err != nil {
				return err
			}
			if cfg.Database.URL == "" {
				return errors.New("DATABASE_URL is not set")
			}

			ctx := cmd.Context()
			pg, err := storage.OpenPostgres(ctx, cfg.Database.URL, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns)
			if err != nil {
				return err
			}
			defer pg.Close()

			if err := pg.Migrate(ctx); err != nil {
				return err
			}
			slog.Info("SETUP: Migrations applied")
			return nil
		},
	}
}
