package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dropDatabas3/oauthlink/internal/observability/logger"
	"github.com/dropDatabas3/oauthlink/internal/store/pg"
	migrations "github.com/dropDatabas3/oauthlink/migrations/postgres"
)

func newMigrateCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Aplica las migraciones de users e identidades en PostgreSQL",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(f)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			if cfg.Storage.Driver != "postgres" {
				return fmt.Errorf("migrate: storage.driver must be postgres (got %q)", cfg.Storage.Driver)
			}

			ctx := cmd.Context()
			st, err := openPostgres(ctx, cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			_, err = runMigrations(ctx, st, cfg.Storage.IdentityTable)
			return err
		},
	}
}

func runMigrations(ctx context.Context, st *pg.Store, identityTable string) (*pg.MigrationResult, error) {
	log := logger.S()

	res, err := pg.NewMigrator(migrations.SchemaFS, migrations.SchemaDir, identityTable).Run(ctx, st.Pool())
	if err != nil {
		log.Errorw("migrations failed", "error", err)
		return nil, fmt.Errorf("migrate: %w", err)
	}
	log.Infow("migrations done",
		"applied", res.Applied,
		"skipped", len(res.Skipped),
		"duration", res.Duration,
		"identity_table", st.IdentityTable(),
	)
	return res, nil
}
