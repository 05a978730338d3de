package cli

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"eldt-progress-service/internal/app"
	"eldt-progress-service/internal/config"
	"eldt-progress-service/internal/infra/memory"
	pgstore "eldt-progress-service/internal/infra/postgres"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// NewMigrateAnswersCmd rewrites progress records still keyed by legacy
// positional indices. Safe to re-run; records already in canonical form are
// skipped.
func NewMigrateAnswersCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate-answers",
		Short: "Rewrite legacy positional answer keys to question identifiers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnswerMigration(cmd.Context(), *configPath)
		},
	}
}

func runAnswerMigration(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Postgres.URL == "" {
		return fmt.Errorf("postgres url not configured")
	}

	pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.URL)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	keys := memory.NewAnswerKeyCache(
		pgstore.NewContentStore(pool),
		config.TTLDuration(cfg.AnswerKey.TTL, 10*time.Minute),
	)
	migrator := app.NewLegacyAnswerMigrator(
		pgstore.NewProgressStore(db),
		keys,
		cfg.Migration.LegacyIndexThreshold,
	)
	stats, err := migrator.Run(ctx)
	if err != nil {
		return err
	}
	log.Printf("done: %d of %d records rewritten", stats.Migrated, stats.Scanned)
	return nil
}
