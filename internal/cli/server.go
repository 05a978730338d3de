package cli

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"eldt-progress-service/internal/app"
	"eldt-progress-service/internal/config"
	"eldt-progress-service/internal/domain"
	"eldt-progress-service/internal/infra/memory"
	pgstore "eldt-progress-service/internal/infra/postgres"
	rediscache "eldt-progress-service/internal/infra/redis"
	transport "eldt-progress-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// NewStartCmd builds the CLI subcommand to start the service.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the progress service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	keyTTL := config.TTLDuration(cfg.AnswerKey.TTL, 10*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var (
		loader  memory.AnswerKeyLoader
		content app.ContentRepository
		courses app.CourseRepository
	)
	if pool != nil {
		store := pgstore.NewContentStore(pool)
		loader, content, courses = store, store, store
	} else {
		store := sampleContent()
		loader, content, courses = store, store, store
	}

	var keys app.AnswerKeyRepository
	if redisClient != nil {
		keys = rediscache.NewAnswerKeyCache(redisClient, loader, keyTTL)
	} else {
		keys = memory.NewAnswerKeyCache(loader, keyTTL)
	}

	var (
		progress app.ProgressRepository
		results  app.ResultRepository
	)
	if cfg.Postgres.URL != "" {
		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.URL)))
		db := bun.NewDB(sqldb, pgdialect.New())
		defer db.Close()
		progress = pgstore.NewProgressStore(db)
		results = pgstore.NewResultStore(db)
	} else {
		progress = memory.NewProgressStore()
		results = memory.NewResultStore()
	}

	policy := app.PassPolicy{
		QuizPercent:   cfg.Passing.QuizPercent,
		CoursePercent: cfg.Passing.CoursePercent,
	}
	service := app.NewProgressService(keys, content, progress, courses, results, policy,
		app.WithStoreTimeout(config.TTLDuration(cfg.Store.Timeout, 5*time.Second)))

	// One-shot rewrite of legacy positional answer keys; runs in the
	// background so startup is not blocked on a full table scan.
	migrator := app.NewLegacyAnswerMigrator(progress, keys, cfg.Migration.LegacyIndexThreshold)
	go func() {
		if _, err := migrator.Run(context.Background()); err != nil {
			log.Printf("legacy answer migration failed: %v", err)
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	transport.NewHandler(service).Register(mux)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting progress service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleContent provides a minimal course for running without Postgres; swap
// for the database-backed store in production.
func sampleContent() *memory.StaticContentStore {
	store := memory.NewStaticContentStore(
		map[int64]domain.Quiz{
			1: {
				ID:        1,
				SectionID: 1,
				Questions: []domain.Question{
					{
						ID:   101,
						Text: "Who is responsible for the safety of the load and vehicle?",
						Choices: []domain.Choice{
							{ID: 1, Label: "a", Text: "The driver", Correct: true},
							{ID: 2, Label: "b", Text: "The loader"},
							{ID: 3, Label: "c", Text: "The company"},
						},
					},
					{
						ID:   102,
						Text: "Why is a Pre-Trip inspection important?",
						Choices: []domain.Choice{
							{ID: 4, Label: "a", Text: "To find defects that could cause accidents", Correct: true},
							{ID: 5, Label: "b", Text: "To make your boss happy"},
							{ID: 6, Label: "c", Text: "It isn't important"},
						},
					},
				},
			},
		},
		map[int64][]domain.Section{
			1: {
				{ID: 1, Name: "Basic Operation", Number: 1, QuizID: 1},
			},
		},
	)
	store.Assign(1, 1, 1)
	return store
}
