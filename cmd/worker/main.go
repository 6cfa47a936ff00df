// The worker drains the background job queue: search-index emission,
// cache-invalidation retries, deferred blob deletes, and subtree
// reconciliation. It shares the server's repositories and collaborators
// but mutates nothing except through the hierarchy service.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"doctree/internal/blob"
	"doctree/internal/cache"
	"doctree/internal/config"
	"doctree/internal/jobs"
	"doctree/internal/repository/postgres"
	"doctree/internal/service/hierarchy"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logLevel := slog.LevelInfo
	if cfg.Debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("worker starting", "environment", cfg.Environment, "redis_addr", cfg.RedisAddr)

	ctx := context.Background()

	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to create connection pool: %v", err)
	}
	defer pool.Close()

	tables := postgres.NewTableNames(cfg.TablePrefix)
	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}
	folderRepo := postgres.NewFolderRepository(repoConfig)
	docRepo := postgres.NewDocumentRepository(repoConfig)
	tagRepo := postgres.NewTagRepository(repoConfig)

	redisCache, err := cache.NewRedisCache(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to redis: %v", err)
	}
	defer redisCache.Close()

	blobStore, err := blob.NewMinioStore(cfg)
	if err != nil {
		log.Fatalf("Failed to init blob store: %v", err)
	}

	// Reconcile jobs mutate through the same engine as the server; side
	// effects here go to the noop queue so a repair cannot enqueue itself.
	hierarchySvc := hierarchy.NewService(
		folderRepo, docRepo, tagRepo, postgres.NewTransactionManager(pool),
		blobStore, redisCache, jobs.NoopIndex{}, jobs.NoopQueue{},
		logger,
	)

	processor := jobs.NewProcessor(
		redisCache,
		blobStore,
		hierarchySvc,
		&jobs.LogIndexSink{Logger: logger},
		logger,
	)

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		},
		asynq.Config{
			Concurrency: 10,
			Logger:      &asynqLogger{logger},
		},
	)

	if err := srv.Run(processor.Handler()); err != nil {
		log.Fatalf("Worker stopped: %v", err)
	}
}

// asynqLogger adapts slog to asynq's logger interface.
type asynqLogger struct {
	logger *slog.Logger
}

func (l *asynqLogger) Debug(args ...interface{}) { l.logger.Debug(format(args)) }
func (l *asynqLogger) Info(args ...interface{})  { l.logger.Info(format(args)) }
func (l *asynqLogger) Warn(args ...interface{})  { l.logger.Warn(format(args)) }
func (l *asynqLogger) Error(args ...interface{}) { l.logger.Error(format(args)) }
func (l *asynqLogger) Fatal(args ...interface{}) {
	l.logger.Error(format(args))
	os.Exit(1)
}

func format(args []interface{}) string {
	return fmt.Sprint(args...)
}
