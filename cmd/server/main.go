package main

import (
	"context"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"doctree/internal/blob"
	"doctree/internal/cache"
	"doctree/internal/config"
	"doctree/internal/domain/repositories"
	"doctree/internal/domain/services"
	"doctree/internal/handler"
	"doctree/internal/jobs"
	"doctree/internal/middleware"
	"doctree/internal/repository/memory"
	"doctree/internal/repository/postgres"
	"doctree/internal/service/hierarchy"
	"doctree/internal/service/query"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Setup structured logging
	logLevel := slog.LevelInfo
	if cfg.Debug {
		logLevel = slog.LevelDebug
	}

	var logOut io.Writer = os.Stdout
	if cfg.LogDir != "" {
		logFile, err := config.SetupLogFile(cfg.LogDir, cfg.LogMaxFiles)
		if err != nil {
			log.Fatalf("Failed to set up log file: %v", err)
		}
		defer logFile.Close()
		logOut = io.MultiWriter(os.Stdout, logFile)
	}

	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"backend", cfg.Backend,
	)

	ctx := context.Background()

	// Metadata store
	var (
		folderRepo repositories.FolderRepository
		docRepo    repositories.DocumentRepository
		tagRepo    repositories.TagRepository
		txManager  repositories.TransactionManager
	)
	switch cfg.Backend {
	case "memory":
		store := memory.NewStore()
		folderRepo = store.Folders()
		docRepo = store.Documents()
		tagRepo = store.Tags()
		txManager = memory.NewTxManager()
		logger.Warn("memory backend: all state is lost on restart")
	default:
		pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to create connection pool: %v", err)
		}
		defer pool.Close()

		tables := postgres.NewTableNames(cfg.TablePrefix)
		if err := postgres.EnsureSchema(ctx, pool, tables); err != nil {
			log.Fatalf("Failed to ensure schema: %v", err)
		}
		logger.Info("database connected", "table_prefix", cfg.TablePrefix)

		repoConfig := &postgres.RepositoryConfig{
			Pool:   pool,
			Tables: tables,
			Logger: logger,
		}
		folderRepo = postgres.NewFolderRepository(repoConfig)
		docRepo = postgres.NewDocumentRepository(repoConfig)
		tagRepo = postgres.NewTagRepository(repoConfig)
		txManager = postgres.NewTransactionManager(pool)
	}

	// Cache layer (advisory; memory mode runs uncached)
	var cacheLayer services.Cache
	if cfg.Backend == "memory" {
		cacheLayer = cache.NewNoopCache()
	} else {
		redisCache, err := cache.NewRedisCache(ctx, cfg)
		if err != nil {
			log.Fatalf("Failed to connect to redis: %v", err)
		}
		defer redisCache.Close()
		cacheLayer = redisCache
		logger.Info("cache connected", "addr", cfg.RedisAddr)
	}

	// Blob store
	var blobStore services.BlobStore
	if cfg.Backend == "memory" {
		blobStore = blob.NewMemoryStore()
	} else {
		minioStore, err := blob.NewMinioStore(cfg)
		if err != nil {
			log.Fatalf("Failed to init blob store: %v", err)
		}
		if err := minioStore.EnsureBucket(ctx); err != nil {
			log.Fatalf("Failed to ensure blob bucket: %v", err)
		}
		blobStore = minioStore
		logger.Info("blob store connected", "endpoint", cfg.BlobEndpoint, "bucket", cfg.BlobBucket)
	}

	// Job queue and search-index emission
	var (
		jobQueue    services.JobQueue
		searchIndex services.SearchIndex
	)
	if cfg.Backend == "memory" {
		jobQueue = jobs.NoopQueue{}
		searchIndex = jobs.NoopIndex{}
	} else {
		client := asynq.NewClient(asynq.RedisClientOpt{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer client.Close()
		enqueuer := jobs.NewEnqueuer(client)
		jobQueue = enqueuer
		searchIndex = enqueuer
	}

	// Services
	hierarchySvc := hierarchy.NewService(folderRepo, docRepo, tagRepo, txManager, blobStore, cacheLayer, searchIndex, jobQueue, logger)
	querySvc := query.NewService(folderRepo, docRepo, tagRepo, cacheLayer, cfg.CacheTTL, logger)

	// Bootstrap the root folder singleton
	if err := hierarchySvc.EnsureRoot(ctx); err != nil {
		log.Fatalf("Failed to ensure root folder: %v", err)
	}

	// Handlers
	folderHandler := handler.NewFolderHandler(hierarchySvc, querySvc, logger)
	documentHandler := handler.NewDocumentHandler(hierarchySvc, querySvc, blobStore, logger)
	treeHandler := handler.NewTreeHandler(querySvc, logger)
	tagHandler := handler.NewTagHandler(querySvc, logger)

	logger.Info("services initialized")

	// Create HTTP router (Go 1.22+ enhanced patterns)
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", documentHandler.HealthCheck)

	// Tree routes
	mux.HandleFunc("GET /api/tree", treeHandler.GetTree)
	mux.HandleFunc("GET /api/folders/{id}/tree", treeHandler.GetSubtree)

	// Folder routes
	mux.HandleFunc("POST /api/folders", folderHandler.CreateFolder)
	mux.HandleFunc("GET /api/folders/{id}", folderHandler.GetFolder)
	mux.HandleFunc("PATCH /api/folders/{id}", folderHandler.UpdateFolder)
	mux.HandleFunc("DELETE /api/folders/{id}", folderHandler.DeleteFolder)
	mux.HandleFunc("POST /api/folders/{id}/reconcile", folderHandler.ReconcileFolder)

	// Document routes
	mux.HandleFunc("POST /api/documents", documentHandler.UploadDocument)
	mux.HandleFunc("GET /api/documents/{id}", documentHandler.GetDocument)
	mux.HandleFunc("GET /api/documents/{id}/content", documentHandler.DownloadDocument)
	mux.HandleFunc("PATCH /api/documents/{id}", documentHandler.UpdateDocument)
	mux.HandleFunc("DELETE /api/documents/{id}", documentHandler.DeleteDocument)

	// Tag routes
	mux.HandleFunc("GET /api/tags", tagHandler.ListTags)

	// Build middleware chain
	var root http.Handler = mux
	root = middleware.Recovery(logger)(root)

	// CORS - outermost so OPTIONS pre-flight requests short-circuit
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
	})
	root = corsHandler.Handler(root)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      root,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Serve until interrupted, then drain in-flight requests.
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "port", cfg.Port)
		errCh <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	case sig := <-stop:
		logger.Info("shutting down", "signal", sig.String())
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", "error", err)
		}
	}
}
