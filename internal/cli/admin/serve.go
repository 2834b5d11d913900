package admin

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/sifthq/docsift/internal/api/handlers"
	"github.com/sifthq/docsift/internal/catalog"
	"github.com/sifthq/docsift/internal/config"
	"github.com/sifthq/docsift/internal/database"
	"github.com/sifthq/docsift/internal/engine"
	"github.com/sifthq/docsift/internal/jobs"
	"github.com/sifthq/docsift/internal/openai"
	"github.com/sifthq/docsift/internal/rerank"
	"github.com/sifthq/docsift/internal/server"
	"github.com/sifthq/docsift/internal/service"
	"github.com/sifthq/docsift/internal/storage"
	"github.com/sifthq/docsift/internal/telemetry"
	"github.com/spf13/cobra"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the docsift API server on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")
	cmd.Flags().Bool("rebuild", false, "Rebuild the index from the source directory on startup")

	return cmd
}

// applyPortFlag lets --port override the configured port whenever it was
// given explicitly, even when its value equals the flag default.
func applyPortFlag(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("port") {
		cfg.Port, _ = cmd.Flags().GetString("port")
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize Sentry with tracing if SENTRY_DSN is set
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		environment := os.Getenv("ENVIRONMENT")
		if environment == "" {
			environment = "development"
		}

		// Default to 10% sampling in production, 100% in development
		sampleRate := 0.1
		if environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              dsn,
			Environment:      environment,
			TracesSampleRate: sampleRate,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	applyPortFlag(cmd, cfg)

	eng, err := buildEngine(cfg)
	if err != nil {
		return err
	}

	if err := eng.Load(); err != nil {
		// A corrupt store is recoverable through a rebuild; keep serving
		// empty rather than refusing to start.
		log.Printf("failed to load persisted store (run rebuild to recover): %v", err)
	} else if eng.State() == engine.StateReady {
		log.Printf("loaded persisted store: %d chunks", eng.Len())
	}

	if rebuildFlag, _ := cmd.Flags().GetBool("rebuild"); rebuildFlag {
		report, err := eng.Rebuild(ctx, cfg.SourceDir)
		if err != nil {
			return fmt.Errorf("startup rebuild failed: %w", err)
		}
		log.Printf("startup rebuild: %s", report.Summary())
	}

	var searchLogs service.SearchLogRepository
	var documents service.DocumentRepository
	var documentWriter storage.CatalogWriter
	if cfg.HasCatalog() {
		pool, err := database.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pool.Close()
		log.Println("connected to database")

		// Run migrations unless --no-migrate flag is set
		noMigrate, _ := cmd.Flags().GetBool("no-migrate")
		if !noMigrate {
			if err := runMigrations(cfg.DatabaseURL); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}
		}

		docRepo := catalog.NewDocumentRepository(pool)
		searchLogs = catalog.NewSearchLogRepository(pool)
		documents = docRepo
		documentWriter = docRepo
	}

	var answerer service.Answerer
	if cfg.HasOpenAI() {
		answerer = openai.NewAnswerer(cfg.OpenAIAPIKey, cfg.AnswerModel)
	}

	retrievalSvc := service.NewRetrievalService(eng, answerer, searchLogs, documents)

	var syncWorker *jobs.Worker
	if cfg.HasS3() {
		s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		})
		if err != nil {
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := s3Client.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		log.Printf("S3 bucket '%s' ready", cfg.S3Bucket)

		if cfg.SyncIntervalSeconds > 0 {
			syncer := storage.NewSyncer(s3Client, documentWriter, cfg.SourceDir)
			processor := jobs.NewSyncProcessor(syncer, retrievalSvc, cfg.SourceDir)
			syncWorker = jobs.NewWorker(processor, time.Duration(cfg.SyncIntervalSeconds)*time.Second)
			go syncWorker.Start(ctx)
			log.Println("sync worker started")
		}
	}

	routerCfg := server.RouterConfig{
		SearchHandler: handlers.NewSearchHandler(retrievalSvc),
		AdminHandler:  handlers.NewAdminHandler(retrievalSvc, cfg.SourceDir),
	}

	router := server.NewRouter(routerCfg)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	if syncWorker != nil {
		syncWorker.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

// buildEngine wires the embedding and reranking providers into an engine.
func buildEngine(cfg *config.Config) (*engine.Engine, error) {
	if !cfg.HasOpenAI() {
		return nil, fmt.Errorf("DOCSIFT_OPENAI_API_KEY is required: queries need an embedding provider")
	}

	embedder := openai.NewClientWithConfig(openai.Config{
		APIKey:              cfg.OpenAIAPIKey,
		EmbeddingModel:      openai.EmbeddingModelFromString(cfg.EmbeddingModel),
		EmbeddingDimensions: cfg.EmbeddingDimensions,
	})

	var reranker engine.Reranker
	if cfg.HasReranker() {
		client, err := rerank.NewClient(cfg.RerankerEndpoint)
		if err != nil {
			return nil, fmt.Errorf("failed to create reranker client: %w", err)
		}
		reranker = client
	}

	return engine.New(engine.Config{
		Dimension: cfg.EmbeddingDimensions,
		StoreDir:  cfg.StoreDir,
		Embedder:  embedder,
		Reranker:  reranker,
	})
}

func runMigrations(databaseURL string) error {
	// Create a sql.DB connection for golang-migrate
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	// Create postgres driver instance
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	// Create migrate instance with file source
	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	// Run migrations
	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	// Get migration version and status
	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if err == migrate.ErrNilVersion {
		log.Println("migrations: database is up to date (no migrations applied)")
	} else if dirty {
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	} else if err == migrate.ErrNoChange {
		log.Printf("migrations: database is up to date (version %d)", version)
	} else {
		log.Printf("migrations: applied successfully (version %d)", version)
	}

	return nil
}
