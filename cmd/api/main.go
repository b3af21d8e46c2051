package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/minhvt/invoice-dash-back/internal/config"
	"github.com/minhvt/invoice-dash-back/internal/export"
	"github.com/minhvt/invoice-dash-back/internal/feed"
	httpserver "github.com/minhvt/invoice-dash-back/internal/http"
	"github.com/minhvt/invoice-dash-back/internal/http/handlers"
	"github.com/minhvt/invoice-dash-back/internal/parser"
	"github.com/minhvt/invoice-dash-back/internal/repository"
	"github.com/minhvt/invoice-dash-back/internal/service"
	"github.com/minhvt/invoice-dash-back/internal/storage"
	"github.com/minhvt/invoice-dash-back/internal/validation"
)

type repositories struct {
	jobs     repository.JobsRepository
	files    repository.FilesRepository
	invoices repository.InvoicesRepository
}

func main() {
	logger := log.New(os.Stdout, "[inv-back] ", log.LstdFlags|log.LUTC|log.Lmicroseconds)
	if err := config.LoadDotEnv(".env", ".env.local"); err != nil {
		logger.Printf("failed loading .env files: %v", err)
	}
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	changeFeed, feedCloser := setupFeed(ctx, cfg, logger)
	defer feedCloser()

	repos, repoCloser := setupRepositories(ctx, cfg, changeFeed, logger)
	defer repoCloser()

	store := storage.NewFSStore(cfg.StorageDir, cfg.StoragePublicBase)

	parserClient := parser.NewClient(parser.ClientConfig{
		BaseURL: cfg.ParserBaseURL,
		Timeout: time.Duration(cfg.ParserTimeoutMS) * time.Millisecond,
		Logger:  logger,
	})
	validator := validation.NewClient(validation.ClientConfig{
		BaseURL:   cfg.ValidationBaseURL,
		LookupURL: cfg.LookupURL,
		Timeout:   time.Duration(cfg.LookupTimeoutMS) * time.Millisecond,
		Logger:    logger,
	})

	jobsService := service.NewJobsService(repos.jobs, repos.files, store, parserClient, logger)
	filesService := service.NewFilesService(repos.files, repos.jobs, repos.invoices, logger)
	invoicesService := service.NewInvoicesService(repos.invoices, validator, logger)
	exportService := export.NewService(repos.invoices, repos.files, logger)

	api := handlers.NewAPI(handlers.APIConfig{
		Jobs:           jobsService,
		Files:          filesService,
		Invoices:       invoicesService,
		Export:         exportService,
		Subscriber:     changeFeed,
		Logger:         logger,
		MaxUploadBytes: cfg.MaxUploadBytes,
	})

	handler := httpserver.NewRouter(httpserver.RouterDependencies{
		API:            api,
		Logger:         logger,
		AuthToken:      cfg.AuthToken,
		CORSOrigins:    cfg.CORSAllowedOrigins,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Printf("api listening on :%s", cfg.Port)
		errChan <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Printf("shutdown signal received")
	case err := <-errChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Printf("server failed: %v", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Printf("graceful shutdown failed: %v", err)
	}
}

// setupFeed prefers redis pub/sub so every instance sees every row change;
// without REDIS_ADDR a single-process in-memory feed serves the same
// contract.
func setupFeed(
	ctx context.Context,
	cfg config.Config,
	logger *log.Logger,
) (interface {
	feed.Publisher
	feed.Subscriber
}, func()) {
	if cfg.RedisAddr == "" {
		logger.Printf("REDIS_ADDR not configured, using local change feed")
		return feed.NewLocalFeed(0, logger), func() {}
	}

	redisFeed, err := feed.NewRedisFeed(ctx, feed.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		Prefix:   cfg.FeedPrefix,
	}, logger)
	if err != nil {
		logger.Printf("failed to initialize redis change feed, fallback to local: %v", err)
		return feed.NewLocalFeed(0, logger), func() {}
	}
	logger.Printf("redis change feed initialized")
	return redisFeed, func() {
		_ = redisFeed.Close()
	}
}

func setupRepositories(
	ctx context.Context,
	cfg config.Config,
	publisher feed.Publisher,
	logger *log.Logger,
) (repositories, func()) {
	memory := func() repositories {
		return repositories{
			jobs:     repository.NewMemoryJobsRepository(publisher, logger),
			files:    repository.NewMemoryFilesRepository(publisher, logger),
			invoices: repository.NewMemoryInvoicesRepository(publisher, logger),
		}
	}

	if cfg.DatabaseURL == "" {
		logger.Printf("DATABASE_URL not configured, using in-memory repositories")
		return memory(), func() {}
	}

	pool, err := repository.OpenPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Printf("failed to initialize postgres pool, fallback to memory: %v", err)
		return memory(), func() {}
	}
	logger.Printf("postgres repositories initialized")
	return repositories{
		jobs:     repository.NewPostgresJobsRepository(pool, publisher, logger),
		files:    repository.NewPostgresFilesRepository(pool, publisher, logger),
		invoices: repository.NewPostgresInvoicesRepository(pool, publisher, logger),
	}, func() {
		pool.Close()
	}
}
