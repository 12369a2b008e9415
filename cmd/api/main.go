package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/user/keyword-service/internal/adapter/briefs"
	"github.com/user/keyword-service/internal/adapter/embed"
	"github.com/user/keyword-service/internal/adapter/postgres"
	redis_adapter "github.com/user/keyword-service/internal/adapter/redis"
	"github.com/user/keyword-service/internal/adapter/serpapi"
	"github.com/user/keyword-service/internal/adapter/suggest"
	"github.com/user/keyword-service/internal/adapter/trends"
	"github.com/user/keyword-service/internal/clustering"
	"github.com/user/keyword-service/internal/delivery/http/handler"
	"github.com/user/keyword-service/internal/delivery/http/router"
	"github.com/user/keyword-service/internal/entity"
	"github.com/user/keyword-service/internal/gateway"
	"github.com/user/keyword-service/internal/usecase"
	"github.com/user/keyword-service/pkg/config"
	"github.com/user/keyword-service/pkg/logger"
	"github.com/user/keyword-service/pkg/metrics"
)

func main() {
	// --- Configuration ---
	cfg := config.Load()

	// --- Logger ---
	logLevel := logger.ParseLevel(cfg.LogLevel)
	logger.Init(os.Stdout, logLevel)
	slog.Info("Logger initialized", "level", logLevel.String())

	// --- Metrics ---
	metrics.Init()
	slog.Info("Metrics initialized")

	// --- Pipeline configuration ---
	pipeline, err := config.LoadPipeline(cfg.PipelineConfigPath)
	if err != nil {
		slog.Error("Unable to load pipeline config", "path", cfg.PipelineConfigPath, "error", err)
		os.Exit(1)
	}

	// --- Database Connections ---
	ctx := context.Background()

	// PostgreSQL
	pgConnString := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		cfg.PostgresUser, cfg.PostgresPassword, cfg.PostgresHost, cfg.PostgresPort, cfg.PostgresDB)
	dbpool, err := pgxpool.New(ctx, pgConnString)
	if err != nil {
		slog.Error("Unable to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbpool.Close()
	slog.Info("PostgreSQL connection pool established")

	// Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		slog.Error("Unable to connect to Redis", "error", err)
		os.Exit(1)
	}
	slog.Info("Redis connection established")

	// --- Repositories ---
	cacheRepo := redis_adapter.NewCacheRepo(rdb)
	keywordRepo := postgres.NewKeywordRepo(dbpool)
	snapshotRepo := postgres.NewSnapshotRepo(dbpool)
	checkpointRepo := postgres.NewCheckpointRepo(dbpool)
	clusterRepo := postgres.NewClusterRepo(dbpool)
	auditRepo := postgres.NewAuditRepo(dbpool)
	projectRepo := postgres.NewProjectRepo(dbpool)

	// --- Collaborators ---
	httpClient := &http.Client{Timeout: cfg.ProviderTimeout}
	serpProvider := serpapi.New(httpClient, cfg.SerpAPIBaseURL, cfg.SerpAPIKey)
	trendsProvider := trends.New(httpClient, cfg.TrendsBaseURL)
	suggestProvider := suggest.NewProvider(httpClient, cfg.SuggestBaseURL)
	embedder := embed.New()
	briefSink := briefs.New(cfg.BriefsDir)
	clusterer := clustering.New(pipeline.Clustering)

	// --- Use Cases ---
	// Each run gets its own gateway so quota ledgers and token buckets
	// never leak across projects; the cache behind it is shared.
	factory := func(project *entity.Project) (usecase.Runner, error) {
		gw, err := gateway.New(project.ID, pipeline, cacheRepo, auditRepo,
			serpProvider, trendsProvider, suggestProvider)
		if err != nil {
			return nil, err
		}
		expander := suggest.NewExpander(gw)
		return usecase.NewPipeline(
			gw, expander, embedder,
			keywordRepo, snapshotRepo, checkpointRepo, clusterRepo,
			briefSink, clusterer, &pipeline.Scoring, cfg.MaxConcurrency,
		), nil
	}
	runManager := usecase.NewRunManager(factory, projectRepo, checkpointRepo)

	// --- HTTP Server ---
	apiHandler := handler.NewHandler(runManager)
	httpRouter := router.New(apiHandler)

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      httpRouter,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	slog.Info("Starting server", "port", cfg.ServerPort)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("Could not listen on port", "port", cfg.ServerPort, "error", err)
		os.Exit(1)
	}
}
