// Package main runs the dynamic NFT generator service:
// - Polling engine (continuous): activity feed dedup + artwork + metadata pipeline
// - HTTP API: gallery listing, manual generate/regenerate/evolve, webhook ingest
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/019ec6e2/dynamic-nft-generator/internal/api"
	"github.com/019ec6e2/dynamic-nft-generator/internal/artwork"
	"github.com/019ec6e2/dynamic-nft-generator/internal/chain"
	"github.com/019ec6e2/dynamic-nft-generator/internal/fetcher"
	"github.com/019ec6e2/dynamic-nft-generator/internal/metaplex"
	"github.com/019ec6e2/dynamic-nft-generator/internal/objectstore"
	"github.com/019ec6e2/dynamic-nft-generator/internal/observability"
	"github.com/019ec6e2/dynamic-nft-generator/internal/prompt"
	"github.com/019ec6e2/dynamic-nft-generator/internal/storage"
	"github.com/019ec6e2/dynamic-nft-generator/internal/storage/memory"
	"github.com/019ec6e2/dynamic-nft-generator/internal/storage/migrations"
	pgstore "github.com/019ec6e2/dynamic-nft-generator/internal/storage/postgres"
)

func main() {
	// Load .env file if exists
	_ = godotenv.Load()

	// Parse flags (env vars as defaults)
	listenAddr := flag.String("listen-addr", envOr("LISTEN_ADDR", ":3000"), "HTTP API listen address")
	metricsAddr := flag.String("metrics-addr", envOr("METRICS_ADDR", ":9090"), "Prometheus metrics HTTP address")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	activityURL := flag.String("activity-url", os.Getenv("ACTIVITY_API_URL"), "Sale activity feed endpoint")
	proxyURL := flag.String("proxy-url", os.Getenv("PROXY_URL"), "Optional HTTP proxy for the activity feed")
	fetchInterval := flag.Duration("fetch-interval", time.Minute, "Activity polling interval")
	generationURL := flag.String("generation-url", os.Getenv("GENERATION_API_URL"), "Image generation service endpoint")
	generationKey := flag.String("generation-key", os.Getenv("GENERATION_API_KEY"), "Image generation service API key")
	controlImage := flag.String("control-image", os.Getenv("CONTROL_IMAGE_URL"), "Fixed reference control image URL")
	storageURL := flag.String("storage-url", os.Getenv("STORAGE_URL"), "Object storage base URL")
	storageKey := flag.String("storage-key", os.Getenv("STORAGE_KEY"), "Object storage API key")
	storageBucket := flag.String("storage-bucket", envOr("STORAGE_BUCKET", "nft-images"), "Object storage bucket")
	rpcEndpoint := flag.String("rpc-endpoint", os.Getenv("SOLANA_RPC_ENDPOINT"), "Solana RPC HTTP endpoint")
	wsEndpoint := flag.String("ws-endpoint", os.Getenv("SOLANA_WS_ENDPOINT"), "Solana WebSocket endpoint")
	authorityKey := flag.String("authority-key", os.Getenv("SOLANA_PRIVATE_KEY"), "Base58 authority secret key")
	collectionID := flag.String("collection-id", os.Getenv("SOLANA_COLLECTION_ID"), "Optional collection id")
	promptsFile := flag.String("prompts-file", envOr("PROMPTS_FILE", "data/prompts.txt"), "Newline-separated prompt file")

	flag.Parse()

	// Setup logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	// Validate required flags
	if *activityURL == "" {
		logger.Fatal("--activity-url is required")
	}
	if *generationURL == "" {
		logger.Fatal("--generation-url is required")
	}
	if *storageURL == "" || *storageKey == "" {
		logger.Fatal("--storage-url and --storage-key are required")
	}
	if *rpcEndpoint == "" {
		logger.Fatal("--rpc-endpoint is required")
	}
	if *authorityKey == "" {
		logger.Fatal("--authority-key is required")
	}
	if !*useMemory && *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required (use --use-memory for in-memory storage)")
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Create store
	store, cleanup, err := createStore(ctx, *postgresDSN, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create store: %v", err)
	}
	defer cleanup()

	// Assemble components
	keypair, err := chain.NewKeypairFromBase58(*authorityKey)
	if err != nil {
		logger.Fatalf("Failed to load authority key: %v", err)
	}
	logger.WithField("authority", keypair.Address()).Info("authority key loaded")

	objects := objectstore.NewClient(*storageURL, *storageKey, *storageBucket)
	generator := artwork.NewGenerator(*generationURL, *generationKey, *controlImage)
	pipeline := artwork.NewPipeline(generator, objects, logger)
	prompts := prompt.NewSource(*promptsFile)

	var confirmer metaplex.Confirmer
	if *wsEndpoint != "" {
		confirmer = chain.NewConfirmationClient(*wsEndpoint, chain.DefaultConfirmTimeout)
	}
	updater := metaplex.NewUpdater(metaplex.Options{
		Client:     chain.NewClient(*rpcEndpoint, keypair),
		Confirmer:  confirmer,
		Uploader:   objects,
		Collection: *collectionID,
		Logger:     logger,
	})

	activityClient, err := fetcher.NewActivityClient(*activityURL, *proxyURL)
	if err != nil {
		logger.Fatalf("Failed to create activity client: %v", err)
	}

	runner := fetcher.NewRunner(fetcher.RunnerOptions{
		Source:   activityClient,
		Store:    store,
		Prompts:  prompts,
		Artwork:  pipeline,
		Updater:  updater,
		Interval: *fetchInterval,
		Logger:   logger,
	})

	// HTTP API
	handlers := api.NewHandlers(store, prompts, pipeline, updater, logger)
	apiServer := &http.Server{
		Addr:    *listenAddr,
		Handler: api.NewRouter(handlers),
	}

	// Metrics endpoint
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", observability.Handler())
	metricsServer := &http.Server{Addr: *metricsAddr, Handler: metricsMux}

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		sig := <-sigCh
		logger.WithField("signal", sig.String()).Info("initiating graceful shutdown")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = apiServer.Shutdown(shutdownCtx)
		_ = metricsServer.Shutdown(shutdownCtx)

		// Second signal forces immediate exit
		select {
		case sig := <-sigCh:
			logger.WithField("signal", sig.String()).Warn("forcing immediate shutdown")
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Warn("graceful shutdown timed out, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	go func() {
		logger.WithField("addr", *metricsAddr).Info("metrics server listening")
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("metrics server failed")
		}
	}()

	go func() {
		logger.WithField("addr", *listenAddr).Info("api server listening")
		if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("api server failed")
		}
	}()

	// Run the polling engine; blocks until the context is cancelled.
	if err := runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.WithError(err).Error("polling runner stopped")
	}
	close(done)

	logger.Info("shutdown complete")
}

// createStore builds the transaction store and returns a cleanup function.
func createStore(ctx context.Context, dsn string, useMemory bool) (storage.TransactionStore, func(), error) {
	if useMemory {
		return memory.NewTransactionStore(), func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, dsn)
	if err != nil {
		return nil, nil, err
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return pgstore.NewTransactionStore(pool), pool.Close, nil
}

// envOr returns the env value or a default.
func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
