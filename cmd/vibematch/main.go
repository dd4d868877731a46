package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vibematch/internal/config"
	"github.com/kailas-cloud/vibematch/internal/db"
	dbRedis "github.com/kailas-cloud/vibematch/internal/db/redis"
	logpkg "github.com/kailas-cloud/vibematch/internal/logger"
	"github.com/kailas-cloud/vibematch/internal/metrics"
	"github.com/kailas-cloud/vibematch/internal/repository/embcache"
	exclusionrepo "github.com/kailas-cloud/vibematch/internal/repository/exclusion"
	exposurerepo "github.com/kailas-cloud/vibematch/internal/repository/exposure"
	chiTransport "github.com/kailas-cloud/vibematch/internal/transport/chi"
	openaiEmb "github.com/kailas-cloud/vibematch/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/vibematch/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/vibematch/internal/usecase/health"
	historyuc "github.com/kailas-cloud/vibematch/internal/usecase/history"
	"github.com/kailas-cloud/vibematch/internal/usecase/rank"
	recommenduc "github.com/kailas-cloud/vibematch/internal/usecase/recommend"
	vectorizeuc "github.com/kailas-cloud/vibematch/internal/usecase/vectorize"
	"github.com/kailas-cloud/vibematch/internal/version"
)

func main() {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting vibematch API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	// Valkey and Redis share the rueidis store.
	store, err := dbRedis.NewStore(dbRedis.Config{
		Driver:   cfg.Database.Driver,
		Addrs:    cfg.Database.Addrs,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
		DB:       cfg.Database.DB,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Explicit registration, no init()
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterRankingMetrics()

	vecCfg := cfg.Embedding.Vectorizer
	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.Embedding.Providers[vecCfg.Provider].APIKey,
		BaseURL:    cfg.Embedding.Providers[vecCfg.Provider].BaseURL,
		Model:      vecCfg.Model,
		Dimensions: vecCfg.Dimensions,
		Provider:   vecCfg.Provider,
		Logger:     logger,
	})
	breaker, embedder := buildEmbedder(cfg, base, store, logger)
	logger.Info("Embedder created",
		zap.String("provider", vecCfg.Provider),
		zap.String("model", vecCfg.Model),
		zap.Int("chunk_size", vecCfg.ChunkSize),
		zap.Bool("cache", cfg.Embedding.Cache.IsEnabled()),
	)

	vectorizeSvc := vectorizeuc.New(embedder, logger)

	ranker := rank.New().
		WithBoost(cfg.Ranking.Boost()).
		WithDefaultLimit(cfg.Ranking.DefaultLimit)

	var history recommenduc.History
	if cfg.History.IsEnabled() {
		history = historyuc.New(exposurerepo.New(store, cfg.Storage.KeyPrefix))
	}
	recommendSvc := recommenduc.New(ranker, history, exclusionrepo.New(store, cfg.Storage.KeyPrefix), logger).
		WithLimits(cfg.Ranking.DefaultLimit, cfg.Ranking.MaxLimit).
		WithTimeouts(cfg.History.ReadTimeout(), cfg.History.WriteTimeout())

	healthSvc := healthuc.New(store, base).
		WithCheck("embedding_breaker", func(context.Context) error {
			if breaker.State() == gobreaker.StateOpen {
				return errors.New("circuit open")
			}
			return nil
		})

	server := chiTransport.NewServer(vectorizeSvc, recommendSvc, healthSvc, logger).
		WithMaxBodyBytes(cfg.HTTP.MaxBodyBytes)

	r := chi.NewRouter()
	r.Use(chiTransport.JSONRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(chiTransport.WideEvent(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"code":"not_found","message":"route not found"}`))
	})
	server.Register(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildEmbedder assembles the decorator chain: OpenAI -> Breaker -> Instrumented -> Cached.
// Cache hits never reach the breaker or the provider.
func buildEmbedder(
	cfg config.Config,
	base *openaiEmb.Embedder,
	store db.Store,
	logger *zap.Logger,
) (*embeddinguc.BreakerEmbedder, vectorizeuc.Embedder) {
	vecCfg := cfg.Embedding.Vectorizer
	bc := cfg.Embedding.Breaker

	breaker := embeddinguc.NewBreakerEmbedder(base, vecCfg.Provider, embeddinguc.BreakerConfig{
		FailureThreshold: bc.FailureThreshold,
		MaxRequests:      bc.MaxRequests,
		Interval:         time.Duration(bc.IntervalSec) * time.Second,
		Timeout:          time.Duration(bc.TimeoutSec) * time.Second,
	}, logger)

	instrumented := embeddinguc.NewInstrumentedEmbedder(breaker, vecCfg.Provider, vecCfg.Model, logger).
		WithChunkSize(vecCfg.ChunkSize)

	if !cfg.Embedding.Cache.IsEnabled() {
		return breaker, instrumented
	}
	cached := embcache.New(instrumented, store, cfg.Storage.KeyPrefix, metrics.EmbeddingCacheTotal, logger).
		WithModel(vecCfg.Model, vecCfg.Dimensions).
		WithTTL(cfg.Embedding.Cache.TTL())
	return breaker, cached
}
