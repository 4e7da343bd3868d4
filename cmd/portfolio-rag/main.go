package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/medevs/local-smart-portfolio/internal/config"
	"github.com/medevs/local-smart-portfolio/internal/db"
	dbMemory "github.com/medevs/local-smart-portfolio/internal/db/memory"
	dbRedis "github.com/medevs/local-smart-portfolio/internal/db/redis"
	"github.com/medevs/local-smart-portfolio/internal/domain"
	"github.com/medevs/local-smart-portfolio/internal/lexical"
	logpkg "github.com/medevs/local-smart-portfolio/internal/logger"
	"github.com/medevs/local-smart-portfolio/internal/metrics"
	"github.com/medevs/local-smart-portfolio/internal/repository/embcache"
	semanticrepo "github.com/medevs/local-smart-portfolio/internal/repository/semantic"
	chiTransport "github.com/medevs/local-smart-portfolio/internal/transport/chi"
	openaiTransport "github.com/medevs/local-smart-portfolio/internal/transport/openai"
	"github.com/medevs/local-smart-portfolio/internal/usecase/health"
	"github.com/medevs/local-smart-portfolio/internal/usecase/ingest"
	"github.com/medevs/local-smart-portfolio/internal/usecase/pipeline"
	"github.com/medevs/local-smart-portfolio/internal/usecase/rerank"
	"github.com/medevs/local-smart-portfolio/internal/usecase/rewrite"
	"github.com/medevs/local-smart-portfolio/internal/usecase/router"
	"github.com/medevs/local-smart-portfolio/internal/usecase/search"
	"github.com/medevs/local-smart-portfolio/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting portfolio RAG API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	// Create vector store based on driver
	var store db.Store
	switch cfg.Database.Driver {
	case "redis":
		store, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:     cfg.Database.Addrs,
			Password:  cfg.Database.Password,
			KeyPrefix: cfg.Storage.KeyPrefix,
		})
		if err != nil {
			logger.Fatal("Failed to create database store", zap.Error(err))
		}
	case "memory":
		store = dbMemory.NewStore()
	default:
		logger.Fatal("Unknown database driver", zap.String("driver", cfg.Database.Driver))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterPipelineMetrics()

	// Embedder chain: OpenAI-compatible provider, optionally cached in the KV store
	baseEmbedder := openaiTransport.NewEmbedder(&openaiTransport.EmbedderConfig{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Timeout:    time.Duration(cfg.Embedding.TimeoutSec) * time.Second,
		Logger:     logger,
	})
	var embedder domain.Embedder = baseEmbedder
	if cfg.Embedding.Cache {
		embedder = embcache.New(baseEmbedder, store, cfg.Storage.KeyPrefix, metrics.EmbeddingCacheTotal, logger)
	}
	logger.Info("Embedder created",
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
		zap.Bool("cache", cfg.Embedding.Cache),
	)

	// Generators: answers use the full timeout, rewrites a shorter one
	generator := openaiTransport.NewGenerator(&openaiTransport.GeneratorConfig{
		APIKey:  cfg.Generation.APIKey,
		BaseURL: cfg.Generation.BaseURL,
		Model:   cfg.Generation.Model,
		Timeout: time.Duration(cfg.Generation.TimeoutSec) * time.Second,
		Logger:  logger,
	})
	rewriteGenerator := openaiTransport.NewGenerator(&openaiTransport.GeneratorConfig{
		APIKey:  cfg.Generation.APIKey,
		BaseURL: cfg.Generation.BaseURL,
		Model:   cfg.Generation.Model,
		Timeout: time.Duration(cfg.Generation.RewriteTimeoutSec) * time.Second,
		Logger:  logger,
	})

	// Repositories
	semRepo := semanticrepo.New(store, embedder, logger)
	if err := semRepo.EnsureIndex(ctx, cfg.Embedding.Dimensions); err != nil {
		logger.Fatal("Failed to ensure vector index", zap.Error(err))
	}

	// Use case services
	routerSvc := router.New(router.Config{
		Subject:           cfg.Routing.Subject,
		Greetings:         cfg.Routing.Greetings,
		Chitchat:          cfg.Routing.Chitchat,
		PortfolioKeywords: cfg.Routing.PortfolioKeywords,
		BuiltinTopics:     cfg.Routing.BuiltinTopics,
		DetailTopics:      cfg.Routing.DetailTopics,
	}, logger)

	rewriteSvc := rewrite.New(rewriteGenerator, rewrite.Config{
		Subject:    cfg.Routing.Subject,
		Pronouns:   cfg.Routing.Pronouns,
		Expansions: cfg.Routing.Expansions,
	}, logger)

	lexIndex := lexical.NewIndex(
		lexical.SynonymsFromExpansions(rewriteSvc.ExpansionTable()), logger)

	searchSvc := search.New(semRepo, lexIndex, search.Config{
		TopK:            cfg.Retrieval.TopK,
		SemanticWeight:  cfg.Retrieval.SemanticWeight,
		LexicalWeight:   cfg.Retrieval.LexicalWeight,
		Fusion:          cfg.Retrieval.Fusion,
		DisableSemantic: cfg.Retrieval.DisableSemantic,
		DisableLexical:  cfg.Retrieval.DisableLexical,
	}, logger)

	var reranker pipeline.Reranker
	switch cfg.Retrieval.Reranker {
	case "model":
		reranker = rerank.NewModel(generator, logger)
	default:
		reranker = rerank.NewHeuristic(logger)
	}

	pipelineSvc := pipeline.New(
		routerSvc, rewriteSvc, searchSvc, reranker, generator,
		pipeline.Config{
			RerankTopK:   cfg.Retrieval.RerankTopK,
			HistoryTurns: cfg.Retrieval.HistoryTurns,
		},
		logger,
	)

	chunker := ingest.NewChunker(cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap)
	ingestSvc := ingest.New(semRepo, embedder, lexIndex, chunker, logger)

	// Seed the lexical index from whatever the store already holds.
	if err := ingestSvc.RefreshLexical(ctx); err != nil {
		logger.Warn("Initial lexical index build failed", zap.Error(err))
	}

	healthSvc := health.New(store, baseEmbedder, generator)

	server := chiTransport.NewServer(pipelineSvc, ingestSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(metrics.Middleware())
	server.Register(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.String("request_id", chiMiddleware.GetReqID(r.Context())),
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
