package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"
	milvus "github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/finsight/finsight/internal/api"
	"github.com/finsight/finsight/internal/cache"
	"github.com/finsight/finsight/internal/config"
	"github.com/finsight/finsight/internal/embedding"
	"github.com/finsight/finsight/internal/engine"
	"github.com/finsight/finsight/internal/expand"
	"github.com/finsight/finsight/internal/llm"
	"github.com/finsight/finsight/internal/memory"
	"github.com/finsight/finsight/internal/post"
	"github.com/finsight/finsight/internal/rerank"
	"github.com/finsight/finsight/internal/retriever"
	"github.com/finsight/finsight/internal/vectordb"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml")
	flag.Parse()

	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("configuration error", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	milvusClient, err := milvus.NewClient(ctx, milvus.Config{
		Address: cfg.VectorDB.Address,
		APIKey:  cfg.VectorDB.APIKey,
	})
	if err != nil {
		log.Fatal("milvus connection failed", zap.Error(err))
	}
	defer milvusClient.Close()

	index := vectordb.NewMilvusStore(vectordb.MilvusConfig{
		Client:      milvusClient,
		Collection:  cfg.VectorDB.Collection,
		VectorField: cfg.VectorDB.VectorField,
	})

	embedder := embedding.NewOpenAIProvider(embedding.OpenAIConfig{
		APIKey:  cfg.Embedding.APIKey,
		BaseURL: cfg.Embedding.BaseURL,
		Model:   cfg.Embedding.Model,
		Timeout: cfg.Embedding.Timeout.Duration,
	})
	generator := llm.NewOpenAIProvider(llm.OpenAIConfig{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Timeout:     cfg.LLM.Timeout.Duration,
	})

	embedCache := cache.NewEmbeddingCache(cfg.Caches.Embedding.Capacity, cfg.Caches.Embedding.TTL.Duration, cfg.Embedding.Model)
	resultCache := cache.NewResultCache(cfg.Caches.Results.Capacity, cfg.Caches.Results.TTL.Duration)

	estimator := memory.NewTokenEstimator()
	var conversations memory.Store
	if cfg.Conversation.RedisAddr != "" {
		conversations = memory.NewRedisStore(memory.RedisStoreConfig{
			Client:       redis.NewClient(&redis.Options{Addr: cfg.Conversation.RedisAddr, DB: cfg.Conversation.RedisDB}),
			SessionTTL:   cfg.Conversation.IdleTTL.Duration,
			MaxExchanges: cfg.Conversation.MaxExchanges,
			TokenBudget:  cfg.Conversation.TokenBudget,
			RenderLimit:  cfg.Conversation.RenderLimit,
			Estimator:    estimator,
		})
	} else {
		store := memory.NewInMemoryStore(memory.InMemoryStoreConfig{
			MaxExchanges: cfg.Conversation.MaxExchanges,
			TokenBudget:  cfg.Conversation.TokenBudget,
			RenderLimit:  cfg.Conversation.RenderLimit,
			Estimator:    estimator,
		})
		go sweepIdleSessions(ctx, store, cfg.Conversation.IdleTTL.Duration, log)
		conversations = store
	}

	eng := engine.New(engine.Config{
		RetrievalTopK:     cfg.Pipeline.RetrievalTopK,
		FinalTopK:         cfg.Pipeline.FinalTopK,
		EnableExpansion:   *cfg.Pipeline.EnableExpansion,
		EnableRerank:      *cfg.Pipeline.EnableRerank,
		EnableCompression: *cfg.Pipeline.EnableCompression,
	}, engine.Deps{
		Log:           log,
		EmbedCache:    embedCache,
		ResultCache:   resultCache,
		Conversations: conversations,
		Expander:      expand.NewExpander(generator, cfg.Pipeline.MaxQueryVariants, log),
		Retriever: &retriever.VectorRetriever{
			Embedder: &retriever.CachedEmbedder{Provider: embedder, Cache: embedCache},
			Store:    index,
			TopK:     cfg.Pipeline.RetrievalTopK,
			Log:      log,
		},
		Index:      index,
		Reranker:   rerank.NewMMR(cfg.Pipeline.MMRLambda),
		Compressor: post.NewCompressor(cfg.Pipeline.CompressionMethod, generator, 0, log),
		Generator:  generator,
	})

	app := fiber.New(fiber.Config{AppName: "finsight"})
	api.Register(app, api.NewHandler(eng, log))

	go serveMetrics(cfg.Server.MetricsAddr, log)

	go func() {
		log.Info("listening", zap.String("addr", cfg.Server.Addr))
		if err := app.Listen(cfg.Server.Addr); err != nil {
			log.Fatal("server stopped", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Warn("shutdown incomplete", zap.Error(err))
	}
}

func sweepIdleSessions(ctx context.Context, store memory.Sweeper, idleTTL time.Duration, log *zap.Logger) {
	ticker := time.NewTicker(idleTTL / 4)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := store.SweepIdle(ctx, idleTTL); removed > 0 {
				log.Info("swept idle sessions", zap.Int("removed", removed))
			}
		}
	}
}

func serveMetrics(addr string, log *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Warn("metrics server stopped", zap.Error(err))
	}
}
