// Command momo-worker runs the ingestion dispatcher standalone, without the
// HTTP surface momo-server exposes. Useful for scaling ingestion throughput
// independently of the query path.
package main

import (
	"context"
	"flag"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"momo/internal/momo/chunk"
	"momo/internal/momo/config"
	"momo/internal/momo/ingest"
	"momo/internal/momo/memory/contradiction"
	"momo/internal/momo/memory/extractor"
	"momo/internal/momo/memory/filter"
	"momo/internal/momo/memory/relationship"
	"momo/internal/momo/objectstore"
	"momo/internal/momo/obslog"
	"momo/internal/momo/providers"
	"momo/internal/momo/store"
	"momo/internal/momo/store/memstore"
	"momo/internal/momo/store/pgstore"
	"momo/internal/momo/store/qdrantstore"
)

func main() {
	configPath := flag.String("config", "momo.yaml", "path to YAML config file")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		return
	}
	obslog.Init(cfg.LogPath, cfg.LogLevel)
	shutdownTracing := obslog.InitTracing()
	defer func() { _ = shutdownTracing(context.Background()) }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, closeStore := buildStore(ctx, cfg)
	defer closeStore()

	embedder := providers.NewDeterministicEmbedder(256, 1)
	if cfg.Embeddings.Host != "" {
		embedder = providers.NewHTTPEmbedder(providers.HTTPEmbeddingConfig{
			BaseURL:   cfg.Embeddings.Host,
			Path:      "/v1/embeddings",
			Model:     cfg.Embeddings.Model,
			APIKey:    cfg.Embeddings.APIKey,
			APIHeader: "Authorization",
			Dims:      cfg.Embeddings.Dimensions,
			Timeout:   30 * time.Second,
			BatchSize: 32,
		})
	}

	llm := providers.NewUnavailableLLM("no api key configured")
	if cfg.LLM.APIKey != "" {
		if cfg.LLM.Backend == "openai" {
			llm = providers.NewOpenAILLM(providers.OpenAIConfig{
				APIKey:      cfg.LLM.APIKey,
				Model:       cfg.LLM.Model,
				Temperature: cfg.LLM.Temperature,
				MaxTokens:   4096,
				Timeout:     60 * time.Second,
			})
		} else {
			llm = providers.NewAnthropicLLM(providers.AnthropicConfig{
				APIKey:    cfg.LLM.APIKey,
				Model:     cfg.LLM.Model,
				MaxTokens: 4096,
				Timeout:   60 * time.Second,
			})
		}
	}

	vectorIndex, closeVectorIndex := buildVectorIndex(ctx, cfg)
	defer closeVectorIndex()

	extractorInst := &extractor.Extractor{
		LLM:                          llm,
		Embeddings:                   embedder,
		Store:                        st,
		ContradictionDetector:        &contradiction.Detector{},
		EnableContradictionDetection: cfg.Contradiction.Enabled,
	}

	pipeline := &ingest.Pipeline{
		Store:      st,
		Embeddings: embedder,
		OCR:        providers.NewHTTPOCR(providers.HTTPOCRConfig{}),
		ASR:        providers.NewWhisperASR(providers.WhisperConfig{}),
		Objects:    buildObjects(ctx, cfg),
		Chunkers:   chunk.NewRegistry(),
		Filter:     &filter.Gate{LLM: llm, GlobalPrompt: cfg.Processing.FilterPrompt},
		Extractor:  extractorInst,
		Relationship: &relationship.Detector{
			LLM:        llm,
			Embeddings: embedder,
			Store:      st,
		},
		EnableContradictionDetection: cfg.Contradiction.Enabled,
	}
	if vectorIndex != nil {
		pipeline.VectorIndex = vectorIndex
		extractorInst.VectorIndex = vectorIndex
	}
	defer pipeline.Close()

	dispatcher := &ingest.Dispatcher{
		Pipeline:     pipeline,
		Concurrency:  cfg.Processing.MaxWorkers,
		PollInterval: time.Duration(cfg.Processing.PollIntervalSecs) * time.Second,
	}

	log.Info().Int("concurrency", cfg.Processing.MaxWorkers).Msg("momo-worker starting")
	if err := dispatcher.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatal().Err(err).Msg("dispatcher stopped")
	}
}

// buildObjects returns a MinIO-backed object store when storage.object_store
// is "minio", nil otherwise.
func buildObjects(ctx context.Context, cfg *config.Config) objectstore.Store {
	if cfg.Storage.ObjectStore != "minio" {
		return nil
	}
	st, err := objectstore.NewMinIOStore(ctx, objectstore.MinIOConfig{
		Endpoint:  cfg.Storage.MinIO.Endpoint,
		AccessKey: cfg.Storage.MinIO.AccessKey,
		SecretKey: cfg.Storage.MinIO.SecretKey,
		Bucket:    cfg.Storage.MinIO.Bucket,
		UseSSL:    cfg.Storage.MinIO.UseSSL,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to minio object store")
	}
	return st
}

// buildVectorIndex dials Qdrant when storage.qdrant.enabled is set,
// returning a nil *qdrantstore.Index (and a no-op closer) otherwise.
func buildVectorIndex(ctx context.Context, cfg *config.Config) (*qdrantstore.Index, func()) {
	if !cfg.Storage.Qdrant.Enabled {
		return nil, func() {}
	}
	idx, err := qdrantstore.New(ctx, qdrantstore.Config{
		DSN:              cfg.Storage.Qdrant.DSN,
		ChunkCollection:  cfg.Storage.Qdrant.ChunkCollection,
		MemoryCollection: cfg.Storage.Qdrant.MemoryCollection,
		Dimensions:       cfg.Embeddings.Dimensions,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to qdrant vector index")
	}
	return idx, func() { _ = idx.Close() }
}

// buildStore selects pgstore when a database connection string is
// configured, falling back to the zero-config in-memory store otherwise.
func buildStore(ctx context.Context, cfg *config.Config) (store.Store, func()) {
	dsn := cfg.Storage.Database.ConnectionString
	if dsn == "" {
		log.Warn().Msg("no storage.database.connection_string configured, using in-memory store")
		return memstore.New(), func() {}
	}
	pg, err := pgstore.New(ctx, dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres store")
	}
	return pg, pg.Close
}
