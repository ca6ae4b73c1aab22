// Command momo-server wires momo's ingestion pipeline, memory workers, and
// hybrid search service into a single long-running process.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"momo/internal/momo/chunk"
	"momo/internal/momo/config"
	"momo/internal/momo/idgen"
	"momo/internal/momo/ingest"
	"momo/internal/momo/memory/contradiction"
	"momo/internal/momo/memory/extractor"
	"momo/internal/momo/memory/filter"
	"momo/internal/momo/memory/forgetting"
	"momo/internal/momo/memory/inference"
	"momo/internal/momo/memory/profile"
	"momo/internal/momo/memory/relationship"
	"momo/internal/momo/model"
	"momo/internal/momo/objectstore"
	"momo/internal/momo/obslog"
	"momo/internal/momo/providers"
	"momo/internal/momo/search"
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

	embedder := buildEmbedder(cfg)
	llm := buildLLM(cfg)
	ocr := buildOCR(cfg)
	asr := buildASR(cfg)
	reranker := providers.NewLLMReranker(llm)
	objects := buildObjects(ctx, cfg)
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
		OCR:        ocr,
		ASR:        asr,
		Objects:    objects,
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
	// vectorIndex is a concrete *qdrantstore.Index that may be nil; assigning
	// it through an interface-typed field unconditionally would leave a
	// non-nil interface wrapping a nil pointer, so only wire it up when set.
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

	searchSvc := &search.Service{
		Store:        st,
		Embeddings:   embedder,
		LLM:          llm,
		Reranker:     reranker,
		RewriteCache: buildRewriteCache(cfg),
		DecayConfig: forgetting.DecayConfig{
			EpisodeDecayDays:       float64(cfg.Forgetting.EpisodeDecayDays),
			EpisodeDecayFactor:     cfg.Forgetting.EpisodeDecayFactor,
			EpisodeDecayThreshold:  cfg.Forgetting.EpisodeDecayThreshold,
			EpisodeForgetGraceDays: float64(cfg.Forgetting.EpisodeForgetGraceDays),
		},
	}

	forgettingWorker := &forgetting.Worker{Store: st, Config: forgetting.DecayConfig{
		EpisodeDecayDays:       float64(cfg.Forgetting.EpisodeDecayDays),
		EpisodeDecayFactor:     cfg.Forgetting.EpisodeDecayFactor,
		EpisodeDecayThreshold:  cfg.Forgetting.EpisodeDecayThreshold,
		EpisodeForgetGraceDays: float64(cfg.Forgetting.EpisodeForgetGraceDays),
	}}

	inferenceEngine := &inference.Engine{
		LLM:        llm,
		Embeddings: embedder,
		Store:      st,
		Config: inference.Config{
			SeedLimit:           cfg.Inference.SeedLimit,
			ExcludeEpisodes:     cfg.Inference.ExcludeEpisodes,
			CandidateCount:      cfg.Inference.CandidateCount,
			ConfidenceThreshold: cfg.Inference.ConfidenceThreshold,
			MaxPerRun:           cfg.Inference.MaxPerRun,
		},
	}

	profileGen := &profile.Generator{LLM: llm, Store: st}

	go func() {
		if err := dispatcher.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("ingestion dispatcher stopped")
		}
	}()

	if cfg.Forgetting.Enabled {
		go runPeriodic(ctx, time.Duration(cfg.Forgetting.IntervalMinutes)*time.Minute, func() {
			now := time.Now()
			if _, err := forgettingWorker.ForgetExpired(ctx, now); err != nil {
				log.Warn().Err(err).Msg("forget pass failed")
			}
			tags, err := st.GetActiveContainerTags(ctx)
			if err != nil {
				log.Warn().Err(err).Msg("failed to list container tags for decay pass")
				return
			}
			for _, tag := range tags {
				if _, err := forgettingWorker.DecayPass(ctx, tag, now); err != nil {
					log.Warn().Err(err).Str("container_tag", tag).Msg("decay pass failed")
				}
			}
		})
	}

	if cfg.Inference.Enabled {
		go runPeriodic(ctx, time.Duration(cfg.Inference.IntervalMinutes)*time.Minute, func() {
			stats := inferenceEngine.RunOnce(ctx)
			log.Info().Interface("stats", stats).Msg("inference pass complete")
		})
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "ok")
	})
	mux.HandleFunc("/documents", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var doc model.Document
		if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		doc.ID = idgen.New()
		doc.Status = model.StatusQueued
		now := time.Now()
		doc.CreatedAt, doc.UpdatedAt = now, now
		if err := st.CreateDocument(r.Context(), &doc); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(doc)
	})
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		var req search.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		resp, err := searchSvc.Search(r.Context(), req)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	})
	mux.HandleFunc("/profile", func(w http.ResponseWriter, r *http.Request) {
		var req profile.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		resp, err := profileGen.GetProfile(r.Context(), req)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", addr).Msg("momo-server listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("server failed")
	}
}

func runPeriodic(ctx context.Context, interval time.Duration, fn func()) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}

// buildStore selects pgstore when a database connection string is
// configured, falling back to the zero-config in-memory store otherwise.
// The returned close func is always safe to call.
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

// buildRewriteCache selects a Redis-backed cache when a redis_addr is
// configured, otherwise the zero-config in-process LRU.
func buildRewriteCache(cfg *config.Config) search.QueryRewriteCache {
	rwCfg := search.RewriteCacheConfig{
		Capacity: cfg.Search.QueryRewrite.CacheSize,
		Timeout:  time.Duration(cfg.Search.QueryRewrite.TimeoutMs) * time.Millisecond,
		Enabled:  cfg.Search.QueryRewrite.Enabled,
	}
	if cfg.Search.QueryRewrite.RedisAddr == "" {
		return search.NewRewriteCache(rwCfg)
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.Search.QueryRewrite.RedisAddr})
	return search.NewRedisRewriteCache(client, rwCfg, time.Hour)
}

// buildObjects returns a MinIO-backed object store when storage.object_store
// is "minio", nil otherwise (every SourcePath is then resolved from local
// disk; see ingest.Pipeline.readSource).
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

func buildEmbedder(cfg *config.Config) providers.EmbeddingProvider {
	if cfg.Embeddings.Host == "" {
		log.Warn().Msg("no embeddings host configured, using deterministic local embedder")
		return providers.NewDeterministicEmbedder(256, 1)
	}
	return providers.NewHTTPEmbedder(providers.HTTPEmbeddingConfig{
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

func buildLLM(cfg *config.Config) providers.LLMProvider {
	if cfg.LLM.APIKey == "" {
		log.Warn().Msg("no llm api key configured, llm-backed features fail open")
		return providers.NewUnavailableLLM("no api key configured")
	}
	if cfg.LLM.Backend == "openai" {
		return providers.NewOpenAILLM(providers.OpenAIConfig{
			APIKey:      cfg.LLM.APIKey,
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
			MaxTokens:   4096,
			Timeout:     60 * time.Second,
		})
	}
	return providers.NewAnthropicLLM(providers.AnthropicConfig{
		APIKey:    cfg.LLM.APIKey,
		Model:     cfg.LLM.Model,
		MaxTokens: 4096,
		Timeout:   60 * time.Second,
	})
}

func buildOCR(cfg *config.Config) providers.OCRProvider {
	if !cfg.OCR.Enabled || cfg.OCR.Host == "" {
		return providers.NewHTTPOCR(providers.HTTPOCRConfig{})
	}
	return providers.NewHTTPOCR(providers.HTTPOCRConfig{Endpoint: cfg.OCR.Host, Timeout: 30 * time.Second})
}

func buildASR(cfg *config.Config) providers.ASRProvider {
	if !cfg.ASR.Enabled || cfg.ASR.ModelPath == "" {
		return providers.NewWhisperASR(providers.WhisperConfig{})
	}
	return providers.NewWhisperASR(providers.WhisperConfig{ModelPath: cfg.ASR.ModelPath})
}
