// Package config loads momo's YAML configuration into nested per-concern
// structs, mirroring the layout of the larger service this module was
// extracted from.
package config

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DatabaseConfig struct {
	ConnectionString string `yaml:"connection_string"`
	MaxConns         int    `yaml:"max_conns"`
}

type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

type QdrantConfig struct {
	Enabled          bool   `yaml:"enabled"`
	DSN              string `yaml:"dsn"` // e.g. "http://localhost:6334"
	ChunkCollection  string `yaml:"chunk_collection"`
	MemoryCollection string `yaml:"memory_collection"`
}

type StorageConfig struct {
	Database    DatabaseConfig `yaml:"database"`
	ObjectStore string         `yaml:"object_store,omitempty"` // "minio" or "" for none
	MinIO       MinIOConfig    `yaml:"minio,omitempty"`
	Qdrant      QdrantConfig   `yaml:"qdrant,omitempty"`
	DataPath    string         `yaml:"data_path"`
}

type EmbeddingsConfig struct {
	Host       string `yaml:"host"`
	APIKey     string `yaml:"api_key"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
}

type RerankerConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host,omitempty"`
	Model   string `yaml:"model,omitempty"`
}

type LLMConfig struct {
	Backend     string  `yaml:"backend"` // "anthropic", "openai"
	Model       string  `yaml:"model"`
	APIKey      string  `yaml:"api_key"`
	Temperature float64 `yaml:"temperature"`
}

type OCRConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host,omitempty"`
}

type ASRConfig struct {
	Enabled   bool   `yaml:"enabled"`
	ModelPath string `yaml:"model_path,omitempty"`
}

type ProcessingConfig struct {
	MaxWorkers       int    `yaml:"max_workers"`
	PollIntervalSecs int    `yaml:"poll_interval_secs"`
	TokenChunkSize   int    `yaml:"token_chunk_size"`
	TokenOverlap     int    `yaml:"token_overlap"`
	FilterPrompt     string `yaml:"filter_prompt,omitempty"`
}

type ContradictionConfig struct {
	Enabled            bool    `yaml:"enabled"`
	SimilarityMin       float64 `yaml:"similarity_min"`
	SimilarityMax       float64 `yaml:"similarity_max"`
	NegationConfidence  float64 `yaml:"negation_confidence"`
}

type RelationshipConfig struct {
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`
	CandidateLimit      int     `yaml:"candidate_limit"`
}

type InferenceConfig struct {
	Enabled             bool    `yaml:"enabled"`
	IntervalMinutes     int     `yaml:"interval_minutes"`
	SeedLimit           int     `yaml:"seed_limit"`
	ExcludeEpisodes     bool    `yaml:"exclude_episodes"`
	CandidateCount      int     `yaml:"candidate_count"`
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`
	MaxPerRun           int     `yaml:"max_per_run"`
}

type ForgettingConfig struct {
	Enabled                bool    `yaml:"enabled"`
	IntervalMinutes        int     `yaml:"interval_minutes"`
	EpisodeDecayDays       int     `yaml:"episode_decay_days"`
	EpisodeDecayFactor     float64 `yaml:"episode_decay_factor"`
	EpisodeDecayThreshold  float64 `yaml:"episode_decay_threshold"`
	EpisodeForgetGraceDays int     `yaml:"episode_forget_grace_days"`
}

type ProfileConfig struct {
	Enabled          bool `yaml:"enabled"`
	StalenessMinutes int  `yaml:"staleness_minutes"`
}

type QueryRewriteConfig struct {
	Enabled   bool   `yaml:"enabled"`
	CacheSize int    `yaml:"cache_size"`
	TimeoutMs int    `yaml:"timeout_ms"`
	RedisAddr string `yaml:"redis_addr,omitempty"` // optional: shared cross-instance cache instead of the in-process LRU
}

type SearchConfig struct {
	QueryRewrite    QueryRewriteConfig `yaml:"query_rewrite"`
	DefaultLimit    int                `yaml:"default_limit"`
	MaxLimit        int                `yaml:"max_limit"`
	RerankThreshold int                `yaml:"rerank_chunk_threshold"`
}

type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint,omitempty"`
	ServiceName string `yaml:"service_name"`
}

// Config is the root of momo's YAML configuration tree.
type Config struct {
	Server       ServerConfig        `yaml:"server"`
	Storage      StorageConfig       `yaml:"storage"`
	Embeddings   EmbeddingsConfig    `yaml:"embeddings"`
	Reranker     RerankerConfig      `yaml:"reranker"`
	LLM          LLMConfig           `yaml:"llm"`
	OCR          OCRConfig           `yaml:"ocr"`
	ASR          ASRConfig           `yaml:"asr"`
	Processing   ProcessingConfig    `yaml:"processing"`
	Contradiction ContradictionConfig `yaml:"contradiction"`
	Relationship RelationshipConfig  `yaml:"relationship"`
	Inference    InferenceConfig     `yaml:"inference"`
	Forgetting   ForgettingConfig    `yaml:"forgetting"`
	Profile      ProfileConfig       `yaml:"profile"`
	Search       SearchConfig        `yaml:"search"`
	Telemetry    TelemetryConfig     `yaml:"telemetry"`
	LogLevel     string              `yaml:"log_level"`
	LogPath      string              `yaml:"log_path,omitempty"`
}

// Load reads filename, unmarshals it into a Config, and applies defaults
// for any field the file left at its zero value.
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Processing.MaxWorkers <= 0 {
		cfg.Processing.MaxWorkers = 4
		log.Info().Msg("no processing.max_workers configured, defaulting to 4")
	}
	if cfg.Processing.PollIntervalSecs <= 0 {
		cfg.Processing.PollIntervalSecs = 5
	}
	if cfg.Processing.TokenChunkSize <= 0 {
		cfg.Processing.TokenChunkSize = 512
	}
	if cfg.Processing.TokenOverlap <= 0 {
		cfg.Processing.TokenOverlap = 64
	}
	if cfg.Contradiction.SimilarityMin == 0 {
		cfg.Contradiction.SimilarityMin = 0.3
	}
	if cfg.Contradiction.SimilarityMax == 0 {
		cfg.Contradiction.SimilarityMax = 0.95
	}
	if cfg.Contradiction.NegationConfidence == 0 {
		cfg.Contradiction.NegationConfidence = 0.8
	}
	if cfg.Relationship.SimilarityThreshold == 0 {
		cfg.Relationship.SimilarityThreshold = 0.7
	}
	if cfg.Relationship.ConfidenceThreshold == 0 {
		cfg.Relationship.ConfidenceThreshold = 0.7
	}
	if cfg.Relationship.CandidateLimit <= 0 {
		cfg.Relationship.CandidateLimit = 5
	}
	if cfg.Inference.SeedLimit <= 0 {
		cfg.Inference.SeedLimit = 50
	}
	if cfg.Inference.CandidateCount <= 0 {
		cfg.Inference.CandidateCount = 5
	}
	if cfg.Inference.ConfidenceThreshold == 0 {
		cfg.Inference.ConfidenceThreshold = 0.7
	}
	if cfg.Inference.MaxPerRun <= 0 {
		cfg.Inference.MaxPerRun = 20
	}
	if cfg.Inference.IntervalMinutes <= 0 {
		cfg.Inference.IntervalMinutes = 60
	}
	if cfg.Forgetting.EpisodeDecayDays <= 0 {
		cfg.Forgetting.EpisodeDecayDays = 30
	}
	if cfg.Forgetting.EpisodeDecayFactor == 0 {
		cfg.Forgetting.EpisodeDecayFactor = 0.9
	}
	if cfg.Forgetting.EpisodeDecayThreshold == 0 {
		cfg.Forgetting.EpisodeDecayThreshold = 0.1
	}
	if cfg.Forgetting.IntervalMinutes <= 0 {
		cfg.Forgetting.IntervalMinutes = 60
	}
	if cfg.Profile.StalenessMinutes <= 0 {
		cfg.Profile.StalenessMinutes = 60
	}
	if cfg.Search.DefaultLimit <= 0 {
		cfg.Search.DefaultLimit = 10
	}
	if cfg.Search.MaxLimit <= 0 {
		cfg.Search.MaxLimit = 100
	}
	if cfg.Search.RerankThreshold <= 0 {
		cfg.Search.RerankThreshold = 20
	}
	if cfg.Search.QueryRewrite.CacheSize <= 0 {
		cfg.Search.QueryRewrite.CacheSize = 256
	}
	if cfg.Search.QueryRewrite.TimeoutMs <= 0 {
		cfg.Search.QueryRewrite.TimeoutMs = 2000
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "momo"
	}
	if cfg.Storage.Qdrant.ChunkCollection == "" {
		cfg.Storage.Qdrant.ChunkCollection = "momo_chunks"
	}
	if cfg.Storage.Qdrant.MemoryCollection == "" {
		cfg.Storage.Qdrant.MemoryCollection = "momo_memories"
	}
}
