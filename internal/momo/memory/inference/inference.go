// Package inference implements Momo's Inference Engine: a periodic
// background job that synthesizes new inference memories from clusters of
// similar existing memories, grounded on spec.md §4.6 and the seed-always-
// included resolution of the source-set Open Question (original_source's
// inference.rs).
package inference

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"momo/internal/momo/idgen"
	"momo/internal/momo/model"
	"momo/internal/momo/providers"
	"momo/internal/momo/store"
)

// Stats summarizes one run_once invocation.
type Stats struct {
	SeedsProcessed      int
	InferencesCreated   int
	DuplicatesSkipped   int
	LowConfidenceSkipped int
	Errors              int
}

// Config holds the tunables spec.md §4.6 names.
type Config struct {
	SeedLimit          int
	ExcludeEpisodes    bool
	CandidateCount     int
	ConfidenceThreshold float64
	MaxPerRun          int
}

func (c Config) withDefaults() Config {
	if c.SeedLimit <= 0 {
		c.SeedLimit = 20
	}
	if c.CandidateCount <= 0 {
		c.CandidateCount = 5
	}
	if c.ConfidenceThreshold <= 0 {
		c.ConfidenceThreshold = 0.7
	}
	if c.MaxPerRun <= 0 {
		c.MaxPerRun = 10
	}
	return c
}

type synthesisResponse struct {
	Content    string   `json:"content"`
	Reasoning  string   `json:"reasoning"`
	Confidence float64  `json:"confidence"`
	SourceIDs  []string `json:"source_ids"`
}

// Engine runs inference synthesis over the memory store.
type Engine struct {
	LLM        providers.LLMProvider
	Embeddings providers.EmbeddingProvider
	Store      store.Store
	Config     Config
}

// RunOnce performs a single inference pass, per spec.md §4.6.
func (e *Engine) RunOnce(ctx context.Context) Stats {
	cfg := e.Config.withDefaults()
	var stats Stats

	if e.LLM == nil || !e.LLM.IsAvailable() {
		return stats
	}

	seeds, err := e.Store.GetSeedMemories(ctx, cfg.SeedLimit)
	if err != nil {
		log.Error().Err(err).Msg("failed to fetch seed memories for inference")
		stats.Errors++
		return stats
	}

	for _, seed := range seeds {
		if cfg.ExcludeEpisodes && seed.MemoryType == model.MemoryTypeEpisode {
			continue
		}
		if stats.InferencesCreated >= cfg.MaxPerRun {
			break
		}
		stats.SeedsProcessed++
		e.processSeed(ctx, seed, cfg, &stats)
	}

	return stats
}

func (e *Engine) processSeed(ctx context.Context, seed *model.Memory, cfg Config, stats *Stats) {
	embedding, err := e.Embeddings.EmbedPassage(ctx, seed.Content)
	if err != nil {
		log.Error().Err(err).Str("seed_id", seed.ID).Msg("failed to embed seed memory")
		stats.Errors++
		return
	}

	hits, err := e.Store.SearchSimilarMemories(ctx, embedding, cfg.CandidateCount, cfg.ConfidenceThreshold, seed.ContainerTag, false)
	if err != nil {
		log.Error().Err(err).Msg("failed to search candidates for inference")
		stats.Errors++
		return
	}

	var candidates []*model.Memory
	for _, hit := range hits {
		m := hit.Memory
		if m.ID == seed.ID || m.IsInference {
			continue
		}
		if cfg.ExcludeEpisodes && m.MemoryType == model.MemoryTypeEpisode {
			continue
		}
		candidates = append(candidates, m)
	}
	if len(candidates) == 0 {
		return
	}

	prompt := buildSynthesisPrompt(seed, candidates)
	var resp synthesisResponse
	if err := e.LLM.CompleteStructured(ctx, prompt, &resp); err != nil {
		log.Error().Err(err).Msg("inference synthesis llm call failed")
		stats.Errors++
		return
	}

	if resp.Confidence < cfg.ConfidenceThreshold {
		stats.LowConfidenceSkipped++
		return
	}

	allSourceIDs := uniqueWithSeed(resp.SourceIDs, seed.ID)

	exists, err := e.Store.CheckInferenceExists(ctx, allSourceIDs)
	if err != nil {
		log.Error().Err(err).Msg("failed to check inference duplicate")
		stats.Errors++
		return
	}
	if exists {
		stats.DuplicatesSkipped++
		return
	}

	relations := make(map[string]model.RelationKind, len(allSourceIDs))
	for _, id := range allSourceIDs {
		relations[id] = model.RelationDerives
	}

	now := time.Now()
	confidence := resp.Confidence
	inferred := &model.Memory{
		ID:           idgen.New(),
		Content:      resp.Content,
		SpaceID:      seed.SpaceID,
		ContainerTag: seed.ContainerTag,
		Version:      1,
		IsLatest:     true,
		Relations:    relations,
		SourceCount:  len(allSourceIDs),
		IsInference:  true,
		MemoryType:   model.MemoryTypeFact,
		Confidence:   &confidence,
		Metadata: map[string]any{
			"reasoning": resp.Reasoning,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	embeddingOut, err := e.Embeddings.EmbedPassage(ctx, resp.Content)
	if err != nil {
		log.Error().Err(err).Msg("failed to embed inference memory; persisting without embedding")
	} else {
		inferred.Embedding = embeddingOut
	}

	if err := e.Store.CreateMemory(ctx, inferred); err != nil {
		log.Error().Err(err).Msg("failed to persist inference memory")
		stats.Errors++
		return
	}

	stats.InferencesCreated++
}

// uniqueWithSeed builds all_source_ids = unique(source_ids ∪ {seed.id}).
// The seed is unconditionally included regardless of what the LLM reports,
// per the resolved Open Question in spec.md §9.
func uniqueWithSeed(sourceIDs []string, seedID string) []string {
	seen := map[string]struct{}{seedID: {}}
	out := []string{seedID}
	for _, id := range sourceIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func buildSynthesisPrompt(seed *model.Memory, candidates []*model.Memory) string {
	var prompt string
	prompt = "Synthesize a higher-order inference from these related memories, if one is genuinely supported.\n\n"
	prompt += "Seed: " + seed.Content + "\n\nRelated:\n"
	for _, c := range candidates {
		prompt += "- id=" + c.ID + ": " + c.Content + "\n"
	}
	prompt += "\nRespond with JSON: {\"content\": \"...\", \"reasoning\": \"...\", \"confidence\": 0.0-1.0, \"source_ids\": [\"...\"]}\n"
	return prompt
}
