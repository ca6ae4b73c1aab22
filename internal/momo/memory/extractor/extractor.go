// Package extractor implements Momo's Memory Extractor: turning a document's
// extracted text into candidate facts/preferences/episodes via the LLM,
// with contradiction-aware filtering and content-equality deduplication,
// grounded on spec.md §4.3 and the pipeline's extract_memories_from_document
// flow (original_source/momo/src/processing/pipeline.rs).
package extractor

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"momo/internal/momo/idgen"
	"momo/internal/momo/memory/contradiction"
	"momo/internal/momo/merrors"
	"momo/internal/momo/model"
	"momo/internal/momo/providers"
	"momo/internal/momo/store"
)

// Candidate is one LLM-proposed memory, not yet persisted.
type Candidate struct {
	Content    string  `json:"content"`
	MemoryType string  `json:"memory_type"`
	Confidence float64 `json:"confidence"`
	Context    string  `json:"context,omitempty"`

	// HeuristicMatchID and HeuristicResult carry CheckContradictions'
	// signal forward to relationship detection, so the LLM classification
	// step can confirm or override it per spec.md §4.4. Zero values mean no
	// heuristic signal was computed.
	HeuristicMatchID string               `json:"-"`
	HeuristicResult  contradiction.Result `json:"-"`
}

type extractResponse struct {
	Memories []Candidate `json:"memories"`
}

// MemoryIndexer mirrors qdrantstore.Index's memory-upsert method, kept
// narrow so tests can fake it without a live Qdrant.
type MemoryIndexer interface {
	UpsertMemory(ctx context.Context, memoryID, containerTag string, vector []float32) error
}

// Extractor turns raw text into persisted Memory rows.
type Extractor struct {
	LLM                          providers.LLMProvider
	Embeddings                   providers.EmbeddingProvider
	Store                        store.Store
	ContradictionDetector        *contradiction.Detector
	EnableContradictionDetection bool

	// VectorIndex, when set, receives a best-effort dual-write of every
	// persisted memory's embedding alongside Store. See
	// ingest.Pipeline.VectorIndex for the matching chunk-side behavior.
	VectorIndex MemoryIndexer
}

// Extract asks the LLM for a strict JSON array of candidate memories.
// Invalid JSON or an unavailable LLM yields an empty list rather than an
// error — memory extraction is advisory and must never fail the pipeline.
func (e *Extractor) Extract(ctx context.Context, text string) []Candidate {
	if e.LLM == nil || !e.LLM.IsAvailable() {
		return nil
	}

	prompt := buildExtractionPrompt(text)
	var resp extractResponse
	if err := e.LLM.CompleteStructured(ctx, prompt, &resp); err != nil {
		log.Warn().Err(err).Msg("memory extraction llm call failed")
		return nil
	}

	out := resp.Memories[:0:0]
	for _, c := range resp.Memories {
		if strings.TrimSpace(c.Content) == "" {
			continue
		}
		out = append(out, c)
	}
	return out
}

// contradictionSimilarityThreshold is deliberately looser than the
// Relationship Detector's own candidate threshold (0.7): a contradiction
// can flip sentiment on a topic while drifting further from the original
// embedding than a plain update would.
const contradictionSimilarityThreshold = 0.5

// CheckContradictions embeds each candidate and runs the heuristic detector
// against its nearest existing memory (by embedding similarity) in the same
// tag. A likely or unlikely result is annotated onto the candidate's
// HeuristicMatchID/HeuristicResult so the pipeline can pass it as
// HeuristicContext into relationship detection, per spec.md §4.4 — the
// heuristic is advisory, so version-chain mutation stays the Relationship
// Detector's job; this step only computes and forwards the signal.
func (e *Extractor) CheckContradictions(ctx context.Context, candidates []Candidate, containerTag string) []Candidate {
	if !e.EnableContradictionDetection || e.ContradictionDetector == nil || e.Embeddings == nil {
		return candidates
	}
	out := make([]Candidate, len(candidates))
	for i, c := range candidates {
		out[i] = c

		embedding, err := e.Embeddings.EmbedPassage(ctx, c.Content)
		if err != nil {
			continue
		}
		hits, err := e.Store.SearchSimilarMemories(ctx, embedding, 1, contradictionSimilarityThreshold, containerTag, false)
		if err != nil || len(hits) == 0 {
			continue
		}
		existing := hits[0].Memory
		if existing.Content == c.Content {
			continue
		}

		result := e.ContradictionDetector.Check(existing.Content, c.Content)
		if result != contradiction.ResultNone {
			log.Debug().Str("container_tag", containerTag).Str("result", string(result)).Msg("heuristic contradiction signal")
			out[i].HeuristicMatchID = existing.ID
			out[i].HeuristicResult = result
		}
	}
	return out
}

// Deduplicate drops any candidate whose normalized content matches an
// existing latest, non-forgotten memory in the same tag. Embedding
// similarity is deliberately not used at this step, per spec.md §4.3.
func (e *Extractor) Deduplicate(ctx context.Context, candidates []Candidate, containerTag string) ([]Candidate, error) {
	var out []Candidate
	seen := make(map[string]struct{})
	for _, c := range candidates {
		normalized := normalizeContent(c.Content)
		if _, dup := seen[normalized]; dup {
			continue
		}

		existing, err := e.Store.GetMemoryByContent(ctx, c.Content, containerTag)
		if err != nil && !errors.Is(err, merrors.ErrNotFound) {
			return nil, merrors.Recoverable("extractor.Deduplicate", err)
		}
		if existing != nil && existing.IsLatest && !existing.IsForgotten {
			continue
		}

		seen[normalized] = struct{}{}
		out = append(out, c)
	}
	return out, nil
}

// Persist embeds and stores each candidate, linking it to its source
// document via a MemorySource row.
func (e *Extractor) Persist(ctx context.Context, candidates []Candidate, documentID, containerTag string) ([]*model.Memory, error) {
	const op = "extractor.Persist"

	var created []*model.Memory
	for _, c := range candidates {
		embedding, err := e.Embeddings.EmbedPassage(ctx, c.Content)
		if err != nil {
			return created, merrors.Recoverable(op, err)
		}

		mt := model.MemoryType(strings.ToLower(c.MemoryType))
		switch mt {
		case model.MemoryTypeFact, model.MemoryTypePreference, model.MemoryTypeEpisode:
		default:
			mt = model.MemoryTypeFact
		}

		now := time.Now()
		m := &model.Memory{
			ID:           idgen.New(),
			Content:      c.Content,
			SpaceID:      "default",
			ContainerTag: containerTag,
			Version:      1,
			IsLatest:     true,
			MemoryType:   mt,
			Confidence:   &c.Confidence,
			Metadata: map[string]any{
				"source_document_id": documentID,
				"memory_type":        string(mt),
				"confidence":         c.Confidence,
			},
			Embedding: embedding,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if c.Context != "" {
			m.Metadata["context"] = c.Context
		}
		if mt == model.MemoryTypeEpisode {
			m.LastAccessed = &now
		}

		if err := e.Store.CreateMemory(ctx, m); err != nil {
			return created, merrors.Recoverable(op, err)
		}
		if e.VectorIndex != nil {
			if err := e.VectorIndex.UpsertMemory(ctx, m.ID, containerTag, m.Embedding); err != nil {
				log.Warn().Err(err).Str("memory_id", m.ID).Msg("qdrant dual-write failed (advisory)")
			}
		}
		if err := e.Store.CreateMemorySource(ctx, &model.MemorySource{
			ID:         idgen.New(),
			MemoryID:   m.ID,
			DocumentID: documentID,
			CreatedAt:  now,
		}); err != nil {
			return created, merrors.Recoverable(op, err)
		}

		created = append(created, m)
	}
	return created, nil
}

func normalizeContent(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func buildExtractionPrompt(text string) string {
	var b strings.Builder
	b.WriteString("Extract durable facts, preferences, and episodes worth remembering from the following text.\n")
	b.WriteString("Respond with JSON: {\"memories\": [{\"content\": \"...\", \"memory_type\": \"fact\"|\"preference\"|\"episode\", \"confidence\": 0.0-1.0, \"context\": \"...\"}]}\n")
	b.WriteString("Return an empty array if nothing is worth remembering.\n\nText:\n")
	b.WriteString(text)
	return b.String()
}
