package search

import (
	"context"

	"github.com/rs/zerolog/log"
)

// resolveRerankLevel applies the auto rule: chunk-level when the candidate
// count is below autoRerankChunkThreshold, document-level otherwise.
func resolveRerankLevel(req Request, candidateCount int) RerankLevel {
	if req.RerankLevel != RerankAuto {
		return req.RerankLevel
	}
	if candidateCount < autoRerankChunkThreshold {
		return RerankChunk
	}
	return RerankDocument
}

func (s *Service) rerankDocuments(ctx context.Context, req Request, results []DocumentResult) []DocumentResult {
	if !req.Rerank || s.Reranker == nil || !s.Reranker.IsAvailable() || len(results) == 0 {
		return results
	}

	texts := make([]string, len(results))
	for i, r := range results {
		if r.Summary != "" {
			texts[i] = r.Summary
		} else {
			texts[i] = r.Document.Title
		}
	}

	scores, err := s.Reranker.Rerank(ctx, req.Query, texts)
	if err != nil {
		log.Warn().Err(err).Msg("document rerank failed, falling back to base scores")
		return results
	}
	for i := range results {
		if i < len(scores) {
			score := scores[i]
			results[i].RerankScore = &score
		}
	}
	return results
}

func (s *Service) rerankMemories(ctx context.Context, req Request, results []MemoryResult) []MemoryResult {
	if !req.Rerank || s.Reranker == nil || !s.Reranker.IsAvailable() || len(results) == 0 {
		return results
	}

	texts := make([]string, len(results))
	for i, r := range results {
		texts[i] = r.Memory.Content
	}

	scores, err := s.Reranker.Rerank(ctx, req.Query, texts)
	if err != nil {
		log.Warn().Err(err).Msg("memory rerank failed, falling back to base scores")
		return results
	}
	for i := range results {
		if i < len(scores) {
			score := scores[i]
			results[i].RerankScore = &score
		}
	}
	return results
}
