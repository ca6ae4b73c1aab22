package search

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"momo/internal/momo/memory/forgetting"
	"momo/internal/momo/merrors"
	"momo/internal/momo/model"
	"momo/internal/momo/providers"
	"momo/internal/momo/store"
)

// Mode selects which indices a search draws from.
type Mode string

const (
	ModeHybrid    Mode = "hybrid"
	ModeDocuments Mode = "documents"
	ModeMemories  Mode = "memories"
)

// RerankLevel names the granularity reranking runs at; resolveRerankLevel
// applies the auto rule. Search does not consult it: document results are
// always reranked by summary or title, and memory results by content.
type RerankLevel string

const (
	RerankAuto     RerankLevel = "auto"
	RerankChunk    RerankLevel = "chunk"
	RerankDocument RerankLevel = "document"
)

const autoRerankChunkThreshold = 20

// IncludeOptions toggles optional enrichment on memory results.
type IncludeOptions struct {
	ForgottenMemories bool
	RelatedMemories   bool
}

// Request is one hybrid/document/memory search call.
type Request struct {
	Query           string
	ContainerTag    string
	ContainerTags   []string
	Mode            Mode
	Limit           int
	ChunkThreshold  float64
	MemoryThreshold float64
	Include         IncludeOptions
	Filter          *store.MetadataFilter
	Rerank          bool
	RerankLevel     RerankLevel
	RewriteQuery    bool
	WithSummary     bool
}

func (r Request) withDefaults() Request {
	if r.Limit <= 0 {
		r.Limit = 10
	}
	if r.RerankLevel == "" {
		r.RerankLevel = RerankAuto
	}
	if r.Mode == "" {
		r.Mode = ModeHybrid
	}
	return r
}

// DocumentResult is one document-branch hit.
type DocumentResult struct {
	Document    *model.Document
	Score       float64
	RerankScore *float64
	Summary     string
}

// MemoryResult is one memory-branch hit.
type MemoryResult struct {
	Memory      *model.Memory
	Score       float64
	RerankScore *float64
	Parents     []*model.Memory
	Children    []*model.Memory
}

// HybridResult merges documents and memories into one ranked stream.
type HybridResult struct {
	Document    *model.Document
	Memory      *model.Memory
	Score       float64
	RerankScore *float64
}

// Response is the service's full output for one request.
type Response struct {
	Documents      []DocumentResult
	Memories       []MemoryResult
	Hybrid         []HybridResult
	RewrittenQuery *string
}

// Service implements the hybrid document/memory Search Service.
type Service struct {
	Store        store.Store
	Embeddings   providers.EmbeddingProvider
	LLM          providers.LLMProvider
	Reranker     providers.RerankProvider
	RewriteCache QueryRewriteCache
	DecayConfig  forgetting.DecayConfig
}

// Search dispatches to the document, memory, or hybrid branch per
// req.Mode, per spec.md §4.10.
func (s *Service) Search(ctx context.Context, req Request) (Response, error) {
	ctx, span := otel.Tracer("momo/search").Start(ctx, "search.Search")
	defer span.End()

	req = req.withDefaults()

	var resp Response
	rewritten, changed := s.RewriteCache.Rewrite(ctx, s.LLM, req.Query, req.RewriteQuery)
	if changed {
		resp.RewrittenQuery = &rewritten
		req.Query = rewritten
	}

	queryEmbedding, err := s.Embeddings.EmbedQuery(ctx, req.Query)
	if err != nil {
		return Response{}, merrors.Recoverable("search.Search", err)
	}

	switch req.Mode {
	case ModeDocuments:
		docs, err := s.searchDocuments(ctx, req, queryEmbedding)
		if err != nil {
			return Response{}, err
		}
		resp.Documents = docs
		return resp, nil

	case ModeMemories:
		mems, err := s.searchMemories(ctx, req, queryEmbedding)
		if err != nil {
			return Response{}, err
		}
		resp.Memories = mems
		return resp, nil

	default:
		return s.searchHybrid(ctx, req, queryEmbedding, resp)
	}
}

func (s *Service) searchDocuments(ctx context.Context, req Request, queryEmbedding []float32) ([]DocumentResult, error) {
	hits, err := s.Store.SearchSimilarChunks(ctx, queryEmbedding, req.Limit*3, req.ChunkThreshold, req.ContainerTags)
	if err != nil {
		return nil, merrors.Recoverable("search.searchDocuments", err)
	}
	if len(hits) == 0 {
		return nil, nil
	}

	bestScore := make(map[string]float64)
	bestContent := make(map[string]string)
	var docIDs []string
	for _, h := range hits {
		if cur, ok := bestScore[h.DocumentID]; !ok || h.Score > cur {
			bestScore[h.DocumentID] = h.Score
			bestContent[h.DocumentID] = h.Content
			if !ok {
				docIDs = append(docIDs, h.DocumentID)
			}
		}
	}

	docs, err := s.Store.GetDocumentsByIDs(ctx, docIDs)
	if err != nil {
		return nil, merrors.Recoverable("search.searchDocuments", err)
	}
	docByID := make(map[string]*model.Document, len(docs))
	for _, d := range docs {
		docByID[d.ID] = d
	}

	results := make([]DocumentResult, 0, len(docIDs))
	for _, id := range docIDs {
		doc, ok := docByID[id]
		if !ok {
			continue
		}
		r := DocumentResult{Document: doc, Score: bestScore[id]}
		if req.WithSummary {
			r.Summary = bestContent[id]
		}
		results = append(results, r)
	}

	results = s.rerankDocuments(ctx, req, results)
	results = filterDocumentResults(results, req.Filter)

	sort.SliceStable(results, func(i, j int) bool {
		return effectiveScore(results[i].RerankScore, results[i].Score) > effectiveScore(results[j].RerankScore, results[j].Score)
	})
	if len(results) > req.Limit {
		results = results[:req.Limit]
	}
	return results, nil
}

func (s *Service) searchMemories(ctx context.Context, req Request, queryEmbedding []float32) ([]MemoryResult, error) {
	hits, err := s.Store.SearchSimilarMemories(ctx, queryEmbedding, req.Limit*3, req.MemoryThreshold, req.ContainerTag, req.Include.ForgottenMemories)
	if err != nil {
		return nil, merrors.Recoverable("search.searchMemories", err)
	}

	now := time.Now()
	results := make([]MemoryResult, 0, len(hits))
	for _, h := range hits {
		score := forgetting.DecayedSimilarity(h.Memory, h.Score, s.DecayConfig, now)
		r := MemoryResult{Memory: h.Memory, Score: score}
		if req.Include.RelatedMemories {
			r.Parents, _ = s.Store.GetParents(ctx, h.Memory.ID)
			r.Children, _ = s.Store.GetChildren(ctx, h.Memory.ID)
		}
		results = append(results, r)
	}

	results = s.rerankMemories(ctx, req, results)

	sort.SliceStable(results, func(i, j int) bool {
		return effectiveScore(results[i].RerankScore, results[i].Score) > effectiveScore(results[j].RerankScore, results[j].Score)
	})
	if len(results) > req.Limit {
		results = results[:req.Limit]
	}

	s.batchUpdateLastAccessed(ctx, results)
	return results, nil
}

func (s *Service) searchHybrid(ctx context.Context, req Request, queryEmbedding []float32, resp Response) (Response, error) {
	var docResults []DocumentResult
	var memResults []MemoryResult
	var docErr, memErr error

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		docResults, docErr = s.searchDocuments(gctx, req, queryEmbedding)
		if docErr != nil {
			log.Error().Err(docErr).Msg("document branch failed")
		}
		return nil
	})
	g.Go(func() error {
		memResults, memErr = s.searchMemories(gctx, req, queryEmbedding)
		if memErr != nil {
			log.Error().Err(memErr).Msg("memory branch failed")
		}
		return nil
	})
	_ = g.Wait()

	if docErr != nil && memErr != nil {
		return Response{}, merrors.Recoverable("search.searchHybrid", fmt.Errorf("both branches failed: doc=%v mem=%v", docErr, memErr))
	}

	excludedDocIDs, err := s.dedupDocumentIDs(ctx, memResults)
	if err != nil {
		log.Error().Err(err).Msg("hybrid dedup lookup failed, proceeding without dedup")
	}

	var merged []HybridResult
	for _, d := range docResults {
		if _, excluded := excludedDocIDs[d.Document.ID]; excluded {
			continue
		}
		merged = append(merged, HybridResult{Document: d.Document, Score: d.Score, RerankScore: d.RerankScore})
	}
	for _, m := range memResults {
		merged = append(merged, HybridResult{Memory: m.Memory, Score: m.Score, RerankScore: m.RerankScore})
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return effectiveScore(merged[i].RerankScore, merged[i].Score) > effectiveScore(merged[j].RerankScore, merged[j].Score)
	})
	if len(merged) > req.Limit {
		merged = merged[:req.Limit]
	}

	resp.Hybrid = merged
	s.batchUpdateLastAccessed(ctx, memResults)
	return resp, nil
}

// dedupDocumentIDs collects the document identities backing every returned
// memory's sources, per spec.md §4.10's hybrid dedup rule.
func (s *Service) dedupDocumentIDs(ctx context.Context, memResults []MemoryResult) (map[string]struct{}, error) {
	excluded := make(map[string]struct{})
	for _, m := range memResults {
		sources, err := s.Store.GetMemorySourcesByMemory(ctx, m.Memory.ID)
		if err != nil {
			return excluded, err
		}
		for _, src := range sources {
			excluded[src.DocumentID] = struct{}{}
		}
	}
	return excluded, nil
}

func (s *Service) batchUpdateLastAccessed(ctx context.Context, results []MemoryResult) {
	var episodeIDs []string
	for _, r := range results {
		if r.Memory.MemoryType == model.MemoryTypeEpisode {
			episodeIDs = append(episodeIDs, r.Memory.ID)
		}
	}
	if len(episodeIDs) == 0 {
		return
	}
	if err := s.Store.UpdateLastAccessedBatch(ctx, episodeIDs, time.Now()); err != nil {
		log.Warn().Err(err).Msg("failed to batch-update last_accessed (advisory)")
	}
}

func effectiveScore(rerankScore *float64, base float64) float64 {
	if rerankScore != nil {
		return *rerankScore
	}
	return base
}

func filterDocumentResults(results []DocumentResult, filter *store.MetadataFilter) []DocumentResult {
	if filter == nil {
		return results
	}
	out := results[:0:0]
	for _, r := range results {
		if filter.Matches(r.Document.Metadata) {
			out = append(out, r)
		}
	}
	return out
}
