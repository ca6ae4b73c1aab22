package search

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"momo/internal/momo/idgen"
	"momo/internal/momo/memory/forgetting"
	"momo/internal/momo/model"
	"momo/internal/momo/providers"
	"momo/internal/momo/store/memstore"
)

func newTestService(t *testing.T) (*Service, *memstore.Store) {
	t.Helper()
	st := memstore.New()
	embedder := providers.NewDeterministicEmbedder(32, 11)
	return &Service{
		Store:        st,
		Embeddings:   embedder,
		LLM:          providers.NewUnavailableLLM("test"),
		Reranker:     providers.NoopReranker{},
		RewriteCache: NewRewriteCache(RewriteCacheConfig{}),
		DecayConfig:  forgetting.DecayConfig{EpisodeDecayDays: 30, EpisodeDecayFactor: 0.9},
	}, st
}

func TestHybridDedupDropsChunksBackedByMemory(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	doc := &model.Document{ID: idgen.New(), ContainerTags: []string{"u1"}, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	require.NoError(t, st.CreateDocument(ctx, doc))

	embedding, err := svc.Embeddings.EmbedPassage(ctx, "the cat sat on the mat")
	require.NoError(t, err)
	chunk := &model.Chunk{ID: idgen.New(), DocumentID: doc.ID, Content: "the cat sat on the mat", Embedding: embedding, CreatedAt: time.Now()}
	require.NoError(t, st.CreateChunks(ctx, []*model.Chunk{chunk}))

	memEmbedding, err := svc.Embeddings.EmbedPassage(ctx, "the cat sat on the mat")
	require.NoError(t, err)
	mem := &model.Memory{
		ID: idgen.New(), Content: "the cat sat on the mat", ContainerTag: "u1",
		IsLatest: true, MemoryType: model.MemoryTypeFact, Embedding: memEmbedding,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	require.NoError(t, st.CreateMemory(ctx, mem))
	require.NoError(t, st.CreateMemorySource(ctx, &model.MemorySource{ID: idgen.New(), MemoryID: mem.ID, DocumentID: doc.ID, CreatedAt: time.Now()}))

	resp, err := svc.Search(ctx, Request{
		Query: "the cat sat on the mat", ContainerTag: "u1", ContainerTags: []string{"u1"},
		Mode: ModeHybrid, Limit: 10, ChunkThreshold: 0.0, MemoryThreshold: 0.0,
	})
	require.NoError(t, err)

	var sawDoc, sawMem bool
	for _, h := range resp.Hybrid {
		if h.Document != nil && h.Document.ID == doc.ID {
			sawDoc = true
		}
		if h.Memory != nil && h.Memory.ID == mem.ID {
			sawMem = true
		}
	}
	assert.True(t, sawMem, "expected memory result present")
	assert.False(t, sawDoc, "expected document chunk to be deduped out")
}

func TestEpisodeDecayMatchesExpectedFormula(t *testing.T) {
	lastAccessed := time.Now().Add(-60 * 24 * time.Hour)
	m := &model.Memory{MemoryType: model.MemoryTypeEpisode, LastAccessed: &lastAccessed, CreatedAt: lastAccessed}
	cfg := forgetting.DecayConfig{EpisodeDecayDays: 30, EpisodeDecayFactor: 0.9}

	got := forgetting.DecayedSimilarity(m, 0.9, cfg, time.Now())
	assert.InDelta(t, 0.729, got, 0.01)
}

func TestQueryRewriteSkippedForShortQueries(t *testing.T) {
	cache := NewRewriteCache(RewriteCacheConfig{Enabled: true})
	llm := providers.NewUnavailableLLM("test")
	got, changed := cache.Rewrite(context.Background(), llm, "ab", true)
	assert.False(t, changed)
	assert.Equal(t, "ab", got)
}
