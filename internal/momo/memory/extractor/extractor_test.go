package extractor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"momo/internal/momo/idgen"
	"momo/internal/momo/memory/contradiction"
	"momo/internal/momo/model"
	"momo/internal/momo/providers"
	"momo/internal/momo/store/memstore"
)

func TestExtractReturnsEmptyWhenLLMUnavailable(t *testing.T) {
	e := &Extractor{LLM: providers.NewUnavailableLLM("test")}
	out := e.Extract(context.Background(), "some long document text")
	assert.Empty(t, out)
}

func TestDeduplicateDropsExistingLatestContent(t *testing.T) {
	st := memstore.New()
	ctx := context.Background()
	require.NoError(t, st.CreateMemory(ctx, &model.Memory{
		ID: idgen.New(), Content: "user likes coffee", ContainerTag: "u1",
		IsLatest: true, MemoryType: model.MemoryTypeFact,
	}))

	e := &Extractor{Store: st}
	out, err := e.Deduplicate(ctx, []Candidate{
		{Content: "user likes coffee"},
		{Content: "user dislikes tea"},
	}, "u1")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "user dislikes tea", out[0].Content)
}

func TestDeduplicateIsIdempotent(t *testing.T) {
	st := memstore.New()
	ctx := context.Background()
	e := &Extractor{Store: st}

	candidates := []Candidate{{Content: "user likes coffee"}, {Content: "user likes coffee"}}
	first, err := e.Deduplicate(ctx, candidates, "u1")
	require.NoError(t, err)
	second, err := e.Deduplicate(ctx, candidates, "u1")
	require.NoError(t, err)
	assert.Equal(t, len(first), len(second))
}

func TestPersistEmbedsAndLinksSource(t *testing.T) {
	st := memstore.New()
	ctx := context.Background()
	e := &Extractor{Store: st, Embeddings: providers.NewDeterministicEmbedder(16, 3)}

	created, err := e.Persist(ctx, []Candidate{{Content: "user prefers dark mode", MemoryType: "preference", Confidence: 0.9}}, "doc1", "u1")
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.NotEmpty(t, created[0].Embedding)
	assert.Equal(t, model.MemoryTypePreference, created[0].MemoryType)

	sources, err := st.GetMemorySourcesByDocument(ctx, "doc1")
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, created[0].ID, sources[0].MemoryID)
}

type fakeMemoryIndexer struct{ upserts int }

func (f *fakeMemoryIndexer) UpsertMemory(_ context.Context, _, _ string, _ []float32) error {
	f.upserts++
	return nil
}

func TestCheckContradictionsFlagsNearestMemoryAndThreadsResult(t *testing.T) {
	st := memstore.New()
	ctx := context.Background()
	embedder := providers.NewDeterministicEmbedder(32, 9)

	existing := &model.Memory{
		ID: idgen.New(), Content: "user likes coffee", ContainerTag: "u1",
		IsLatest: true, MemoryType: model.MemoryTypePreference,
	}
	existing.Embedding, _ = embedder.EmbedPassage(ctx, existing.Content)
	require.NoError(t, st.CreateMemory(ctx, existing))

	e := &Extractor{
		Store:                        st,
		Embeddings:                   embedder,
		ContradictionDetector:        &contradiction.Detector{},
		EnableContradictionDetection: true,
	}

	out := e.CheckContradictions(ctx, []Candidate{{Content: "user dislikes coffee"}}, "u1")
	require.Len(t, out, 1)
	assert.Equal(t, existing.ID, out[0].HeuristicMatchID)
	assert.Equal(t, contradiction.ResultLikely, out[0].HeuristicResult)
}

func TestCheckContradictionsLeavesCandidateUnflaggedWhenDisabled(t *testing.T) {
	st := memstore.New()
	e := &Extractor{Store: st, Embeddings: providers.NewDeterministicEmbedder(64, 7)}

	out := e.CheckContradictions(context.Background(), []Candidate{{Content: "user dislikes coffee"}}, "u1")
	require.Len(t, out, 1)
	assert.Empty(t, out[0].HeuristicMatchID)
}

func TestPersistDualWritesToVectorIndexWhenConfigured(t *testing.T) {
	st := memstore.New()
	ctx := context.Background()
	idx := &fakeMemoryIndexer{}
	e := &Extractor{Store: st, Embeddings: providers.NewDeterministicEmbedder(16, 3), VectorIndex: idx}

	_, err := e.Persist(ctx, []Candidate{{Content: "user prefers dark mode", MemoryType: "preference", Confidence: 0.9}}, "doc1", "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, idx.upserts)
}
