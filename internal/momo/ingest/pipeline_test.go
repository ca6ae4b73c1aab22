package ingest

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"momo/internal/momo/chunk"
	"momo/internal/momo/idgen"
	"momo/internal/momo/memory/contradiction"
	"momo/internal/momo/memory/extractor"
	"momo/internal/momo/memory/filter"
	"momo/internal/momo/memory/relationship"
	"momo/internal/momo/model"
	"momo/internal/momo/objectstore"
	"momo/internal/momo/providers"
	"momo/internal/momo/store/memstore"
)

func newTestPipeline() (*Pipeline, *memstore.Store) {
	st := memstore.New()
	embedder := providers.NewDeterministicEmbedder(32, 7)
	llm := providers.NewUnavailableLLM("test")

	return &Pipeline{
		Store:      st,
		Embeddings: embedder,
		Chunkers:   chunk.NewRegistry(),
		Filter:     &filter.Gate{LLM: llm},
		Extractor: &extractor.Extractor{
			LLM:        llm,
			Embeddings: embedder,
			Store:      st,
		},
	}, st
}

func TestProcessPlainTextDocumentReachesDone(t *testing.T) {
	p, st := newTestPipeline()
	ctx := context.Background()

	doc := &model.Document{
		ID:            idgen.New(),
		SourcePath:    "the quick brown fox jumps over the lazy dog many times over",
		DocType:       model.DocTypeText,
		Status:        model.StatusQueued,
		ContainerTags: []string{"default"},
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
	require.NoError(t, st.CreateDocument(ctx, doc))

	require.NoError(t, p.Process(ctx, doc.ID))

	got, err := st.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusDone, got.Status)
	assert.Greater(t, got.ChunkCount, 0)
	assert.Greater(t, got.TokenCount, 0)
}

func TestProcessMissingDocumentFails(t *testing.T) {
	p, _ := newTestPipeline()
	err := p.Process(context.Background(), "does-not-exist")
	assert.Error(t, err)
}

type fakeSkipFilterLLM struct{}

func (fakeSkipFilterLLM) IsAvailable() bool { return true }
func (fakeSkipFilterLLM) Complete(context.Context, string, string) (string, error) {
	return "", nil
}
func (fakeSkipFilterLLM) CompleteStructured(_ context.Context, _ string, out any) error {
	data, _ := json.Marshal(map[string]string{"decision": "skip", "reasoning": "off-topic"})
	return json.Unmarshal(data, out)
}

// TestProcessAppliesGlobalFilterPromptWithoutContainerOverride covers
// spec.md §4.1's gate condition: a global filter prompt alone (no
// per-container override row in Store) is enough to run the LLM gate.
func TestProcessAppliesGlobalFilterPromptWithoutContainerOverride(t *testing.T) {
	st := memstore.New()
	embedder := providers.NewDeterministicEmbedder(32, 7)
	llm := fakeSkipFilterLLM{}

	p := &Pipeline{
		Store:      st,
		Embeddings: embedder,
		Chunkers:   chunk.NewRegistry(),
		Filter:     &filter.Gate{LLM: llm, GlobalPrompt: "only include cooking content"},
		Extractor:  &extractor.Extractor{LLM: llm, Embeddings: embedder, Store: st},
	}
	ctx := context.Background()

	doc := &model.Document{
		ID:            idgen.New(),
		SourcePath:    "a discussion about quantum computing and spacecraft propulsion",
		DocType:       model.DocTypeText,
		Status:        model.StatusQueued,
		ContainerTags: []string{"default"},
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
	require.NoError(t, st.CreateDocument(ctx, doc))
	require.NoError(t, p.Process(ctx, doc.ID))

	got, err := st.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusDone, got.Status)
	assert.True(t, strings.HasPrefix(got.ErrorMessage, "Filtered:"))
}

func TestReadSourceResolvesMinioSchemeThroughObjects(t *testing.T) {
	objects := objectstore.NewMemoryStore()
	require.NoError(t, objects.Put(context.Background(), "docs/a.pdf", []byte("pdf bytes"), ""))

	p, _ := newTestPipeline()
	p.Objects = objects

	data, err := p.readSource(context.Background(), "minio://docs/a.pdf")
	require.NoError(t, err)
	assert.Equal(t, []byte("pdf bytes"), data)
}

func TestReadSourceWithoutSchemeUsesLocalDisk(t *testing.T) {
	p, _ := newTestPipeline()
	_, err := p.readSource(context.Background(), "/does/not/exist")
	assert.Error(t, err)
}

func TestReadSourceFailsWithoutConfiguredObjectStore(t *testing.T) {
	p, _ := newTestPipeline()
	_, err := p.readSource(context.Background(), "s3://bucket/key")
	assert.Error(t, err)
}

type fakeChunkIndexer struct{ upserts int }

func (f *fakeChunkIndexer) UpsertChunk(_ context.Context, _, _ string, _ []float32) error {
	f.upserts++
	return nil
}

func TestProcessDualWritesChunksToVectorIndexWhenConfigured(t *testing.T) {
	p, st := newTestPipeline()
	idx := &fakeChunkIndexer{}
	p.VectorIndex = idx
	ctx := context.Background()

	doc := &model.Document{
		ID:            idgen.New(),
		SourcePath:    "the quick brown fox jumps over the lazy dog many times over",
		DocType:       model.DocTypeText,
		Status:        model.StatusQueued,
		ContainerTags: []string{"default"},
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
	require.NoError(t, st.CreateDocument(ctx, doc))
	require.NoError(t, p.Process(ctx, doc.ID))

	assert.Greater(t, idx.upserts, 0)
}

type fakeExtractLLM struct{ content, memoryType string }

func (fakeExtractLLM) IsAvailable() bool { return true }
func (fakeExtractLLM) Complete(context.Context, string, string) (string, error) { return "", nil }
func (f fakeExtractLLM) CompleteStructured(_ context.Context, _ string, out any) error {
	data, _ := json.Marshal(map[string]any{
		"memories": []map[string]any{
			{"content": f.content, "memory_type": f.memoryType, "confidence": 0.9},
		},
	})
	return json.Unmarshal(data, out)
}

type fakeRelationLLM struct{ existingID string }

func (fakeRelationLLM) IsAvailable() bool { return true }
func (fakeRelationLLM) Complete(context.Context, string, string) (string, error) { return "", nil }
func (f fakeRelationLLM) CompleteStructured(_ context.Context, _ string, out any) error {
	data, _ := json.Marshal(map[string]any{
		"classifications": []map[string]any{
			{"memory_id": f.existingID, "relation_type": "updates", "confidence": 0.95, "reasoning": "supersedes"},
		},
	})
	return json.Unmarshal(data, out)
}

// TestExtractMemoriesThreadsHeuristicSignalIntoRelationshipDetection covers
// spec.md §8 scenario 2 end to end: a contradicting candidate's heuristic
// signal reaches the Relationship Detector's LLM prompt, and confirming it
// with relation_type=updates retires the old memory and advances the new
// one's version chain.
func TestExtractMemoriesThreadsHeuristicSignalIntoRelationshipDetection(t *testing.T) {
	st := memstore.New()
	ctx := context.Background()
	embedder := providers.NewDeterministicEmbedder(32, 9)

	existing := &model.Memory{
		ID: idgen.New(), Content: "user likes coffee", ContainerTag: "default",
		IsLatest: true, Version: 1, MemoryType: model.MemoryTypePreference,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	existing.Embedding, _ = embedder.EmbedPassage(ctx, existing.Content)
	require.NoError(t, st.CreateMemory(ctx, existing))

	p := &Pipeline{
		Store:      st,
		Embeddings: embedder,
		Chunkers:   chunk.NewRegistry(),
		Filter:     &filter.Gate{},
		Extractor: &extractor.Extractor{
			LLM:                          fakeExtractLLM{content: "user dislikes coffee", memoryType: "preference"},
			Embeddings:                   embedder,
			Store:                        st,
			ContradictionDetector:        &contradiction.Detector{},
			EnableContradictionDetection: true,
		},
		Relationship: &relationship.Detector{
			LLM:        fakeRelationLLM{existingID: existing.ID},
			Embeddings: embedder,
			Store:      st,
		},
		EnableContradictionDetection: true,
	}

	doc := &model.Document{
		ID:            idgen.New(),
		SourcePath:    "the quick brown fox jumps over the lazy dog many times over",
		DocType:       model.DocTypeText,
		Status:        model.StatusQueued,
		ContainerTags: []string{"default"},
		Metadata:      map[string]any{"extract_memories": true},
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
	require.NoError(t, st.CreateDocument(ctx, doc))
	require.NoError(t, p.Process(ctx, doc.ID))

	// detectRelations runs detached; Close drains it deterministically.
	p.Close()

	gotExisting, err := st.GetMemory(ctx, existing.ID)
	require.NoError(t, err)
	assert.False(t, gotExisting.IsLatest)
}

func TestProcessNeverDowngradesCodeDocType(t *testing.T) {
	p, st := newTestPipeline()
	ctx := context.Background()

	doc := &model.Document{
		ID:            idgen.New(),
		SourcePath:    "plain words with no code signal at all here",
		DocType:       model.DocTypeCode,
		Status:        model.StatusQueued,
		ContainerTags: []string{"default"},
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
	require.NoError(t, st.CreateDocument(ctx, doc))
	require.NoError(t, p.Process(ctx, doc.ID))

	got, err := st.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DocTypeCode, got.DocType)
}
