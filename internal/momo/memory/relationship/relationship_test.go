package relationship

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"momo/internal/momo/idgen"
	"momo/internal/momo/memory/contradiction"
	"momo/internal/momo/model"
	"momo/internal/momo/providers"
	"momo/internal/momo/store/memstore"
)

func TestDetectReturnsEmptyWhenLLMUnavailable(t *testing.T) {
	d := &Detector{LLM: providers.NewUnavailableLLM("test")}
	got := d.Detect(context.Background(), "new-id", "user prefers dark mode", "u1", nil)
	assert.Empty(t, got.Classifications)
	assert.Nil(t, got.HeuristicOverridden)
}

func TestDetectReturnsEmptyWithNoCandidates(t *testing.T) {
	st := memstore.New()
	embedder := providers.NewDeterministicEmbedder(16, 9)
	d := &Detector{LLM: fakeAvailableLLM{}, Embeddings: embedder, Store: st}
	got := d.Detect(context.Background(), "new-id", "some totally unrelated content", "u1", nil)
	assert.Empty(t, got.Classifications)
}

func TestApplyRelationsUpdatesVersionChain(t *testing.T) {
	st := memstore.New()
	ctx := context.Background()
	now := time.Now()

	candidate := &model.Memory{ID: idgen.New(), Content: "A", ContainerTag: "u1", IsLatest: true, Version: 1, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, st.CreateMemory(ctx, candidate))

	newMem := &model.Memory{ID: idgen.New(), Content: "B", ContainerTag: "u1", IsLatest: true, Version: 1, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, st.CreateMemory(ctx, newMem))

	result := Result{Classifications: []Classification{{MemoryID: candidate.ID, RelationType: "updates", Confidence: 0.95}}}
	require.NoError(t, ApplyRelations(ctx, st, newMem, result))

	gotCandidate, err := st.GetMemory(ctx, candidate.ID)
	require.NoError(t, err)
	assert.False(t, gotCandidate.IsLatest)

	gotNew, err := st.GetMemory(ctx, newMem.ID)
	require.NoError(t, err)
	assert.Equal(t, candidate.ID, gotNew.ParentMemoryID)
	assert.Equal(t, 2, gotNew.Version)
}

// TestDetectPassesHeuristicContextIntoPromptAndClassifiesOverride covers
// spec.md §4.4: a heuristic signal is forwarded into the LLM prompt, and
// the LLM confirming relation_type=updates for the flagged candidate.
func TestDetectPassesHeuristicContextIntoPromptAndClassifiesOverride(t *testing.T) {
	st := memstore.New()
	ctx := context.Background()
	embedder := providers.NewDeterministicEmbedder(16, 9)

	candidate := &model.Memory{ID: idgen.New(), Content: "user likes coffee", ContainerTag: "u1", IsLatest: true}
	candidate.Embedding, _ = embedder.EmbedPassage(ctx, candidate.Content)
	require.NoError(t, st.CreateMemory(ctx, candidate))

	llm := &capturingLLM{memoryID: candidate.ID}
	d := &Detector{LLM: llm, Embeddings: embedder, Store: st}

	heuristicCtx := &HeuristicContext{CandidateMemoryID: candidate.ID, HeuristicResult: contradiction.ResultLikely}
	result := d.Detect(ctx, "new-id", candidate.Content, "u1", heuristicCtx)

	assert.Contains(t, llm.gotPrompt, "heuristic contradiction check flagged candidate "+candidate.ID)
	assert.Contains(t, llm.gotPrompt, "likely")
	require.NotNil(t, result.HeuristicOverridden)
	assert.True(t, *result.HeuristicOverridden)
}

type fakeAvailableLLM struct{}

func (fakeAvailableLLM) IsAvailable() bool { return true }
func (fakeAvailableLLM) Complete(context.Context, string, string) (string, error) { return "", nil }
func (fakeAvailableLLM) CompleteStructured(context.Context, string, any) error { return nil }

type capturingLLM struct {
	memoryID string
	gotPrompt string
}

func (c *capturingLLM) IsAvailable() bool { return true }
func (c *capturingLLM) Complete(context.Context, string, string) (string, error) { return "", nil }
func (c *capturingLLM) CompleteStructured(_ context.Context, prompt string, out any) error {
	c.gotPrompt = prompt
	resp := out.(*classificationsResponse)
	resp.Classifications = []Classification{{MemoryID: c.memoryID, RelationType: "updates", Confidence: 0.95}}
	return nil
}
