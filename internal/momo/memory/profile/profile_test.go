package profile

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"momo/internal/momo/idgen"
	"momo/internal/momo/model"
	"momo/internal/momo/store/memstore"
)

func TestGetProfileReturnsRawFactsWithoutNarrativeOrCompact(t *testing.T) {
	st := memstore.New()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, st.CreateMemory(ctx, &model.Memory{
		ID: idgen.New(), Content: "likes tea", ContainerTag: "u1", IsLatest: true,
		IsStatic: true, MemoryType: model.MemoryTypePreference, CreatedAt: now, UpdatedAt: now,
	}))

	g := &Generator{Store: st}
	result, err := g.GetProfile(ctx, Request{ContainerTag: "u1"})
	require.NoError(t, err)
	assert.Contains(t, result.StaticFacts, "likes tea")
	assert.Empty(t, result.Narrative)
}

func TestGetProfileSkipsSynthesisWhenLLMUnavailable(t *testing.T) {
	st := memstore.New()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, st.CreateMemory(ctx, &model.Memory{
		ID: idgen.New(), Content: "fact one", ContainerTag: "u1", IsLatest: true,
		IsStatic: true, MemoryType: model.MemoryTypeFact, CreatedAt: now, UpdatedAt: now,
	}))

	g := &Generator{Store: st}
	result, err := g.GetProfile(ctx, Request{ContainerTag: "u1", GenerateNarrative: true, Compact: true})
	require.NoError(t, err)
	assert.Empty(t, result.Narrative)
	assert.Contains(t, result.StaticFacts, "fact one")
}

func TestGetProfileSynthesizesAndCachesNarrative(t *testing.T) {
	st := memstore.New()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, st.CreateMemory(ctx, &model.Memory{
		ID: idgen.New(), Content: "owns a cat", ContainerTag: "u1", IsLatest: true,
		IsStatic: true, MemoryType: model.MemoryTypeFact, CreatedAt: now, UpdatedAt: now,
	}))

	g := &Generator{Store: st, LLM: fakeNarrativeLLM{narrative: "A cat owner."}}
	result, err := g.GetProfile(ctx, Request{ContainerTag: "u1", GenerateNarrative: true})
	require.NoError(t, err)
	assert.Equal(t, "A cat owner.", result.Narrative)

	cached, err := st.GetCachedProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "A cat owner.", cached.Narrative)
}

func TestGetProfileReusesFreshCacheWithoutResynthesizing(t *testing.T) {
	st := memstore.New()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, st.CreateMemory(ctx, &model.Memory{
		ID: idgen.New(), Content: "fact", ContainerTag: "u1", IsLatest: true,
		IsStatic: true, MemoryType: model.MemoryTypeFact, CreatedAt: now, UpdatedAt: now,
	}))

	calls := 0
	g := &Generator{Store: st, LLM: countingNarrativeLLM{calls: &calls, narrative: "first"}}
	_, err := g.GetProfile(ctx, Request{ContainerTag: "u1", GenerateNarrative: true})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	result, err := g.GetProfile(ctx, Request{ContainerTag: "u1", GenerateNarrative: true})
	require.NoError(t, err)
	assert.Equal(t, "first", result.Narrative)
	assert.Equal(t, 1, calls, "a fresh cache entry must not trigger resynthesis")
}

func TestGetProfileResynthesizesWhenMemoriesChangeAfterCache(t *testing.T) {
	st := memstore.New()
	ctx := context.Background()
	now := time.Now()

	m := &model.Memory{
		ID: idgen.New(), Content: "fact v1", ContainerTag: "u1", IsLatest: true,
		IsStatic: true, MemoryType: model.MemoryTypeFact, CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, st.CreateMemory(ctx, m))

	calls := 0
	g := &Generator{Store: st, LLM: countingNarrativeLLM{calls: &calls, narrative: "stale"}}
	_, err := g.GetProfile(ctx, Request{ContainerTag: "u1", GenerateNarrative: true})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	later := now.Add(time.Hour)
	require.NoError(t, st.CreateMemory(ctx, &model.Memory{
		ID: idgen.New(), Content: "fact v2", ContainerTag: "u1", IsLatest: true,
		IsStatic: true, MemoryType: model.MemoryTypeFact, CreatedAt: later, UpdatedAt: later,
	}))

	_, err = g.GetProfile(ctx, Request{ContainerTag: "u1", GenerateNarrative: true})
	require.NoError(t, err)
	assert.Equal(t, 2, calls, "a new memory in the tag after caching must invalidate the cache")
}

type fakeNarrativeLLM struct{ narrative string }

func (f fakeNarrativeLLM) IsAvailable() bool { return true }
func (f fakeNarrativeLLM) Complete(context.Context, string, string) (string, error) {
	return "", nil
}
func (f fakeNarrativeLLM) CompleteStructured(_ context.Context, _ string, out any) error {
	resp := out.(*narrativeResponse)
	resp.Narrative = f.narrative
	return nil
}

type countingNarrativeLLM struct {
	calls     *int
	narrative string
}

func (c countingNarrativeLLM) IsAvailable() bool { return true }
func (c countingNarrativeLLM) Complete(context.Context, string, string) (string, error) {
	return "", nil
}
func (c countingNarrativeLLM) CompleteStructured(_ context.Context, _ string, out any) error {
	*c.calls++
	resp := out.(*narrativeResponse)
	resp.Narrative = c.narrative
	return nil
}
