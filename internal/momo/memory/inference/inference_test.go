package inference

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"momo/internal/momo/idgen"
	"momo/internal/momo/model"
	"momo/internal/momo/providers"
	"momo/internal/momo/store/memstore"
)

func TestRunOnceReturnsZeroStatsWhenLLMUnavailable(t *testing.T) {
	e := &Engine{LLM: providers.NewUnavailableLLM("test")}
	stats := e.RunOnce(context.Background())
	assert.Equal(t, Stats{}, stats)
}

func TestUniqueWithSeedAlwaysIncludesSeed(t *testing.T) {
	got := uniqueWithSeed([]string{"m2"}, "m1")
	assert.ElementsMatch(t, []string{"m1", "m2"}, got)
}

func TestUniqueWithSeedDedupsReportedSeed(t *testing.T) {
	got := uniqueWithSeed([]string{"m1", "m2"}, "m1")
	assert.ElementsMatch(t, []string{"m1", "m2"}, got)
}

func TestCheckInferenceExistsRejectsSubsetAndSuperset(t *testing.T) {
	st := memstore.New()
	ctx := context.Background()
	now := time.Now()

	existing := &model.Memory{
		ID: idgen.New(), ContainerTag: "u1", IsInference: true, IsLatest: true,
		Relations: map[string]model.RelationKind{"m1": model.RelationDerives, "m2": model.RelationDerives},
		CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, st.CreateMemory(ctx, existing))

	subsetExists, err := st.CheckInferenceExists(ctx, []string{"m1"})
	require.NoError(t, err)
	assert.False(t, subsetExists)

	supersetExists, err := st.CheckInferenceExists(ctx, []string{"m1", "m2", "m3"})
	require.NoError(t, err)
	assert.False(t, supersetExists)

	exactExists, err := st.CheckInferenceExists(ctx, []string{"m1", "m2"})
	require.NoError(t, err)
	assert.True(t, exactExists)
}
