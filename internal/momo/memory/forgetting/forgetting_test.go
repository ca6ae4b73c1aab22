package forgetting

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

func TestDecayedSimilarityNonEpisodeUnchanged(t *testing.T) {
	m := &model.Memory{MemoryType: model.MemoryTypeFact}
	got := DecayedSimilarity(m, 0.75, DecayConfig{}, time.Now())
	assert.Equal(t, 0.75, got)
}

func TestDecayedSimilarityMatchesExpectedValue(t *testing.T) {
	lastAccessed := time.Now().Add(-60 * 24 * time.Hour)
	m := &model.Memory{MemoryType: model.MemoryTypeEpisode, LastAccessed: &lastAccessed}
	cfg := DecayConfig{EpisodeDecayDays: 30, EpisodeDecayFactor: 0.9}
	got := DecayedSimilarity(m, 0.9, cfg, time.Now())
	assert.InDelta(t, 0.729, got, 0.01)
}

func TestForgetAfterStrictlyLessThanNowExcludesBoundary(t *testing.T) {
	st := memstore.New()
	ctx := context.Background()
	now := time.Now()

	m := &model.Memory{ID: idgen.New(), ForgetAfter: &now, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, st.CreateMemory(ctx, m))

	w := &Worker{Store: st}
	forgotten, err := w.ForgetExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 0, forgotten)

	forgottenLater, err := w.ForgetExpired(ctx, now.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, 1, forgottenLater)
}
