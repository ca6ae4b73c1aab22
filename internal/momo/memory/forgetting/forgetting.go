// Package forgetting implements Momo's temporal ranker and forgetting
// worker: episode salience decay and the background sweep that marks
// expired memories forgotten, grounded on spec.md §4.7.
package forgetting

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"momo/internal/momo/model"
	"momo/internal/momo/store"
)

// DecayConfig holds the tunables spec.md §4.7 names.
type DecayConfig struct {
	EpisodeDecayDays     float64
	EpisodeDecayFactor   float64
	EpisodeDecayThreshold float64
	EpisodeForgetGraceDays float64
}

func (c DecayConfig) withDefaults() DecayConfig {
	if c.EpisodeDecayDays <= 0 {
		c.EpisodeDecayDays = 30
	}
	if c.EpisodeDecayFactor <= 0 || c.EpisodeDecayFactor > 1 {
		c.EpisodeDecayFactor = 0.9
	}
	if c.EpisodeDecayThreshold <= 0 {
		c.EpisodeDecayThreshold = 0.1
	}
	if c.EpisodeForgetGraceDays < 0 {
		c.EpisodeForgetGraceDays = 7
	}
	return c
}

// DecayedSimilarity applies temporal decay to a raw similarity score for
// memory m, evaluated at `now`. Non-episode memories are returned
// unchanged. An absent LastAccessed falls back to CreatedAt, so a
// never-accessed episode decays from its creation time.
func DecayedSimilarity(m *model.Memory, rawSimilarity float64, cfg DecayConfig, now time.Time) float64 {
	if m.MemoryType != model.MemoryTypeEpisode {
		return rawSimilarity
	}
	cfg = cfg.withDefaults()

	last := m.CreatedAt
	if m.LastAccessed != nil {
		last = *m.LastAccessed
	}

	elapsedDays := now.Sub(last).Hours() / 24
	if elapsedDays < 0 {
		elapsedDays = 0
	}

	decayed := rawSimilarity * math.Pow(cfg.EpisodeDecayFactor, elapsedDays/cfg.EpisodeDecayDays)
	if decayed < 0 {
		decayed = 0
	}
	return decayed
}

// Worker periodically forgets expired memories and projects forget_after
// for decaying episodes.
type Worker struct {
	Store  store.Store
	Config DecayConfig
}

// ForgetExpired marks every memory whose forget_after has strictly passed
// (forget_after < now) as forgotten.
func (w *Worker) ForgetExpired(ctx context.Context, now time.Time) (int, error) {
	candidates, err := w.Store.GetForgettingCandidates(ctx, now)
	if err != nil {
		return 0, err
	}
	forgotten := 0
	for _, m := range candidates {
		if m.ForgetAfter == nil || !m.ForgetAfter.Before(now) {
			continue
		}
		if err := w.Store.ForgetMemory(ctx, m.ID, "expired"); err != nil {
			log.Error().Err(err).Str("memory_id", m.ID).Msg("failed to forget expired memory")
			continue
		}
		forgotten++
	}
	return forgotten, nil
}

// DecayPass computes a projected forget_after for every episode in
// containerTag whose decayed salience (against a similarity of 1.0, i.e.
// pure time decay) falls below EpisodeDecayThreshold, honoring the grace
// period floor before the timestamp takes effect.
func (w *Worker) DecayPass(ctx context.Context, containerTag string, now time.Time) (int, error) {
	cfg := w.Config.withDefaults()

	candidates, err := w.Store.GetEpisodeDecayCandidates(ctx, containerTag)
	if err != nil {
		return 0, err
	}

	projected := 0
	for _, m := range candidates {
		decayed := DecayedSimilarity(m, 1.0, cfg, now)
		if decayed >= cfg.EpisodeDecayThreshold {
			continue
		}
		forgetAfter := now.Add(time.Duration(cfg.EpisodeForgetGraceDays*24) * time.Hour)
		if err := w.Store.SetForgetAfter(ctx, m.ID, forgetAfter); err != nil {
			log.Error().Err(err).Str("memory_id", m.ID).Msg("failed to set forget_after")
			continue
		}
		projected++
	}
	return projected, nil
}
