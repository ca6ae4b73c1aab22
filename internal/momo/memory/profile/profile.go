// Package profile implements Momo's Profile Generator: a cached per-tag
// synthesized narrative/compact-facts view over a container's memories,
// grounded on spec.md §4.8.
package profile

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"momo/internal/momo/merrors"
	"momo/internal/momo/model"
	"momo/internal/momo/providers"
	"momo/internal/momo/store"
)

// Request mirrors get_profile's input shape.
type Request struct {
	ContainerTag     string
	IncludeDynamic   bool
	Limit            int
	Compact          bool
	GenerateNarrative bool
}

// Result mirrors get_profile's output shape.
type Result struct {
	StaticFacts  []string
	DynamicFacts []string
	Narrative    string
}

type narrativeResponse struct {
	Narrative string `json:"narrative"`
}

type compactResponse struct {
	Categories map[string][]string `json:"categories"`
}

// Generator synthesizes and caches container profiles.
type Generator struct {
	LLM   providers.LLMProvider
	Store store.Store
}

// GetProfile returns the cached-or-freshly-synthesized profile for a tag.
func (g *Generator) GetProfile(ctx context.Context, req Request) (Result, error) {
	const op = "profile.GetProfile"

	raw, err := g.Store.GetUserProfile(ctx, req.ContainerTag, req.IncludeDynamic, req.Limit)
	if err != nil {
		return Result{}, merrors.Recoverable(op, err)
	}

	result := Result{StaticFacts: raw.StaticFacts, DynamicFacts: raw.DynamicFacts}

	if !req.Compact && !req.GenerateNarrative {
		return result, nil
	}

	stale, cached, err := g.isStale(ctx, req.ContainerTag)
	if err != nil {
		return Result{}, merrors.Recoverable(op, err)
	}

	if !stale && cached != nil {
		result.Narrative = cached.Narrative
		if req.Compact {
			result.StaticFacts = compactFactsFromJSON(cached.CompactJSON)
			result.DynamicFacts = nil
		}
		return result, nil
	}

	if g.LLM == nil || !g.LLM.IsAvailable() {
		return result, nil
	}

	var narrative string
	var compactJSON string

	if req.GenerateNarrative {
		narrative, err = g.synthesizeNarrative(ctx, raw)
		if err != nil {
			narrative = ""
		}
	}
	if req.Compact {
		compactJSON, err = g.synthesizeCompact(ctx, raw)
		if err != nil {
			compactJSON = ""
		}
	}

	fresh := &model.CachedProfile{
		ContainerTag: req.ContainerTag,
		Narrative:    narrative,
		CompactJSON:  compactJSON,
		CachedAt:     time.Now(),
	}
	if err := g.Store.UpsertCachedProfile(ctx, fresh); err != nil {
		return Result{}, merrors.Recoverable(op, err)
	}

	result.Narrative = narrative
	if req.Compact {
		result.StaticFacts = compactFactsFromJSON(compactJSON)
		result.DynamicFacts = nil
	}
	return result, nil
}

func (g *Generator) isStale(ctx context.Context, containerTag string) (bool, *model.CachedProfile, error) {
	cached, err := g.Store.GetCachedProfile(ctx, containerTag)
	if err != nil {
		if errors.Is(err, merrors.ErrNotFound) {
			return true, nil, nil
		}
		return true, nil, err
	}
	if cached == nil {
		return true, nil, nil
	}
	maxUpdated, err := g.Store.GetMaxMemoryUpdatedAt(ctx, containerTag)
	if err != nil {
		return true, nil, err
	}
	if maxUpdated.After(cached.CachedAt) {
		return true, cached, nil
	}
	return false, cached, nil
}

func (g *Generator) synthesizeNarrative(ctx context.Context, raw store.ProfileResult) (string, error) {
	prompt := "Write a short narrative profile summarizing the following facts and preferences.\n\n"
	prompt += strings.Join(append(raw.StaticFacts, raw.DynamicFacts...), "\n")
	prompt += "\n\nRespond with JSON: {\"narrative\": \"...\"}\n"

	var resp narrativeResponse
	if err := g.LLM.CompleteStructured(ctx, prompt, &resp); err != nil {
		return "", err
	}
	return resp.Narrative, nil
}

func (g *Generator) synthesizeCompact(ctx context.Context, raw store.ProfileResult) (string, error) {
	prompt := "Group the following facts into categories.\n\n"
	prompt += strings.Join(append(raw.StaticFacts, raw.DynamicFacts...), "\n")
	prompt += "\n\nRespond with JSON: {\"categories\": {\"category name\": [\"fact\", ...]}}\n"

	var resp compactResponse
	if err := g.LLM.CompleteStructured(ctx, prompt, &resp); err != nil {
		return "", err
	}
	return encodeCategories(resp.Categories), nil
}

// encodeCategories produces a deterministic "[category] fact" line format,
// which also doubles as the CachedProfile.CompactJSON storage shape.
func encodeCategories(categories map[string][]string) string {
	names := make([]string, 0, len(categories))
	for category := range categories {
		names = append(names, category)
	}
	sort.Strings(names)
	var b strings.Builder
	for _, category := range names {
		for _, fact := range categories[category] {
			fmt.Fprintf(&b, "[%s] %s\n", category, fact)
		}
	}
	return b.String()
}

func compactFactsFromJSON(encoded string) []string {
	lines := strings.Split(strings.TrimRight(encoded, "\n"), "\n")
	var out []string
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			out = append(out, l)
		}
	}
	return out
}
