// Package relationship implements Momo's Relationship Detector: classifying
// a new memory's relation (updates/extends/none) to its nearest existing
// memories via the LLM, with an optional heuristic-contradiction hint,
// grounded on original_source/momo/src/intelligence/relationship.rs.
package relationship

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"momo/internal/momo/memory/contradiction"
	"momo/internal/momo/model"
	"momo/internal/momo/providers"
	"momo/internal/momo/store"
)

const (
	candidateLimit      = 5
	candidateThreshold   = 0.7
	minClassifyConfidence = 0.7
)

// Classification is one LLM-judged relation between the new memory and an
// existing candidate.
type Classification struct {
	MemoryID     string  `json:"memory_id"`
	RelationType string  `json:"relation_type"`
	Confidence   float64 `json:"confidence"`
	Reasoning    string  `json:"reasoning"`
}

type classificationsResponse struct {
	Classifications []Classification `json:"classifications"`
}

// HeuristicContext carries the Contradiction Detector's flagged candidate
// into the LLM prompt so it can confirm or override the heuristic signal.
type HeuristicContext struct {
	CandidateMemoryID string
	HeuristicResult    contradiction.Result
}

// Result is the Relationship Detector's output.
type Result struct {
	Classifications    []Classification
	HeuristicOverridden *bool
}

// Detector classifies relations between a new memory and its nearest
// existing neighbors.
type Detector struct {
	LLM        providers.LLMProvider
	Embeddings providers.EmbeddingProvider
	Store      store.Store
}

// Detect embeds newContent, searches up to 5 similar memories above
// similarity 0.7 in the same container (excluding newMemoryID), and asks
// the LLM to classify the relation of each. LLM unavailability, embedding
// failure, empty candidates, or parse failure all yield an empty result.
func (d *Detector) Detect(ctx context.Context, newMemoryID, newContent, containerTag string, heuristicCtx *HeuristicContext) Result {
	if d.LLM == nil || !d.LLM.IsAvailable() {
		log.Warn().Msg("llm unavailable, skipping relationship detection")
		return Result{}
	}

	embedding, err := d.Embeddings.EmbedPassage(ctx, newContent)
	if err != nil {
		log.Error().Err(err).Msg("failed to embed memory for relationship detection")
		return Result{}
	}

	hits, err := d.Store.SearchSimilarMemories(ctx, embedding, candidateLimit, candidateThreshold, containerTag, false)
	if err != nil {
		log.Error().Err(err).Msg("failed to search similar memories")
		return Result{}
	}

	var candidates []*model.Memory
	for _, hit := range hits {
		if hit.Memory.ID == newMemoryID {
			continue
		}
		candidates = append(candidates, hit.Memory)
	}
	if len(candidates) == 0 {
		return Result{}
	}

	prompt := buildPrompt(newContent, candidates, heuristicCtx)

	var resp classificationsResponse
	if err := d.LLM.CompleteStructured(ctx, prompt, &resp); err != nil {
		log.Error().Err(err).Msg("failed to detect relationships")
		return Result{}
	}

	var filtered []Classification
	for _, c := range resp.Classifications {
		if c.Confidence >= minClassifyConfidence && c.RelationType != "none" {
			filtered = append(filtered, c)
		}
	}

	var overridden *bool
	if heuristicCtx != nil {
		var flagged *Classification
		for i := range filtered {
			if filtered[i].MemoryID == heuristicCtx.CandidateMemoryID {
				flagged = &filtered[i]
				break
			}
		}
		confirmed := flagged != nil && flagged.RelationType == "updates"
		overridden = &confirmed
	}

	return Result{Classifications: filtered, HeuristicOverridden: overridden}
}

// ApplyRelations performs the auto-relations worker's side effects for a
// Detect result: bidirectional relation edges for every classification, and
// for `updates` classifications, retiring the candidate and advancing the
// new memory's version chain. Per spec.md §4.5 this is the caller's
// responsibility, not the detector's.
func ApplyRelations(ctx context.Context, st store.Store, newMemory *model.Memory, result Result) error {
	for _, c := range result.Classifications {
		kind := model.RelationKind(c.RelationType)
		if kind != model.RelationUpdates && kind != model.RelationExtends {
			continue
		}

		if err := st.AddRelation(ctx, newMemory.ID, c.MemoryID, kind); err != nil {
			return err
		}
		if err := st.AddRelation(ctx, c.MemoryID, newMemory.ID, kind); err != nil {
			return err
		}

		if kind != model.RelationUpdates {
			continue
		}

		candidate, err := st.GetMemory(ctx, c.MemoryID)
		if err != nil {
			return err
		}
		if candidate == nil {
			continue
		}

		if err := st.MarkNotLatest(ctx, candidate.ID); err != nil {
			return err
		}

		rootID := candidate.RootMemoryID
		if rootID == "" {
			rootID = candidate.ID
		}
		if err := st.UpdateVersionChain(ctx, newMemory.ID, candidate.ID, rootID, candidate.Version+1); err != nil {
			return err
		}
	}
	return nil
}

func buildPrompt(newContent string, candidates []*model.Memory, heuristicCtx *HeuristicContext) string {
	var b strings.Builder
	b.WriteString("Classify the relationship between a new memory and each candidate existing memory.\n")
	b.WriteString("relation_type must be one of: updates, extends, none.\n\n")
	b.WriteString("New memory: " + newContent + "\n\nCandidates:\n")
	for _, c := range candidates {
		b.WriteString("- id=" + c.ID + ": " + c.Content + "\n")
	}
	if heuristicCtx != nil {
		b.WriteString("\nA heuristic contradiction check flagged candidate ")
		b.WriteString(heuristicCtx.CandidateMemoryID)
		b.WriteString(" as ")
		b.WriteString(string(heuristicCtx.HeuristicResult))
		b.WriteString(". Confirm with relation_type=updates if the new memory truly supersedes it, or classify it differently if the heuristic is wrong.\n")
	}
	b.WriteString("\nRespond with JSON: {\"classifications\": [{\"memory_id\": \"...\", \"relation_type\": \"updates\"|\"extends\"|\"none\", \"confidence\": 0.0-1.0, \"reasoning\": \"...\"}]}\n")
	return b.String()
}
