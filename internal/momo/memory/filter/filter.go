// Package filter implements Momo's LLM content filter gate: a fail-open
// decision about whether a document's extracted text should be included in
// the pipeline or skipped, grounded on the original implementation's
// LlmFilter (intelligence/filter.rs).
package filter

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"momo/internal/momo/providers"
)

// Decision is the filter's include/skip verdict.
type Decision string

const (
	DecisionInclude Decision = "include"
	DecisionSkip    Decision = "skip"
)

// Result carries the decision plus an optional human-readable reason.
type Result struct {
	Decision  Decision
	Reasoning string
}

type llmResponse struct {
	Decision  string `json:"decision"`
	Reasoning string `json:"reasoning"`
}

// Gate evaluates the LLM filter prompt against a document's content.
type Gate struct {
	LLM          providers.LLMProvider
	GlobalPrompt string
}

// Filter decides whether content should be included, given an optional
// per-container override prompt. Every non-decisive path (empty prompt,
// literal substring match, unavailable LLM, malformed/ambiguous LLM
// response, LLM error) fails open to Include, per spec.md §4.1.
func (g *Gate) Filter(ctx context.Context, content, containerTag, docID string, overridePrompt *string) Result {
	prompt := g.GlobalPrompt
	if overridePrompt != nil {
		prompt = *overridePrompt
	}

	if strings.TrimSpace(prompt) == "" {
		return Result{Decision: DecisionInclude}
	}

	if strings.Contains(content, prompt) {
		return Result{Decision: DecisionInclude, Reasoning: "Content matches filter string: " + prompt}
	}

	if g.LLM == nil || !g.LLM.IsAvailable() {
		log.Warn().Str("doc_id", docID).Msg("llm unavailable, skipping filter (including all content)")
		return Result{Decision: DecisionInclude}
	}

	var resp llmResponse
	if err := g.LLM.CompleteStructured(ctx, buildPrompt(content, prompt), &resp); err != nil {
		log.Warn().Err(err).Str("doc_id", docID).Msg("llm filter failed, defaulting to include")
		return Result{Decision: DecisionInclude}
	}

	decision := strings.ToLower(strings.TrimSpace(resp.Decision))
	switch decision {
	case "include":
		return Result{Decision: DecisionInclude, Reasoning: resp.Reasoning}
	case "skip":
		reasoning := resp.Reasoning
		if len(reasoning) > 50 {
			reasoning = string([]rune(reasoning)[:50])
		}
		log.Info().Str("container_tag", containerTag).Str("doc_id", docID).Msg("llm filter decision: skip")
		return Result{Decision: DecisionSkip, Reasoning: reasoning}
	default:
		log.Warn().Str("decision", resp.Decision).Msg("llm returned invalid decision, defaulting to include")
		return Result{Decision: DecisionInclude}
	}
}

func buildPrompt(content, filterPrompt string) string {
	var b strings.Builder
	b.WriteString("You are filtering documents for relevance. Filter criterion: ")
	b.WriteString(filterPrompt)
	b.WriteString("\n\nContent:\n")
	b.WriteString(content)
	b.WriteString("\n\nRespond with JSON: {\"decision\": \"include\"|\"skip\", \"reasoning\": \"...\"}")
	return b.String()
}
