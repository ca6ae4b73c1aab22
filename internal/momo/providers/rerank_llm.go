package providers

import (
	"context"
	"strconv"
)

// NoopReranker leaves ordering unchanged and reports itself unavailable, so
// search.Service skips reranking while it is installed. A failing reranker
// is not replaced by this type: search.Service keeps the base scores instead
// (spec.md §8 "Rerank fallback" law). Grounded on the teacher's
// retrieve.NoopReranker.
type NoopReranker struct{}

func (NoopReranker) IsAvailable() bool { return false }

func (NoopReranker) Rerank(_ context.Context, _ string, texts []string) ([]float64, error) {
	scores := make([]float64, len(texts))
	for i := range scores {
		scores[i] = 0
	}
	return scores, nil
}

type llmReranker struct {
	llm LLMProvider
}

// NewLLMReranker asks the configured LLM to score each candidate's
// relevance to query on a 0..1 scale via structured output, since none of
// the pack's examples vendor a dedicated cross-encoder reranking SDK.
func NewLLMReranker(llm LLMProvider) RerankProvider {
	return &llmReranker{llm: llm}
}

func (r *llmReranker) IsAvailable() bool { return r.llm.IsAvailable() }

type rerankScoresResponse struct {
	Scores []float64 `json:"scores"`
}

func (r *llmReranker) Rerank(ctx context.Context, query string, texts []string) ([]float64, error) {
	if !r.llm.IsAvailable() || len(texts) == 0 {
		return nil, errUnavailableForRerank
	}
	prompt := buildRerankPrompt(query, texts)
	var resp rerankScoresResponse
	if err := r.llm.CompleteStructured(ctx, prompt, &resp); err != nil {
		return nil, err
	}
	if len(resp.Scores) != len(texts) {
		return nil, errRerankShapeMismatch
	}
	return resp.Scores, nil
}

func buildRerankPrompt(query string, texts []string) string {
	p := "Score how relevant each candidate is to the query on a 0.0 to 1.0 scale.\n"
	p += "Query: " + query + "\n\nCandidates:\n"
	for i, t := range texts {
		p += strconv.Itoa(i) + ". " + t + "\n"
	}
	p += "\nRespond with JSON: {\"scores\": [<one float per candidate, in order>]}"
	return p
}

var (
	errUnavailableForRerank = rerankErr("reranker unavailable")
	errRerankShapeMismatch  = rerankErr("reranker returned a different number of scores than candidates")
)

type rerankErr string

func (e rerankErr) Error() string { return string(e) }
