package filter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"momo/internal/momo/providers"
)

func TestFilterEmptyPromptIncludes(t *testing.T) {
	g := &Gate{LLM: providers.NewUnavailableLLM("test")}
	r := g.Filter(context.Background(), "anything at all", "tag", "doc1", nil)
	assert.Equal(t, DecisionInclude, r.Decision)
}

func TestFilterLiteralMatchIncludesWithoutLLMCall(t *testing.T) {
	g := &Gate{LLM: providers.NewUnavailableLLM("test"), GlobalPrompt: "invoice"}
	r := g.Filter(context.Background(), "this is an invoice for services rendered", "tag", "doc1", nil)
	assert.Equal(t, DecisionInclude, r.Decision)
	assert.Contains(t, r.Reasoning, "invoice")
}

func TestFilterLLMUnavailableFailsOpen(t *testing.T) {
	g := &Gate{LLM: providers.NewUnavailableLLM("test"), GlobalPrompt: "technical documents only"}
	r := g.Filter(context.Background(), "buy our amazing product", "tag", "doc1", nil)
	assert.Equal(t, DecisionInclude, r.Decision)
}

func TestFilterOverridePromptTakesPrecedence(t *testing.T) {
	g := &Gate{LLM: providers.NewUnavailableLLM("test"), GlobalPrompt: "global"}
	override := "override-string"
	r := g.Filter(context.Background(), "contains override-string here", "tag", "doc1", &override)
	assert.Equal(t, DecisionInclude, r.Decision)
	assert.Contains(t, r.Reasoning, "override-string")
}
