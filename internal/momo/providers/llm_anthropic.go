package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"momo/internal/momo/obslog"
)

// AnthropicConfig configures anthropicLLM.
type AnthropicConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int64
	Timeout   time.Duration
}

type anthropicLLM struct {
	sdk       anthropic.Client
	model     string
	maxTokens int64
	timeout   time.Duration
	available bool
}

// NewAnthropicLLM wraps anthropic-sdk-go behind providers.LLMProvider.
// IsAvailable is false when no API key is configured, matching the fail-open
// "unavailable" contract every core consumer (filter, relationship
// detector, inference engine) relies on.
func NewAnthropicLLM(cfg AnthropicConfig) LLMProvider {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1024
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	opts := []option.RequestOption{option.WithAPIKey(strings.TrimSpace(cfg.APIKey))}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")))
	}
	model := cfg.Model
	if model == "" {
		model = string(anthropic.ModelClaude3_7SonnetLatest)
	}
	return &anthropicLLM{
		sdk:       anthropic.NewClient(opts...),
		model:     model,
		maxTokens: cfg.MaxTokens,
		timeout:   cfg.Timeout,
		available: strings.TrimSpace(cfg.APIKey) != "",
	}
}

func (a *anthropicLLM) IsAvailable() bool { return a.available }

func (a *anthropicLLM) Complete(ctx context.Context, prompt, system string) (string, error) {
	if !a.available {
		return "", fmt.Errorf("anthropic llm unavailable")
	}
	cctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: a.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	log := obslog.FromContext(ctx)
	resp, err := a.sdk.Messages.New(cctx, params)
	if err != nil {
		log.Warn().Err(err).Str("model", a.model).Msg("momo_llm_complete_error")
		return "", err
	}
	var sb strings.Builder
	for _, block := range resp.Content {
		if text := block.AsText(); text.Text != "" {
			sb.WriteString(text.Text)
		}
	}
	return sb.String(), nil
}

func (a *anthropicLLM) CompleteStructured(ctx context.Context, prompt string, out any) error {
	text, err := a.Complete(ctx, prompt, "Respond with strict JSON only, no prose, no markdown fences.")
	if err != nil {
		return err
	}
	text = stripJSONFences(text)
	if err := json.Unmarshal([]byte(text), out); err != nil {
		return fmt.Errorf("parse llm structured response: %w", err)
	}
	return nil
}

// stripJSONFences removes a leading/trailing ```json fence if present —
// models frequently wrap structured output in one despite instructions.
func stripJSONFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// unavailableLLM is the zero-configuration LLM provider: every consumer's
// fail-open path exercises this implementation in tests.
type unavailableLLM struct{ reason string }

// NewUnavailableLLM returns an LLMProvider that always reports unavailable,
// used as the default when no API key is configured.
func NewUnavailableLLM(reason string) LLMProvider { return &unavailableLLM{reason: reason} }

func (u *unavailableLLM) IsAvailable() bool { return false }
func (u *unavailableLLM) Complete(_ context.Context, _, _ string) (string, error) {
	return "", fmt.Errorf("llm unavailable: %s", u.reason)
}
func (u *unavailableLLM) CompleteStructured(_ context.Context, _ string, _ any) error {
	return fmt.Errorf("llm unavailable: %s", u.reason)
}
