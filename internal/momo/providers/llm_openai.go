package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/packages/param"
	"github.com/openai/openai-go/v2/shared"

	"momo/internal/momo/obslog"
)

// OpenAIConfig configures openaiLLM.
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string // optional: points at an OpenAI-compatible endpoint
	Model       string
	Temperature float64
	MaxTokens   int64
	Timeout     time.Duration
}

type openaiLLM struct {
	sdk         openai.Client
	model       string
	temperature float64
	maxTokens   int64
	timeout     time.Duration
	available   bool
}

// NewOpenAILLM wraps openai-go behind providers.LLMProvider, selected by
// config.LLMConfig.Backend == "openai". Same fail-open IsAvailable contract
// as NewAnthropicLLM: no API key means every caller treats the provider as
// absent rather than erroring.
func NewOpenAILLM(cfg OpenAIConfig) LLMProvider {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1024
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	opts := []option.RequestOption{option.WithAPIKey(strings.TrimSpace(cfg.APIKey))}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")))
	}
	return &openaiLLM{
		sdk:         openai.NewClient(opts...),
		model:       model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		timeout:     cfg.Timeout,
		available:   strings.TrimSpace(cfg.APIKey) != "",
	}
}

func (o *openaiLLM) IsAvailable() bool { return o.available }

func (o *openaiLLM) Complete(ctx context.Context, prompt, system string) (string, error) {
	if !o.available {
		return "", fmt.Errorf("openai llm unavailable")
	}
	cctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	var msgs []openai.ChatCompletionMessageParamUnion
	if system != "" {
		msgs = append(msgs, openai.SystemMessage(system))
	}
	msgs = append(msgs, openai.UserMessage(prompt))

	params := openai.ChatCompletionNewParams{
		Model:     shared.ChatModel(o.model),
		Messages:  msgs,
		MaxTokens: param.NewOpt(o.maxTokens),
	}
	if o.temperature > 0 {
		params.Temperature = param.NewOpt(o.temperature)
	}

	log := obslog.FromContext(ctx)
	resp, err := o.sdk.Chat.Completions.New(cctx, params)
	if err != nil {
		log.Warn().Err(err).Str("model", o.model).Msg("momo_llm_complete_error")
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

func (o *openaiLLM) CompleteStructured(ctx context.Context, prompt string, out any) error {
	text, err := o.Complete(ctx, prompt, "Respond with strict JSON only, no prose, no markdown fences.")
	if err != nil {
		return err
	}
	text = stripJSONFences(text)
	if err := json.Unmarshal([]byte(text), out); err != nil {
		return fmt.Errorf("parse llm structured response: %w", err)
	}
	return nil
}
