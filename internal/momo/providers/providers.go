// Package providers defines Momo's boundary contracts for embedding, OCR,
// ASR, LLM completion, and reranking — the external interfaces spec.md §6
// leaves abstract. Implementations here: HTTP and deterministic local
// embedders, Anthropic and OpenAI SDK-backed LLMs (plus an always-unavailable
// stub), an HTTP OCR client, whisper.cpp-backed ASR, and an LLM-backed
// reranker alongside NoopReranker.
package providers

import "context"

// EmbeddingProvider turns text into fixed-dimensionality vectors.
type EmbeddingProvider interface {
	Dimensions() int
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	EmbedPassage(ctx context.Context, text string) ([]float32, error)
	EmbedPassages(ctx context.Context, texts []string) ([][]float32, error)
}

// OCRProvider extracts text from image bytes.
type OCRProvider interface {
	IsAvailable() bool
	OCR(ctx context.Context, imageBytes []byte) (string, error)
}

// ASRProvider transcribes audio bytes (already decoded to 16kHz mono PCM by
// the caller) to text.
type ASRProvider interface {
	IsAvailable() bool
	Transcribe(ctx context.Context, pcm []byte) (string, error)
}

// LLMProvider is Momo's narrow LLM contract: availability, free-text
// completion, and schema-constrained structured completion.
type LLMProvider interface {
	IsAvailable() bool
	Complete(ctx context.Context, prompt, system string) (string, error)
	// CompleteStructured asks the model to produce JSON matching the shape
	// of out, and unmarshals the response into out. out must be a pointer.
	CompleteStructured(ctx context.Context, prompt string, out any) error
}

// RerankProvider reorders candidate documents/chunks by relevance to a query.
type RerankProvider interface {
	IsAvailable() bool
	// Rerank returns, for each input text (by original index), a relevance
	// score; callers sort descending by score.
	Rerank(ctx context.Context, query string, texts []string) ([]float64, error)
}
