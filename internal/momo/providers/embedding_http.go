package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPEmbeddingConfig configures httpEmbedder.
type HTTPEmbeddingConfig struct {
	BaseURL   string
	Path      string
	Model     string
	APIKey    string
	APIHeader string // e.g. "Authorization"; value is sent as "Bearer <key>"
	Dims      int
	Timeout   time.Duration
	BatchSize int
}

type httpEmbedder struct {
	cfg HTTPEmbeddingConfig
}

// NewHTTPEmbedder wraps an OpenAI-compatible embeddings endpoint, grounded
// on the teacher's internal/embedding.EmbedText request/response shape.
func NewHTTPEmbedder(cfg HTTPEmbeddingConfig) EmbeddingProvider {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 32
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &httpEmbedder{cfg: cfg}
}

func (h *httpEmbedder) Dimensions() int { return h.cfg.Dims }

func (h *httpEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	out, err := h.EmbedPassages(ctx, []string{text})
	if err != nil || len(out) == 0 {
		return nil, err
	}
	return out[0], nil
}

func (h *httpEmbedder) EmbedPassage(ctx context.Context, text string) ([]float32, error) {
	return h.EmbedQuery(ctx, text)
}

func (h *httpEmbedder) EmbedPassages(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	var all [][]float32
	for i := 0; i < len(texts); i += h.cfg.BatchSize {
		end := i + h.cfg.BatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := h.call(ctx, texts[i:end])
		if err != nil {
			return all, err
		}
		all = append(all, batch...)
	}
	return all, nil
}

type embedReq struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResp struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

func (h *httpEmbedder) call(ctx context.Context, inputs []string) ([][]float32, error) {
	body, _ := json.Marshal(embedReq{Model: h.cfg.Model, Input: inputs})
	cctx, cancel := context.WithTimeout(ctx, h.cfg.Timeout)
	defer cancel()

	url := h.cfg.BaseURL + h.cfg.Path
	req, err := http.NewRequestWithContext(cctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	if h.cfg.APIHeader == "Authorization" {
		req.Header.Set("Authorization", "Bearer "+h.cfg.APIKey)
	} else if h.cfg.APIHeader != "" {
		req.Header.Set(h.cfg.APIHeader, h.cfg.APIKey)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read embedding response: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("embeddings error: %s: %s", resp.Status, string(bodyBytes))
	}

	var er embedResp
	if err := json.Unmarshal(bodyBytes, &er); err != nil {
		return nil, fmt.Errorf("parse embedding response: %w", err)
	}
	out := make([][]float32, len(er.Data))
	for i, d := range er.Data {
		out[i] = d.Embedding
	}
	return out, nil
}
