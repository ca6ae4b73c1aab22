package chunk

import (
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// tokenChunker splits text into fixed-size, overlapping windows measured in
// real tokens (falling back to a char/4 heuristic with no encoder loaded).
type tokenChunker struct {
	encoder *tiktoken.Tiktoken
}

func (t *tokenChunker) countTokens(s string) int {
	if t.encoder != nil {
		return len(t.encoder.Encode(s, nil, nil))
	}
	return (len(s) + 3) / 4
}

func (t *tokenChunker) Chunk(text string, opts Options) []Candidate {
	opts = opts.withDefaults()
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	if t.encoder == nil {
		return t.chunkByChars(text, opts)
	}

	tokens := t.encoder.Encode(text, nil, nil)
	if len(tokens) == 0 {
		return nil
	}
	step := opts.ChunkSize - opts.ChunkOverlap
	if step <= 0 {
		step = opts.ChunkSize
	}
	var out []Candidate
	for start := 0; start < len(tokens); start += step {
		end := start + opts.ChunkSize
		if end > len(tokens) {
			end = len(tokens)
		}
		window := tokens[start:end]
		content := strings.TrimSpace(t.encoder.Decode(window))
		if content != "" {
			out = append(out, Candidate{Content: content, TokenCount: len(window)})
		}
		if end == len(tokens) {
			break
		}
	}
	return out
}

// chunkByChars is the fallback path when no tiktoken encoding is available.
func (t *tokenChunker) chunkByChars(text string, opts Options) []Candidate {
	maxChars := opts.ChunkSize * 4
	overlapChars := opts.ChunkOverlap * 4
	step := maxChars - overlapChars
	if step <= 0 {
		step = maxChars
	}
	runes := []rune(text)
	var out []Candidate
	for start := 0; start < len(runes); start += step {
		end := start + maxChars
		if end > len(runes) {
			end = len(runes)
		}
		content := strings.TrimSpace(string(runes[start:end]))
		if content != "" {
			out = append(out, Candidate{Content: content, TokenCount: t.countTokens(content)})
		}
		if end == len(runes) {
			break
		}
	}
	return out
}
