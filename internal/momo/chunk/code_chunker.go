package chunk

import "strings"

// codeChunker splits source code on blank-line boundaries (a cheap proxy
// for top-level declaration boundaries across languages) before falling
// back to the token chunker for oversized blocks.
type codeChunker struct {
	*tokenChunker
}

func (c *codeChunker) Chunk(text string, opts Options) []Candidate {
	opts = opts.withDefaults()
	blocks := splitOnBlankLines(text)

	var out []Candidate
	var pending strings.Builder
	flush := func() {
		content := strings.TrimSpace(pending.String())
		if content == "" {
			pending.Reset()
			return
		}
		if c.countTokens(content) <= opts.ChunkSize {
			out = append(out, Candidate{Content: content, TokenCount: c.countTokens(content)})
		} else {
			out = append(out, c.tokenChunker.Chunk(content, opts)...)
		}
		pending.Reset()
	}

	for _, block := range blocks {
		candidate := pending.String() + block + "\n\n"
		if c.countTokens(candidate) > opts.ChunkSize && pending.Len() > 0 {
			flush()
		}
		pending.WriteString(block)
		pending.WriteString("\n\n")
	}
	flush()

	if len(out) == 0 {
		return c.tokenChunker.Chunk(text, opts)
	}
	return out
}

func splitOnBlankLines(text string) []string {
	raw := strings.Split(text, "\n\n")
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		if strings.TrimSpace(r) != "" {
			out = append(out, r)
		}
	}
	return out
}
