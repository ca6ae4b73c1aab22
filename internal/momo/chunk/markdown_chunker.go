package chunk

import "strings"

// markdownChunker splits on heading boundaries first, then falls back to
// the token chunker for any section that still exceeds the chunk budget.
type markdownChunker struct {
	*tokenChunker
}

func (m *markdownChunker) Chunk(text string, opts Options) []Candidate {
	opts = opts.withDefaults()
	sections := splitOnHeadings(text)

	var out []Candidate
	for _, section := range sections {
		section = strings.TrimSpace(section)
		if section == "" {
			continue
		}
		if m.countTokens(section) <= opts.ChunkSize {
			out = append(out, Candidate{Content: section, TokenCount: m.countTokens(section)})
			continue
		}
		out = append(out, m.tokenChunker.Chunk(section, opts)...)
	}
	if len(out) == 0 {
		return m.tokenChunker.Chunk(text, opts)
	}
	return out
}

// splitOnHeadings breaks markdown into sections at each ATX heading line
// (e.g. "## Title"), keeping the heading with the section it introduces.
func splitOnHeadings(text string) []string {
	lines := strings.Split(text, "\n")
	var sections []string
	var current strings.Builder
	for _, line := range lines {
		if isHeadingLine(line) && current.Len() > 0 {
			sections = append(sections, current.String())
			current.Reset()
		}
		current.WriteString(line)
		current.WriteString("\n")
	}
	if current.Len() > 0 {
		sections = append(sections, current.String())
	}
	return sections
}

func isHeadingLine(line string) bool {
	trimmed := strings.TrimSpace(line)
	return strings.HasPrefix(trimmed, "#")
}
