package chunk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"momo/internal/momo/model"
)

func TestRegistryNeverEmitsEmptyChunks(t *testing.T) {
	r := NewRegistry()
	out := r.Chunk("   \n\n  ", model.DocTypeText, Options{})
	assert.Empty(t, out)
}

func TestRegistryChunksLongText(t *testing.T) {
	r := NewRegistry()
	text := strings.Repeat("the quick brown fox jumps over the lazy dog. ", 400)
	out := r.Chunk(text, model.DocTypeText, Options{ChunkSize: 64, ChunkOverlap: 8})
	require.NotEmpty(t, out)
	for _, c := range out {
		assert.NotEmpty(t, strings.TrimSpace(c.Content))
		assert.Greater(t, c.TokenCount, 0)
	}
}

func TestMarkdownChunkerSplitsOnHeadings(t *testing.T) {
	r := NewRegistry()
	text := "# Title\nintro text\n\n## Section A\nbody a\n\n## Section B\nbody b\n"
	out := r.Chunk(text, model.DocTypeMarkdown, Options{ChunkSize: 512})
	require.NotEmpty(t, out)
}
