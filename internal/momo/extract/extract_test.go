package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"momo/internal/momo/model"
)

func TestExtractPlainText(t *testing.T) {
	out, err := Extract(context.Background(), "just a note to self about groceries", "")
	require.NoError(t, err)
	assert.Equal(t, model.DocTypeText, out.DocType)
	assert.Equal(t, 7, out.WordCount)
}

func TestExtractDetectsCode(t *testing.T) {
	src := "func main() {\n\tfmt.Println(\"hi\")\n}\n"
	out, err := Extract(context.Background(), src, "")
	require.NoError(t, err)
	assert.Equal(t, model.DocTypeCode, out.DocType)
}

func TestExtractDetectsHTML(t *testing.T) {
	out, err := Extract(context.Background(), "<html><body><p>hello world</p></body></html>", "")
	require.NoError(t, err)
	assert.Contains(t, out.Text, "hello world")
}

func TestDocTypeFromExtension(t *testing.T) {
	cases := map[string]model.DocType{
		"report.pdf":   model.DocTypePDF,
		"notes.md":     model.DocTypeMarkdown,
		"sheet.xlsx":   model.DocTypeXLSX,
		"slide.pptx":   model.DocTypePPTX,
		"doc.docx":     model.DocTypeDOCX,
		"main.go":      model.DocTypeCode,
		"photo.png":    model.DocTypeImage,
		"clip.mp3":     model.DocTypeAudio,
		"movie.mp4":    model.DocTypeVideo,
		"mystery.xyz":  model.DocTypeText,
	}
	for path, want := range cases {
		dt, _ := docTypeFromExtension(path)
		assert.Equal(t, want, dt, path)
	}
}

func TestSniffMagicBytes(t *testing.T) {
	dt, ok := SniffMagicBytes([]byte("%PDF-1.4\n..."))
	require.True(t, ok)
	assert.Equal(t, model.DocTypePDF, dt)

	_, ok = SniffMagicBytes([]byte("not a recognized format"))
	assert.False(t, ok)
}
