// Package extract implements Momo's content extractor dispatch: magic-byte
// sniffing, URL/HTML detection, and a code-vs-text heuristic, grounded on
// the teacher's internal/rag/ingest preprocessing and internal/tools/web
// fetch code, generalized to the doc types spec.md §3 names.
package extract

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"momo/internal/momo/model"
)

// Content is what an extractor produces from raw input.
type Content struct {
	Text       string
	Title      string
	DocType    model.DocType
	URL        string
	WordCount  int
	SourcePath string
}

const userAgent = "MomoBot/1.0 (+https://momo.local)"
const fetchTimeout = 15 * time.Second

// Extract classifies and extracts text from raw input, which may be a URL,
// an HTML literal, or plain text/code. Binary doc types (image/audio/video)
// are handled upstream by the ingestion pipeline via OCR/ASR providers,
// since they require provider calls this package does not own.
func Extract(ctx context.Context, input string, sourcePath string) (Content, error) {
	trimmed := strings.TrimSpace(input)

	if isURL(trimmed) {
		return extractURL(ctx, trimmed)
	}

	if looksLikeHTML(trimmed) {
		return extractHTML(trimmed, "")
	}

	if sourcePath != "" {
		if dt, ok := docTypeFromExtension(sourcePath); ok && dt != model.DocTypeText {
			return Content{Text: trimmed, DocType: dt, WordCount: wordCount(trimmed), SourcePath: sourcePath}, nil
		}
	}

	if looksLikeCode(trimmed) {
		return Content{Text: trimmed, DocType: model.DocTypeCode, WordCount: wordCount(trimmed), SourcePath: sourcePath}, nil
	}

	return Content{Text: trimmed, DocType: model.DocTypeText, WordCount: wordCount(trimmed), SourcePath: sourcePath}, nil
}

func isURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

var htmlSignal = regexp.MustCompile(`(?i)<(html|body|div|p|span|table)[ >]`)

func looksLikeHTML(s string) bool {
	return htmlSignal.MatchString(s)
}

// codeKeywordPattern is the language-keyword signal of looksLikeCode's
// multi-signal heuristic: shebang, language keywords, and punctuation
// density, per spec.md §4.2.
var codeKeywordPattern = regexp.MustCompile(`\b(func|def|class|import|package|public|private|const|let|var|return|void|namespace)\b`)

func looksLikeCode(s string) bool {
	if strings.HasPrefix(s, "#!") {
		return true
	}
	if codeKeywordPattern.MatchString(s) {
		return true
	}
	lines := strings.Split(s, "\n")
	if len(lines) < 2 {
		return false
	}
	braceOrSemi := 0
	indented := 0
	for _, l := range lines {
		if strings.ContainsAny(l, "{};") {
			braceOrSemi++
		}
		if strings.HasPrefix(l, "\t") || strings.HasPrefix(l, "    ") {
			indented++
		}
	}
	density := float64(braceOrSemi) / float64(len(lines))
	indentDensity := float64(indented) / float64(len(lines))
	return density > 0.25 || indentDensity > 0.4
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}

// docTypeFromExtension maps a source path's extension to a doc type, used
// both for extension-based fallback and for the downgrade-prevention rule
// in the ingestion pipeline's indexing stage.
func docTypeFromExtension(path string) (model.DocType, bool) {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".md"), strings.HasSuffix(lower, ".markdown"):
		return model.DocTypeMarkdown, true
	case strings.HasSuffix(lower, ".pdf"):
		return model.DocTypePDF, true
	case strings.HasSuffix(lower, ".docx"):
		return model.DocTypeDOCX, true
	case strings.HasSuffix(lower, ".xlsx"):
		return model.DocTypeXLSX, true
	case strings.HasSuffix(lower, ".pptx"):
		return model.DocTypePPTX, true
	case strings.HasSuffix(lower, ".csv"):
		return model.DocTypeCSV, true
	case strings.HasSuffix(lower, ".png"), strings.HasSuffix(lower, ".jpg"), strings.HasSuffix(lower, ".jpeg"), strings.HasSuffix(lower, ".gif"):
		return model.DocTypeImage, true
	case strings.HasSuffix(lower, ".mp3"), strings.HasSuffix(lower, ".wav"), strings.HasSuffix(lower, ".m4a"), strings.HasSuffix(lower, ".flac"), strings.HasSuffix(lower, ".ogg"):
		return model.DocTypeAudio, true
	case strings.HasSuffix(lower, ".mp4"), strings.HasSuffix(lower, ".mov"), strings.HasSuffix(lower, ".webm"):
		return model.DocTypeVideo, true
	case isCodeExtension(lower):
		return model.DocTypeCode, true
	default:
		return model.DocTypeText, false
	}
}

var codeExtensions = []string{
	".go", ".py", ".js", ".ts", ".tsx", ".jsx", ".rs", ".java", ".c", ".cpp", ".h", ".hpp",
	".rb", ".php", ".cs", ".swift", ".kt", ".scala", ".sh", ".sql",
}

func isCodeExtension(lower string) bool {
	for _, ext := range codeExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// SniffMagicBytes returns the doc type implied by a binary payload's magic
// number, used when the caller has raw bytes instead of a source path.
func SniffMagicBytes(b []byte) (model.DocType, bool) {
	switch {
	case bytes.HasPrefix(b, []byte("%PDF-")):
		return model.DocTypePDF, true
	case bytes.HasPrefix(b, []byte{0x50, 0x4B, 0x03, 0x04}): // ZIP-based: docx/xlsx/pptx share this
		return model.DocTypeDOCX, true
	case bytes.HasPrefix(b, []byte{0xFF, 0xD8, 0xFF}): // JPEG
		return model.DocTypeImage, true
	case bytes.HasPrefix(b, []byte("\x89PNG")):
		return model.DocTypeImage, true
	case bytes.HasPrefix(b, []byte("ID3")), bytes.HasPrefix(b, []byte{0xFF, 0xFB}): // MP3
		return model.DocTypeAudio, true
	case bytes.HasPrefix(b, []byte("RIFF")):
		return model.DocTypeAudio, true
	default:
		return model.DocTypeUnknown, false
	}
}

// newHTTPClient builds the client fetch uses; the chromedp fallback drives
// its own browser and does not use it.
func newHTTPClient() *http.Client {
	return &http.Client{Timeout: fetchTimeout}
}
