package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"momo/internal/momo/merrors"
	"momo/internal/momo/model"
)

// ExtractPDF pulls the plain-text stream out of a PDF page by page,
// grounded on ledongthuc/pdf's GetPlainText reader pattern.
func ExtractPDF(data []byte, sourcePath string) (Content, error) {
	const op = "extract.ExtractPDF"

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Content{}, merrors.Recoverable(op, fmt.Errorf("open pdf: %w", err))
	}

	var buf strings.Builder
	totalPages := r.NumPage()
	for i := 1; i <= totalPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		buf.WriteString(text)
		buf.WriteString("\n\n")
	}

	text := strings.TrimSpace(buf.String())
	if text == "" {
		return Content{}, merrors.Recoverable(op, fmt.Errorf("no extractable text in %d pages", totalPages))
	}

	return Content{
		Text:       text,
		DocType:    model.DocTypePDF,
		WordCount:  wordCount(text),
		SourcePath: sourcePath,
	}, nil
}
