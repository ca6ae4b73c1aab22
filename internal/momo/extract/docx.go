package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"momo/internal/momo/merrors"
	"momo/internal/momo/model"
)

// docxDocument mirrors the small slice of word/document.xml's schema Momo
// cares about: paragraphs made of runs of text.
type docxDocument struct {
	XMLName xml.Name `xml:"document"`
	Body    struct {
		Paragraphs []struct {
			Runs []struct {
				Text []string `xml:"t"`
			} `xml:"r"`
		} `xml:"p"`
	} `xml:"body"`
}

// ExtractDOCX reads word/document.xml out of the OOXML zip container and
// joins paragraph runs into plain text. No third-party docx library exists
// in the pack, so this uses archive/zip + encoding/xml directly, per
// SPEC_FULL.md's ambient-stack justification for OOXML extraction.
func ExtractDOCX(data []byte, sourcePath string) (Content, error) {
	const op = "extract.ExtractDOCX"

	text, err := extractOOXMLPart(data, "word/document.xml")
	if err != nil {
		return Content{}, merrors.Recoverable(op, err)
	}
	if text == "" {
		return Content{}, merrors.Recoverable(op, fmt.Errorf("no text in word/document.xml"))
	}

	return Content{
		Text:       text,
		DocType:    model.DocTypeDOCX,
		WordCount:  wordCount(text),
		SourcePath: sourcePath,
	}, nil
}

// ExtractPPTX concatenates text runs across every slideN.xml part in
// presentation order.
func ExtractPPTX(data []byte, sourcePath string) (Content, error) {
	const op = "extract.ExtractPPTX"

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Content{}, merrors.Recoverable(op, fmt.Errorf("open pptx: %w", err))
	}

	var buf strings.Builder
	for _, f := range zr.File {
		if !strings.HasPrefix(f.Name, "ppt/slides/slide") || !strings.HasSuffix(f.Name, ".xml") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			continue
		}
		raw, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			continue
		}
		buf.WriteString(extractAllXMLText(raw))
		buf.WriteString("\n\n")
	}

	text := strings.TrimSpace(buf.String())
	if text == "" {
		return Content{}, merrors.Recoverable(op, fmt.Errorf("no text in any slide"))
	}

	return Content{
		Text:       text,
		DocType:    model.DocTypePPTX,
		WordCount:  wordCount(text),
		SourcePath: sourcePath,
	}, nil
}

func extractOOXMLPart(data []byte, partName string) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open ooxml: %w", err)
	}

	for _, f := range zr.File {
		if f.Name != partName {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", err
		}
		defer rc.Close()

		raw, err := io.ReadAll(rc)
		if err != nil {
			return "", err
		}

		var doc docxDocument
		if err := xml.Unmarshal(raw, &doc); err != nil {
			return extractAllXMLText(raw), nil
		}

		var buf strings.Builder
		for _, p := range doc.Body.Paragraphs {
			for _, r := range p.Runs {
				for _, t := range r.Text {
					buf.WriteString(t)
				}
			}
			buf.WriteString("\n")
		}
		return strings.TrimSpace(buf.String()), nil
	}
	return "", fmt.Errorf("part %s not found", partName)
}

// extractAllXMLText is a tolerant fallback that walks every XML token and
// concatenates character data, used when the schema doesn't match the
// narrow docxDocument struct (e.g. PPTX's richer a:t run schema).
func extractAllXMLText(raw []byte) string {
	dec := xml.NewDecoder(bytes.NewReader(raw))
	var buf strings.Builder
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		if cd, ok := tok.(xml.CharData); ok {
			buf.Write(cd)
			buf.WriteString(" ")
		}
	}
	return strings.TrimSpace(buf.String())
}
