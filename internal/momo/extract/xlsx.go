package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"momo/internal/momo/merrors"
	"momo/internal/momo/model"
)

// ExtractXLSX flattens every sheet's rows into tab-separated lines prefixed
// with the sheet name, grounded on excelize's GetRows API.
func ExtractXLSX(data []byte, sourcePath string) (Content, error) {
	const op = "extract.ExtractXLSX"

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return Content{}, merrors.Recoverable(op, fmt.Errorf("open xlsx: %w", err))
	}
	defer f.Close()

	var buf strings.Builder
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			continue
		}
		if len(rows) == 0 {
			continue
		}
		buf.WriteString("# " + sheet + "\n")
		for _, row := range rows {
			buf.WriteString(strings.Join(row, "\t"))
			buf.WriteString("\n")
		}
		buf.WriteString("\n")
	}

	text := strings.TrimSpace(buf.String())
	if text == "" {
		return Content{}, merrors.Recoverable(op, fmt.Errorf("no rows in any sheet"))
	}

	return Content{
		Text:       text,
		DocType:    model.DocTypeXLSX,
		WordCount:  wordCount(text),
		SourcePath: sourcePath,
	}, nil
}
