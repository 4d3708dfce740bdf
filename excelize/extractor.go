// Package excelize extracts spreadsheet contents as Markdown tables using
// xuri/excelize.
package excelize

import (
	"bytes"
	"context"
	"strings"

	"github.com/fwojciec/docint"
	"github.com/xuri/excelize/v2"
)

var _ docint.DocumentExtractor = (*Extractor)(nil)

// MimeType is the content type handled by Extractor.
const MimeType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Extractor turns every non-empty worksheet into a table. The content is a
// Markdown rendering of all sheets, each under a level-two heading.
type Extractor struct{}

// NewExtractor creates a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Name() string                 { return "xlsx" }
func (e *Extractor) SupportedMimeTypes() []string { return []string{MimeType} }
func (e *Extractor) Priority() int                { return 10 }

func (e *Extractor) Extract(ctx context.Context, content []byte, mimeType string, _ *docint.ExtractionConfig) (*docint.ExtractionResult, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, docint.Errorf(docint.EINVALID, "open workbook: %v", err)
	}
	defer func() { _ = f.Close() }()

	res := &docint.ExtractionResult{MimeType: mimeType}
	sheets := f.GetSheetList()

	var sb strings.Builder
	for i, sheet := range sheets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, docint.Errorf(docint.EINVALID, "read sheet %q: %v", sheet, err)
		}
		rows = trimRows(rows)
		if len(rows) == 0 {
			continue
		}
		table := docint.NewTable(rows)
		table.PageNumber = i + 1
		res.Tables = append(res.Tables, table)

		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString("## ")
		sb.WriteString(sheet)
		sb.WriteString("\n\n")
		sb.WriteString(table.Markdown)
	}
	res.Content = strings.TrimSpace(sb.String())

	res.SetMetadata("sheet_count", len(sheets))
	res.SetMetadata("sheet_names", sheets)
	if props, err := f.GetDocProps(); err == nil {
		if props.Title != "" {
			res.SetMetadata("title", props.Title)
		}
		if props.Creator != "" {
			res.SetMetadata("author", props.Creator)
		}
	}
	return res, nil
}

// trimRows drops trailing rows that hold only blank cells.
func trimRows(rows [][]string) [][]string {
	for len(rows) > 0 && blank(rows[len(rows)-1]) {
		rows = rows[:len(rows)-1]
	}
	return rows
}

func blank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
