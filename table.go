package docint

import "strings"

// NewTable builds a Table from rows of cells, rendering its Markdown form.
// The first row is the header. Rows are padded to the widest row.
func NewTable(cells [][]string) Table {
	return Table{Cells: cells, Markdown: MarkdownTable(cells)}
}

// MarkdownTable renders cells as a GitHub-flavored Markdown table.
// Returns "" if cells is empty.
func MarkdownTable(cells [][]string) string {
	width := 0
	for _, row := range cells {
		width = max(width, len(row))
	}
	if width == 0 {
		return ""
	}

	var sb strings.Builder
	writeRow := func(row []string) {
		sb.WriteString("|")
		for i := range width {
			cell := ""
			if i < len(row) {
				cell = escapeCell(row[i])
			}
			sb.WriteString(" ")
			sb.WriteString(cell)
			sb.WriteString(" |")
		}
		sb.WriteString("\n")
	}

	writeRow(cells[0])
	sb.WriteString("|")
	for range width {
		sb.WriteString(" --- |")
	}
	sb.WriteString("\n")
	for _, row := range cells[1:] {
		writeRow(row)
	}
	return sb.String()
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.TrimSpace(s)
}
