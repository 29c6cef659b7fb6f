package conversion

import (
	"strconv"
	"strings"
)

// minTableColumns is the smallest cell count for a line to count as a table
// row. Anything narrower is treated as prose that happens to contain a pipe.
const minTableColumns = 2

// MarkdownTables extracts pipe-delimited table rows from a markdown payload.
// The first data row becomes the header unless its cells are predominantly
// numeric, in which case synthetic "Column N" headers are generated. If no
// table structure is found at all, the single-column fallback is returned.
func MarkdownTables(payload []byte) Result {
	rows := tableRows(string(payload))
	if len(rows) == 0 {
		return Fallback(payload)
	}

	width := modalWidth(rows)
	for i, row := range rows {
		rows[i] = normalizeRow(row, width)
	}

	if predominantlyNumeric(rows[0]) {
		header := make([]string, width)
		for i := range header {
			header[i] = "Column " + strconv.Itoa(i+1)
		}
		return Result{Header: header, Rows: rows}
	}
	return Result{Header: rows[0], Rows: rows[1:]}
}

// tableRows returns the cleaned cell rows of every pipe table in the text.
// Logical rows may span several source lines: when a pipe-opened row has not
// been closed by a trailing pipe yet, the next pipe-bearing line continues it
// (multi-line cells arrive from the conversion service in that shape). Rows
// written without outer pipes are always complete on their own line.
func tableRows(text string) [][]string {
	var stitched []string
	var current string
	for _, line := range strings.Split(text, "\n") {
		if !strings.Contains(line, "|") {
			continue
		}
		trimmed := strings.TrimSpace(line)
		continues := current != "" &&
			strings.HasPrefix(current, "|") &&
			!strings.HasSuffix(current, "|") &&
			!strings.HasPrefix(trimmed, "|")
		if continues {
			current += " " + trimmed
			continue
		}
		if current != "" {
			stitched = append(stitched, current)
		}
		current = trimmed
	}
	if current != "" {
		stitched = append(stitched, current)
	}

	var rows [][]string
	for _, line := range stitched {
		if isSeparatorLine(line) {
			continue
		}
		cells := splitCells(line)
		if len(cells) >= minTableColumns {
			rows = append(rows, cells)
		}
	}
	return rows
}

// isSeparatorLine matches markdown header dividers: cells consisting only of
// dashes and alignment colons.
func isSeparatorLine(line string) bool {
	seen := false
	for _, r := range line {
		switch r {
		case '|', ':', ' ', '\t':
		case '-':
			seen = true
		default:
			return false
		}
	}
	return seen
}

// splitCells trims the outer pipes, splits on the delimiter, and trims each
// cell. Rows without outer pipes ("Name | Age | City") split the same way.
func splitCells(line string) []string {
	line = strings.TrimSpace(line)
	line = strings.TrimPrefix(line, "|")
	line = strings.TrimSuffix(line, "|")
	parts := strings.Split(line, "|")
	cells := make([]string, len(parts))
	for i, p := range parts {
		cells[i] = strings.TrimSpace(p)
	}
	return cells
}

// modalWidth is the most common cell count across rows; the earliest seen
// width wins a tie. Rows are normalized to this width rather than dropped.
func modalWidth(rows [][]string) int {
	counts := make(map[int]int)
	best, bestCount := 0, 0
	for _, row := range rows {
		counts[len(row)]++
		if counts[len(row)] > bestCount {
			best, bestCount = len(row), counts[len(row)]
		}
	}
	return best
}

// predominantlyNumeric reports whether more than half of the row's cells
// parse as numbers, which disqualifies it as a header.
func predominantlyNumeric(row []string) bool {
	numeric := 0
	for _, cell := range row {
		if cell == "" {
			continue
		}
		if _, err := strconv.ParseFloat(cell, 64); err == nil {
			numeric++
		}
	}
	return numeric*2 > len(row)
}
