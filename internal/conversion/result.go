// Package conversion turns the structured payloads returned by the conversion
// service (markdown tables or nested JSON) into a flat tabular result. All
// functions here are pure: same input bytes, same result, no I/O.
package conversion

import "strings"

// FallbackHeader is the single column used when no usable structure is found.
const FallbackHeader = "Content"

// Result is the normalized tabular shape: one shared header row and uniform
// data rows. Every row has exactly len(Header) cells; missing values are
// empty strings, never omitted.
type Result struct {
	Header []string
	Rows   [][]string
}

// Columns returns the header width.
func (r Result) Columns() int {
	return len(r.Header)
}

// Fallback produces the degraded single-column result used when a payload has
// no recognizable structure. Each non-empty line of the payload becomes one
// row. The header is always non-empty, so this path never fails a job.
func Fallback(payload []byte) Result {
	res := Result{Header: []string{FallbackHeader}}
	for _, line := range strings.Split(string(payload), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		res.Rows = append(res.Rows, []string{line})
	}
	return res
}

// normalizeRow pads row with empty cells up to width, or merges overflow
// cells into the last column, so row length is always exactly width.
func normalizeRow(row []string, width int) []string {
	if len(row) == width {
		return row
	}
	if len(row) < width {
		out := make([]string, width)
		copy(out, row)
		return out
	}
	out := make([]string, width)
	copy(out, row[:width-1])
	out[width-1] = strings.Join(row[width-1:], " ")
	return out
}
