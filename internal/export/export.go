// Package export serializes tabular results into the bytes written to the
// object store.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/docparse/constants"
	"github.com/joseph-ayodele/docparse/internal/conversion"
)

// Serialize renders the result in the requested format. The empty format
// means CSV.
func Serialize(res conversion.Result, format constants.OutputFormat) ([]byte, error) {
	if format == constants.OutputXLSX {
		return XLSX(res)
	}
	return CSV(res)
}

// ContentType returns the MIME type stored alongside the output object.
func ContentType(format constants.OutputFormat) string {
	if format == constants.OutputXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv"
}

// CSV renders the header row followed by the data rows.
func CSV(res conversion.Result) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(res.Header); err != nil {
		return nil, fmt.Errorf("csv write header: %w", err)
	}
	for _, row := range res.Rows {
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("csv write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("csv flush: %w", err)
	}
	return buf.Bytes(), nil
}

// XLSX renders a single-sheet workbook with the header in row 1.
func XLSX(res conversion.Result) ([]byte, error) {
	f := excelize.NewFile()
	const sheet = "Sheet1"

	for i, h := range res.Header {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}
	for r, row := range res.Rows {
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}
