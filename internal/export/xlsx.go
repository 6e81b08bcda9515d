// Package export renders extracted RFP fields as spreadsheets.
package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/hyperifyio/rfpextract/internal/schema"
)

// SheetName is the worksheet holding the extracted rows.
const SheetName = "RFPs"

// Excel caps a cell at 32767 characters.
const maxCellLen = 32767

// XLSX returns a workbook with one header row of field names followed by one
// row per entry of rows, in order. An optional source column records which
// file each row came from when sources is non-nil.
func XLSX(s schema.Schema, rows []schema.Fields, sources []string) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if index, _ := f.GetSheetIndex(SheetName); index == -1 {
		if _, err := f.NewSheet(SheetName); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(SheetName)
	f.SetActiveSheet(activeIndex)
	_ = f.DeleteSheet("Sheet1")

	headers := s.Names()
	withSource := sources != nil
	if withSource {
		headers = append(headers, "Source File")
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(SheetName, cell, h); err != nil {
			return nil, fmt.Errorf("header %q: %w", h, err)
		}
	}

	for r, fields := range rows {
		row := r + 2
		for c, name := range s.Names() {
			cell, _ := excelize.CoordinatesToCellName(c+1, row)
			if err := f.SetCellValue(SheetName, cell, clip(fields[name])); err != nil {
				return nil, fmt.Errorf("row %d: %w", row, err)
			}
		}
		if withSource && r < len(sources) {
			cell, _ := excelize.CoordinatesToCellName(len(headers), row)
			_ = f.SetCellValue(SheetName, cell, sources[r])
		}
	}

	last, _ := excelize.ColumnNumberToName(len(headers))
	_ = f.SetColWidth(SheetName, "A", last, 28)
	_ = f.SetPanes(SheetName, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

func clip(s string) string {
	r := []rune(s)
	if len(r) <= maxCellLen {
		return s
	}
	return string(r[:maxCellLen-1]) + "…"
}
