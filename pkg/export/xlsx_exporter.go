package export

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const xlsxSheet = "Report"

// XLSXExporter renders datasets into a single-sheet workbook. Decimal-looking cells are written
// as numbers so spreadsheet totals work.
type XLSXExporter struct{}

// NewXLSXExporter constructs an XLSX exporter.
func NewXLSXExporter() *XLSXExporter {
	return &XLSXExporter{}
}

// ContentType implements Renderer.
func (e *XLSXExporter) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// Extension implements Renderer.
func (e *XLSXExporter) Extension() string { return FormatXLSX }

// Render writes the summary block followed by the table.
func (e *XLSXExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("xlsx requires at least one header")
	}
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", xlsxSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	row := 1
	if data.Title != "" {
		if err := setCell(f, 1, row, data.Title); err != nil {
			return nil, err
		}
		row += 2
	}
	for _, field := range data.Summary {
		if err := setCell(f, 1, row, field.Label); err != nil {
			return nil, err
		}
		if err := setCell(f, 2, row, field.Value); err != nil {
			return nil, err
		}
		row++
	}
	if len(data.Summary) > 0 {
		row++
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}
	for i, header := range data.Headers {
		if err := setCell(f, i+1, row, header); err != nil {
			return nil, err
		}
	}
	first, _ := excelize.CoordinatesToCellName(1, row)
	last, _ := excelize.CoordinatesToCellName(len(data.Headers), row)
	if err := f.SetCellStyle(xlsxSheet, first, last, bold); err != nil {
		return nil, fmt.Errorf("style header: %w", err)
	}
	row++

	for _, r := range data.Rows {
		for i, value := range record(data.Headers, r) {
			if err := setCell(f, i+1, row, value); err != nil {
				return nil, err
			}
		}
		row++
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("render xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

func setCell(f *excelize.File, col, row int, value string) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return fmt.Errorf("resolve cell: %w", err)
	}
	var v interface{} = value
	if d, err := decimal.NewFromString(value); err == nil {
		v, _ = d.Float64()
	}
	if err := f.SetCellValue(xlsxSheet, cell, v); err != nil {
		return fmt.Errorf("write cell %s: %w", cell, err)
	}
	return nil
}
