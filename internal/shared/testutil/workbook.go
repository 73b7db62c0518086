package testutil

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
)

// WriteWorkbook saves rows (header first) to a new .xlsx file in a temp
// directory and returns its path. time.Time values are written as
// date-formatted cells, everything else through SetCellValue.
func WriteWorkbook(t *testing.T, name string, rows [][]any) string {
	t.Helper()
	return WriteWorkbookSheet(t, name, "Sheet1", rows)
}

// WriteWorkbookSheet is WriteWorkbook with an explicit first sheet name.
func WriteWorkbookSheet(t *testing.T, name, sheet string, rows [][]any) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	if sheet != f.GetSheetName(0) {
		if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
			t.Fatalf("rename sheet: %v", err)
		}
	}

	dateStyle, err := f.NewStyle(&excelize.Style{NumFmt: 14})
	if err != nil {
		t.Fatalf("create date style: %v", err)
	}

	for r, row := range rows {
		for c, v := range row {
			if v == nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				t.Fatalf("cell name: %v", err)
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				t.Fatalf("set %s: %v", cell, err)
			}
			if _, isTime := v.(time.Time); isTime {
				if err := f.SetCellStyle(sheet, cell, cell, dateStyle); err != nil {
					t.Fatalf("style %s: %v", cell, err)
				}
			}
		}
	}

	path := filepath.Join(t.TempDir(), name)
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save workbook: %v", err)
	}
	return path
}

// StockRows returns a header plus one row per given date with fixed prices.
func StockRows(dates ...time.Time) [][]any {
	rows := [][]any{{"Date", "Open", "High", "Low", "Close", "Volume"}}
	for i, d := range dates {
		base := 100.0 + float64(i)
		rows = append(rows, []any{d, base, base + 5, base - 1, base + 2, 1000 + i})
	}
	return rows
}

// WeatherRows returns a header plus one row per given date.
func WeatherRows(dates ...time.Time) [][]any {
	rows := [][]any{{"Date", "Temperature", "Humidity", "Precipitation"}}
	for i, d := range dates {
		rows = append(rows, []any{d, 20.5 + float64(i), 0.6, 1.25})
	}
	return rows
}
