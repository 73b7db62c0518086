package dataprocessing

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/applesandbeer/weatherisafog/internal/dataset"
	apperrors "github.com/applesandbeer/weatherisafog/internal/errors"
)

// ReadWorkbook loads the first sheet of an Excel workbook into a Dataset.
// The first row supplies the column names; every following non-blank row
// becomes a dataset row. Cells are kept as their raw text (date cells keep
// their serial number) and empty cells become nil. A nil logger logs to
// slog.Default().
func ReadWorkbook(filePath string, logger *slog.Logger) (*dataset.Dataset, error) {
	if logger == nil {
		logger = slog.Default()
	}

	f, err := excelize.OpenFile(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperrors.NewFileNotFoundError(filePath, err)
		}
		return nil, apperrors.NewParsingError("failed to open workbook", err).WithContext("path", filePath)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, apperrors.NewParsingError("workbook has no sheets", nil).WithContext("path", filePath)
	}
	sheetName := sheets[0]

	rows, err := f.GetRows(sheetName, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, apperrors.NewParsingError("failed to read sheet", err).
			WithContext("path", filePath).
			WithContext("sheet", sheetName)
	}

	date1904 := false
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		date1904 = *props.Date1904
	}

	logger.Debug("Read sheet",
		slog.String("path", filePath),
		slog.String("sheet_name", sheetName),
		slog.Int("total_rows", len(rows)),
		slog.Bool("date_1904", date1904))

	ds, err := buildDataset(rows)
	if err != nil {
		return nil, apperrors.NewParsingError(err.Error(), nil).
			WithContext("path", filePath).
			WithContext("sheet", sheetName)
	}
	ds.Source = dataset.Source{Path: filePath, Sheet: sheetName, Date1904: date1904}

	logger.Debug("Workbook loaded",
		slog.String("path", filePath),
		slog.Any("columns", ds.Columns()),
		slog.Int("rows", ds.NumRows()))

	return ds, nil
}

// buildDataset turns raw sheet rows into a Dataset using the first row as
// the header.
func buildDataset(rows [][]string) (*dataset.Dataset, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet is empty")
	}

	header := rows[0]
	// Trailing blank header cells are dropped; excelize pads rows to the
	// widest populated cell.
	for len(header) > 0 && strings.TrimSpace(header[len(header)-1]) == "" {
		header = header[:len(header)-1]
	}
	if len(header) == 0 {
		return nil, fmt.Errorf("header row is empty")
	}

	names := make([]string, len(header))
	for i, h := range header {
		names[i] = strings.TrimSpace(h)
		if names[i] == "" {
			col, _ := excelize.ColumnNumberToName(i + 1)
			return nil, fmt.Errorf("header cell %s1 is empty", col)
		}
	}

	data := make([][]any, 0, len(rows)-1)
	for i := 1; i < len(rows); i++ {
		row := rows[i]
		if isBlankRow(row) {
			continue
		}
		if len(row) > len(names) && !isBlankRow(row[len(names):]) {
			return nil, fmt.Errorf("row %d has values beyond the last header column", i+1)
		}

		values := make([]any, len(names))
		for j := range names {
			if j < len(row) {
				if cell := strings.TrimSpace(row[j]); cell != "" {
					values[j] = cell
				}
			}
		}
		data = append(data, values)
	}

	return dataset.New(names, data)
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
