// Package dataprocessing turns spreadsheet files into typed datasets ready
// for the database writer.
//
// # Architecture
//
// The package has three parts, applied in this order:
//
// 1. Reader: ReadWorkbook loads the first sheet of an .xlsx file. The first
// row is the header; every other cell is kept as raw text (date cells as
// their serial number) or nil when empty.
//
// 2. Conform: checks the column set against a dataset.Schema and converts
// numeric and text columns to float64, int64 and string.
//
// 3. Dates: NormalizeDates rewrites a column to dataset.Date values, reading
// Excel serials (1900 and 1904 date systems), time values and common text
// layouts. Any time of day is dropped.
//
// # Usage
//
//	ds, err := dataprocessing.ReadWorkbook("stock_data.xlsx", logger)
//	if err != nil {
//	    return err
//	}
//	if err := dataprocessing.Conform(ds, dataset.StockSchema); err != nil {
//	    return err
//	}
//	if err := dataprocessing.NormalizeDates(ds, "Date"); err != nil {
//	    return err
//	}
//
// # Error Handling
//
// Errors are *errors.AppError values:
//
//   - FILE_NOT_FOUND when the workbook does not exist
//   - PARSING when the file or its header cannot be read
//   - SCHEMA_MISMATCH when the columns differ from the schema
//   - DATA_FORMAT when a cell cannot be converted, with column and sheet row in the context
//
// Conform and NormalizeDates never leave a dataset half converted.
package dataprocessing
