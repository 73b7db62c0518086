// Package shared groups helpers used by more than one package.
//
// The testutil subpackage provides the test fixtures: a buffered slog
// handler for asserting on log output and builders that write stock and
// weather workbooks to a temporary directory.
//
//	logger, logs := testutil.NewTestLogger(t)
//	path := testutil.WriteWorkbook(t, "stock.xlsx", testutil.StockRows(day1, day2))
package shared
