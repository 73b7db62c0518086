// Package dataset holds the in-memory tabular structure that flows from the
// spreadsheet reader to the upsert writer.
//
// A Dataset is an ordered list of named columns whose value slices all have
// the same length. Row i is the tuple made of the i-th value of every column,
// in column order. Each dataset kind (stock prices, weather observations) has
// a Schema naming its columns, their semantic types and the key column used
// for conflict resolution.
//
// Date values are calendar dates without a time of day. They are written to
// the database as ISO 8601 text (YYYY-MM-DD) and scanned back from text or
// time values.
package dataset
