package dataset

import (
	"fmt"
	"strings"
)

// Column is a named, ordered sequence of cell values.
type Column struct {
	Name   string
	Values []any
}

// Source describes where a dataset was loaded from.
type Source struct {
	Path  string
	Sheet string
	// Date1904 is set when the workbook counts date serials from 1904-01-01.
	Date1904 bool
}

// Dataset is an ordered set of equal-length named columns.
type Dataset struct {
	Source  Source
	columns []Column
	index   map[string]int
}

// New builds a dataset from the given column names and rows. Every row must
// have exactly len(names) values.
func New(names []string, rows [][]any) (*Dataset, error) {
	ds := &Dataset{index: make(map[string]int, len(names))}
	for _, name := range names {
		if err := ds.addColumn(Column{Name: name, Values: make([]any, 0, len(rows))}); err != nil {
			return nil, err
		}
	}

	for i, row := range rows {
		if len(row) != len(names) {
			return nil, fmt.Errorf("row %d has %d values, expected %d", i, len(row), len(names))
		}
		for j, v := range row {
			ds.columns[j].Values = append(ds.columns[j].Values, v)
		}
	}
	return ds, nil
}

func (d *Dataset) addColumn(col Column) error {
	name := strings.TrimSpace(col.Name)
	if name == "" {
		return fmt.Errorf("column %d has an empty name", len(d.columns))
	}
	if _, exists := d.index[name]; exists {
		return fmt.Errorf("duplicate column name %q", name)
	}
	col.Name = name
	d.index[name] = len(d.columns)
	d.columns = append(d.columns, col)
	return nil
}

// Columns returns the column names in order.
func (d *Dataset) Columns() []string {
	names := make([]string, len(d.columns))
	for i, c := range d.columns {
		names[i] = c.Name
	}
	return names
}

// NumColumns returns the number of columns.
func (d *Dataset) NumColumns() int {
	return len(d.columns)
}

// NumRows returns the number of rows.
func (d *Dataset) NumRows() int {
	if len(d.columns) == 0 {
		return 0
	}
	return len(d.columns[0].Values)
}

// HasColumn reports whether a column with the given name exists.
func (d *Dataset) HasColumn(name string) bool {
	_, ok := d.index[name]
	return ok
}

// Column returns the values of the named column. The returned slice aliases
// the dataset's storage.
func (d *Dataset) Column(name string) ([]any, bool) {
	i, ok := d.index[name]
	if !ok {
		return nil, false
	}
	return d.columns[i].Values, true
}

// ReplaceColumn swaps the values of the named column. The new slice must
// have NumRows elements.
func (d *Dataset) ReplaceColumn(name string, values []any) error {
	i, ok := d.index[name]
	if !ok {
		return fmt.Errorf("column %q not found", name)
	}
	if len(values) != d.NumRows() {
		return fmt.Errorf("column %q: got %d values, expected %d", name, len(values), d.NumRows())
	}
	d.columns[i].Values = values
	return nil
}

// Row returns the i-th row as a new slice, in column order.
func (d *Dataset) Row(i int) []any {
	row := make([]any, len(d.columns))
	for j, c := range d.columns {
		row[j] = c.Values[i]
	}
	return row
}

// Rows returns every row in order.
func (d *Dataset) Rows() [][]any {
	rows := make([][]any, d.NumRows())
	for i := range rows {
		rows[i] = d.Row(i)
	}
	return rows
}

// Validate checks the structural invariants: unique non-empty names and
// equal column lengths.
func (d *Dataset) Validate() error {
	seen := make(map[string]struct{}, len(d.columns))
	n := d.NumRows()
	for _, c := range d.columns {
		if c.Name == "" {
			return fmt.Errorf("empty column name")
		}
		if _, dup := seen[c.Name]; dup {
			return fmt.Errorf("duplicate column name %q", c.Name)
		}
		seen[c.Name] = struct{}{}
		if len(c.Values) != n {
			return fmt.Errorf("column %q has %d values, expected %d", c.Name, len(c.Values), n)
		}
	}
	return nil
}
