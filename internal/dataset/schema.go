package dataset

import (
	"sort"
)

// ColumnType is the semantic type of a column.
type ColumnType string

const (
	TypeDate    ColumnType = "date"
	TypeFloat   ColumnType = "float"
	TypeInteger ColumnType = "integer"
	TypeText    ColumnType = "text"
)

// ColumnSpec declares one column of a schema.
type ColumnSpec struct {
	Name string
	Type ColumnType
}

// Schema is the explicit column layout of a dataset kind.
type Schema struct {
	Name    string
	Key     string
	Columns []ColumnSpec
}

// StockSchema describes daily stock price sheets.
var StockSchema = Schema{
	Name: "stock",
	Key:  "Date",
	Columns: []ColumnSpec{
		{Name: "Date", Type: TypeDate},
		{Name: "Open", Type: TypeFloat},
		{Name: "High", Type: TypeFloat},
		{Name: "Low", Type: TypeFloat},
		{Name: "Close", Type: TypeFloat},
		{Name: "Volume", Type: TypeInteger},
	},
}

// WeatherSchema describes daily weather observation sheets.
var WeatherSchema = Schema{
	Name: "weather",
	Key:  "Date",
	Columns: []ColumnSpec{
		{Name: "Date", Type: TypeDate},
		{Name: "Temperature", Type: TypeFloat},
		{Name: "Humidity", Type: TypeFloat},
		{Name: "Precipitation", Type: TypeFloat},
	},
}

// Names returns the declared column names in order.
func (s Schema) Names() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// Lookup returns the spec of the named column.
func (s Schema) Lookup(name string) (ColumnSpec, bool) {
	for _, c := range s.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnSpec{}, false
}

// Diff compares a set of column names against the schema and returns the
// declared columns that are absent and the given columns that are not
// declared, both sorted.
func (s Schema) Diff(columns []string) (missing, unexpected []string) {
	return DiffColumns(s.Names(), columns)
}

// DiffColumns returns the names in want that are absent from got and the
// names in got that are absent from want, both sorted.
func DiffColumns(want, got []string) (missing, unexpected []string) {
	gotSet := make(map[string]struct{}, len(got))
	for _, name := range got {
		gotSet[name] = struct{}{}
	}
	wantSet := make(map[string]struct{}, len(want))
	for _, name := range want {
		wantSet[name] = struct{}{}
		if _, ok := gotSet[name]; !ok {
			missing = append(missing, name)
		}
	}
	for _, name := range got {
		if _, ok := wantSet[name]; !ok {
			unexpected = append(unexpected, name)
		}
	}
	sort.Strings(missing)
	sort.Strings(unexpected)
	return missing, unexpected
}
