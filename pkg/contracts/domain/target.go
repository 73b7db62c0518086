package domain

import (
	"fmt"

	"github.com/applesandbeer/weatherisafog/internal/dataset"
)

// DatasetKind identifies the kind of spreadsheet being loaded.
type DatasetKind string

const (
	DatasetKindStock   DatasetKind = "stock"
	DatasetKindWeather DatasetKind = "weather"
)

// TargetTable describes where a dataset kind is stored and which columns
// it must have.
type TargetTable struct {
	Kind   DatasetKind
	Table  string
	Schema dataset.Schema
}

// ConflictColumn returns the column rows are matched on.
func (t TargetTable) ConflictColumn() string {
	return t.Schema.Key
}

var (
	// StockTarget stores daily stock prices.
	StockTarget = TargetTable{
		Kind:   DatasetKindStock,
		Table:  "stock_prices",
		Schema: dataset.StockSchema,
	}

	// WeatherTarget stores daily weather observations.
	WeatherTarget = TargetTable{
		Kind:   DatasetKindWeather,
		Table:  "weather_data",
		Schema: dataset.WeatherSchema,
	}
)

// Targets returns the targets in load order.
func Targets() []TargetTable {
	return []TargetTable{StockTarget, WeatherTarget}
}

// TargetFor returns the target of kind.
func TargetFor(kind DatasetKind) (TargetTable, error) {
	for _, t := range Targets() {
		if t.Kind == kind {
			return t, nil
		}
	}
	return TargetTable{}, fmt.Errorf("unknown dataset kind %q", kind)
}
