package dataprocessing

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/applesandbeer/weatherisafog/internal/dataset"
	apperrors "github.com/applesandbeer/weatherisafog/internal/errors"
)

// Conform checks that the dataset has exactly the schema's columns and
// coerces float, integer and text columns to their Go types in place. Date
// columns are left for NormalizeDates. Empty cells stay nil. Nothing is
// modified when any value fails to coerce.
func Conform(ds *dataset.Dataset, schema dataset.Schema) error {
	missing, unexpected := schema.Diff(ds.Columns())
	if len(missing) > 0 || len(unexpected) > 0 {
		return apperrors.NewSchemaMismatchError(
			fmt.Sprintf("%s sheet columns do not match schema: missing %v, unexpected %v",
				schema.Name, missing, unexpected)).
			WithContext("missing", missing).
			WithContext("unexpected", unexpected)
	}

	coerced := make(map[string][]any, len(schema.Columns))
	for _, spec := range schema.Columns {
		if spec.Type == dataset.TypeDate {
			continue
		}
		values, _ := ds.Column(spec.Name)
		out := make([]any, len(values))
		for i, v := range values {
			c, err := coerceValue(v, spec.Type)
			if err != nil {
				return apperrors.NewDataFormatError(fmt.Sprintf("column %q row %d", spec.Name, i+2), err).
					WithContext("column", spec.Name).
					WithContext("row", i+2).
					WithContext("value", v)
			}
			out[i] = c
		}
		coerced[spec.Name] = out
	}

	for name, values := range coerced {
		if err := ds.ReplaceColumn(name, values); err != nil {
			return err
		}
	}
	return nil
}

func coerceValue(v any, t dataset.ColumnType) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch t {
	case dataset.TypeFloat:
		return toFloat(v)
	case dataset.TypeInteger:
		return toInteger(v)
	case dataset.TypeText:
		return strings.TrimSpace(fmt.Sprint(v)), nil
	default:
		return nil, fmt.Errorf("unsupported column type %q", t)
	}
}

func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case int64:
		return float64(x), nil
	case int:
		return float64(x), nil
	case string:
		f, err := strconv.ParseFloat(cleanNumber(x), 64)
		if err != nil {
			return 0, fmt.Errorf("cannot parse %q as a number", x)
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, fmt.Errorf("%q is not a finite number", x)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("unsupported numeric value of type %T", v)
	}
}

func toInteger(v any) (int64, error) {
	switch x := v.(type) {
	case int64:
		return x, nil
	case int:
		return int64(x), nil
	case float64:
		return floatToInteger(x)
	case string:
		s := cleanNumber(x)
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("cannot parse %q as an integer", x)
		}
		return floatToInteger(f)
	default:
		return 0, fmt.Errorf("unsupported integer value of type %T", v)
	}
}

func floatToInteger(f float64) (int64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, fmt.Errorf("%v is not a whole number", f)
	}
	if f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, fmt.Errorf("%v overflows int64", f)
	}
	return int64(f), nil
}

// cleanNumber strips whitespace and thousands separators.
func cleanNumber(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), ",", "")
}
