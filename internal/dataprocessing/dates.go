package dataprocessing

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/xuri/excelize/v2"

	"github.com/applesandbeer/weatherisafog/internal/dataset"
	apperrors "github.com/applesandbeer/weatherisafog/internal/errors"
)

// serialPattern matches the plain decimal text a date serial is written as.
var serialPattern = regexp.MustCompile(`^\d+(\.\d+)?$`)

// dateLayouts are the textual date encodings accepted in a date column.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006",
	"2006/01/02",
	"02-Jan-2006",
	"Jan 2, 2006",
}

// NormalizeDates rewrites every value of the named column as a
// dataset.Date, discarding any time of day. If any value cannot be read as
// a date the dataset is left unchanged and a DATA_FORMAT error is returned.
func NormalizeDates(ds *dataset.Dataset, column string) error {
	values, ok := ds.Column(column)
	if !ok {
		return apperrors.NewSchemaMismatchError(fmt.Sprintf("date column %q not found", column)).
			WithContext("columns", ds.Columns())
	}

	normalized := make([]any, len(values))
	for i, v := range values {
		d, err := ToDate(v, ds.Source.Date1904)
		if err != nil {
			return apperrors.NewDataFormatError(fmt.Sprintf("column %q row %d", column, i+2), err).
				WithContext("column", column).
				WithContext("row", i+2).
				WithContext("value", v)
		}
		normalized[i] = d
	}

	return ds.ReplaceColumn(column, normalized)
}

// ToDate converts a single cell value to a calendar date. Numbers and
// numeric strings are read as Excel date serials.
func ToDate(v any, date1904 bool) (dataset.Date, error) {
	switch x := v.(type) {
	case dataset.Date:
		if !x.IsValid() {
			return dataset.Date{}, fmt.Errorf("invalid date %v", x.Date)
		}
		return x, nil
	case civil.Date:
		if !x.IsValid() {
			return dataset.Date{}, fmt.Errorf("invalid date %v", x)
		}
		return dataset.Date{Date: x}, nil
	case time.Time:
		if x.IsZero() {
			return dataset.Date{}, fmt.Errorf("zero time")
		}
		return dataset.DateOf(x), nil
	case float64:
		return serialToDate(x, date1904)
	case int64:
		return serialToDate(float64(x), date1904)
	case int:
		return serialToDate(float64(x), date1904)
	case string:
		return parseDateString(x, date1904)
	case nil:
		return dataset.Date{}, fmt.Errorf("empty value")
	default:
		return dataset.Date{}, fmt.Errorf("unsupported date value of type %T", v)
	}
}

func parseDateString(s string, date1904 bool) (dataset.Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return dataset.Date{}, fmt.Errorf("empty value")
	}
	if serialPattern.MatchString(s) {
		serial, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return dataset.Date{}, fmt.Errorf("cannot parse %q as a date serial: %w", s, err)
		}
		return serialToDate(serial, date1904)
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return dataset.DateOf(t), nil
		}
	}
	return dataset.Date{}, fmt.Errorf("cannot parse %q as a date", s)
}

// maxDateSerial is 9999-12-31, the last date Excel can represent.
const maxDateSerial = 2958465

// serialToDate converts an Excel serial day number. The integer part is the
// day; the fraction (time of day) is dropped.
func serialToDate(serial float64, date1904 bool) (dataset.Date, error) {
	if math.IsNaN(serial) || serial < 0 || (!date1904 && serial < 1) || serial > maxDateSerial {
		return dataset.Date{}, fmt.Errorf("date serial %v out of range", serial)
	}
	t, err := excelize.ExcelDateToTime(math.Floor(serial), date1904)
	if err != nil {
		return dataset.Date{}, err
	}
	return dataset.DateOf(t), nil
}
