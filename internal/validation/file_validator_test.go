package validation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/applesandbeer/weatherisafog/internal/errors"
	"github.com/applesandbeer/weatherisafog/internal/shared/testutil"
)

func TestValidateWorkbook(t *testing.T) {
	dir := t.TempDir()

	workbook := testutil.WriteWorkbook(t, "stock_data.xlsx", [][]any{{"Date"}})
	upper := filepath.Join(dir, "STOCK.XLSX")
	require.NoError(t, os.WriteFile(upper, []byte("x"), 0644))
	csvFile := filepath.Join(dir, "stock.csv")
	require.NoError(t, os.WriteFile(csvFile, []byte("Date\n"), 0644))
	legacy := filepath.Join(dir, "stock.xls")
	require.NoError(t, os.WriteFile(legacy, []byte("x"), 0644))
	unreadable := filepath.Join(dir, "locked.xlsx")
	require.NoError(t, os.WriteFile(unreadable, []byte("x"), 0o000))

	tests := []struct {
		name    string
		path    string
		wantErr apperrors.ErrorType
	}{
		{name: "workbook", path: workbook},
		{name: "extension is case-insensitive", path: upper},
		{name: "not opened", path: unreadable},
		{name: "missing", path: filepath.Join(dir, "missing.xlsx"), wantErr: apperrors.ErrTypeFileNotFound},
		{name: "directory", path: dir, wantErr: apperrors.ErrTypeParsing},
		{name: "csv", path: csvFile, wantErr: apperrors.ErrTypeParsing},
		{name: "legacy xls", path: legacy, wantErr: apperrors.ErrTypeParsing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, logs := testutil.NewTestLogger(t)
			err := NewFileValidator(logger).ValidateWorkbook(tt.path)

			if tt.wantErr == "" {
				assert.NoError(t, err)
				testutil.AssertNoErrors(t, logs)
				return
			}
			require.Error(t, err)
			assert.True(t, apperrors.IsType(err, tt.wantErr), "got %v", err)
			assert.NotZero(t, logs.Count())
		})
	}
}

func TestNewFileValidator_NilLogger(t *testing.T) {
	v := NewFileValidator(nil)
	require.NotNil(t, v)
	assert.Error(t, v.ValidateWorkbook(filepath.Join(t.TempDir(), "missing.xlsx")))
}
