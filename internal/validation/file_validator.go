package validation

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	apperrors "github.com/applesandbeer/weatherisafog/internal/errors"
)

// WorkbookExtensions lists the spreadsheet formats the reader can open.
var WorkbookExtensions = []string{".xlsx", ".xlsm", ".xltx", ".xltm"}

// FileValidator checks input files before they are parsed
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator creates a new file validator
func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{
		logger: logger,
	}
}

// ValidateWorkbook checks that path is a regular file with a supported
// workbook extension. Opening it is left to the reader. A missing file is a
// FILE_NOT_FOUND error, anything else a PARSING error.
func (v *FileValidator) ValidateWorkbook(path string) error {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		v.logger.Error("Workbook does not exist",
			slog.String("file", path))
		return apperrors.NewFileNotFoundError(path, err)
	}
	if err != nil {
		v.logger.Error("Failed to stat workbook",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return apperrors.NewParsingError("failed to stat workbook", err).WithContext("path", path)
	}
	if info.IsDir() {
		v.logger.Error("Path is a directory, not a workbook",
			slog.String("path", path))
		return apperrors.NewParsingError(fmt.Sprintf("%s is a directory, not a workbook", path), nil).
			WithContext("path", path)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if !isWorkbookExtension(ext) {
		v.logger.Error("Unsupported workbook format",
			slog.String("file", path),
			slog.String("extension", ext))
		return apperrors.NewParsingError(fmt.Sprintf("unsupported workbook format %q", ext), nil).
			WithContext("path", path).
			WithContext("supported", WorkbookExtensions)
	}

	v.logger.Debug("Workbook validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return nil
}

func isWorkbookExtension(ext string) bool {
	for _, e := range WorkbookExtensions {
		if ext == e {
			return true
		}
	}
	return false
}
