package store

import (
	"errors"

	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	apperrors "github.com/applesandbeer/weatherisafog/internal/errors"
)

// classifyError maps a driver error to DB_CONSTRAINT when the database
// rejected the data itself and to DATABASE otherwise.
func classifyError(message string, err error) *apperrors.AppError {
	if isConstraintError(err) {
		return apperrors.NewDBConstraintError(message, err)
	}
	return apperrors.NewDatabaseError(message, err)
}

func isConstraintError(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// 22: data exception, 23: integrity constraint violation
		switch pqErr.Code.Class() {
		case "22", "23":
			return true
		}
		return false
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		// Extended result codes carry the primary code in the low byte.
		switch liteErr.Code() & 0xff {
		case sqlite3.SQLITE_CONSTRAINT, sqlite3.SQLITE_MISMATCH:
			return true
		}
	}
	return false
}
