// Package store writes datasets into relational tables.
//
// UpsertWriter opens one connection per call (postgres through lib/pq or a
// sqlite file through modernc.org/sqlite), checks that the target table has
// exactly the dataset's columns, then runs one prepared
// INSERT ... ON CONFLICT ("Date") DO UPDATE statement per row inside a
// single transaction. Any failing row rolls the whole batch back.
//
// Errors are *errors.AppError values: DB_CONNECTION when the database cannot
// be reached, SCHEMA_MISMATCH when the columns differ, DB_CONSTRAINT when
// the database rejects a value and DATABASE for everything else.
package store
