package store

import (
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// BuildUpsert returns an INSERT ... ON CONFLICT statement for table with one
// '?' placeholder per column. Every non-key column is overwritten from the
// incoming row on conflict; with only the key column the insert is skipped.
// Identifiers are double-quoted so names keep their case and cannot inject SQL.
func BuildUpsert(table string, columns []string, key string) (string, error) {
	if table == "" {
		return "", fmt.Errorf("table name is empty")
	}
	if len(columns) == 0 {
		return "", fmt.Errorf("no columns to insert into %s", table)
	}

	quoted := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	var updates []string
	hasKey := false
	for i, c := range columns {
		quoted[i] = pq.QuoteIdentifier(c)
		placeholders[i] = "?"
		if c == key {
			hasKey = true
			continue
		}
		updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", quoted[i], quoted[i]))
	}
	if !hasKey {
		return "", fmt.Errorf("conflict column %q is not among the columns", key)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) ",
		pq.QuoteIdentifier(table),
		strings.Join(quoted, ", "),
		strings.Join(placeholders, ", "),
		pq.QuoteIdentifier(key))
	if len(updates) == 0 {
		b.WriteString("DO NOTHING")
	} else {
		b.WriteString("DO UPDATE SET ")
		b.WriteString(strings.Join(updates, ", "))
	}
	return b.String(), nil
}

// selectColumnsQuery returns a query that yields the table's columns and no rows.
func selectColumnsQuery(table string) string {
	return "SELECT * FROM " + pq.QuoteIdentifier(table) + " LIMIT 0"
}
