package database

import (
	"fmt"
	"strings"
)

// Dialect identifies the SQL flavour of a connection.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
	DialectMySQL    Dialect = "mysql"
)

// Placeholder returns the bind parameter for the given 1-based position.
// PostgreSQL: $1, $2, etc.
// SQLite and MySQL: ?, ?, etc.
func (d Dialect) Placeholder(position int) string {
	if d == DialectPostgres {
		return fmt.Sprintf("$%d", position)
	}
	return "?"
}

// Rebind rewrites ? placeholders for the dialect. It does not look inside
// string literals; queries passed here are written by this program.
func (d Dialect) Rebind(query string) string {
	if d != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString(d.Placeholder(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
