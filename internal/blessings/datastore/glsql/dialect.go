package glsql

import (
	"regexp"

	"gitlab.com/gitlab-org/blessings/internal/blessings/config"
	"gitlab.com/gitlab-org/blessings/internal/blessings/datastore/migrations"
)

// Dialect identifies the SQL flavour spoken by a driver. Its value is the
// dialect name used by github.com/rubenv/sql-migrate.
type Dialect string

const (
	// DialectPostgres is used by both lib/pq and pgx.
	DialectPostgres Dialect = migrations.Postgres
	// DialectSQLite is used by modernc.org/sqlite.
	DialectSQLite Dialect = migrations.SQLite3
)

// DialectFor returns the dialect of a config.DB driver name.
func DialectFor(driver string) Dialect {
	if driver == config.DriverSQLite {
		return DialectSQLite
	}

	return DialectPostgres
}

var positionalParam = regexp.MustCompile(`\$\d+`)

// Rebind converts a query written with $N placeholders into the form
// expected by the dialect. SQLite receives anonymous '?' placeholders, so
// every $N must appear once and in ascending order.
func (d Dialect) Rebind(query string) string {
	if d != DialectSQLite {
		return query
	}

	return positionalParam.ReplaceAllString(query, "?")
}
