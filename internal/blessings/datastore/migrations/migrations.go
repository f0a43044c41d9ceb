package migrations

import (
	migrate "github.com/rubenv/sql-migrate"
)

const migrationTableName = "schema_migrations"

// Dialect names as understood by github.com/rubenv/sql-migrate.
const (
	Postgres = "postgres"
	SQLite3  = "sqlite3"
)

// migration is a migrate.Migration whose Up statements may differ per dialect.
// Statements stored under the empty key are shared by all dialects.
type migration struct {
	id   string
	up   map[string][]string
	down []string
}

func (m *migration) forDialect(dialect string) *migrate.Migration {
	up, ok := m.up[dialect]
	if !ok {
		up = m.up[""]
	}

	return &migrate.Migration{Id: m.id, Up: up, Down: m.down}
}

var allMigrations []*migration

func init() {
	migrate.SetTable(migrationTableName)
}

// All returns all migrations defined in the package rendered for dialect.
func All(dialect string) []*migrate.Migration {
	result := make([]*migrate.Migration, 0, len(allMigrations))
	for _, m := range allMigrations {
		result = append(result, m.forDialect(dialect))
	}

	return result
}
