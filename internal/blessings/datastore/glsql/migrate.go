package glsql

import (
	"database/sql"
	"time"

	migrate "github.com/rubenv/sql-migrate"
	"gitlab.com/gitlab-org/blessings/internal/blessings/datastore/migrations"
)

func migrationSource(dialect Dialect) *migrate.MemoryMigrationSource {
	return &migrate.MemoryMigrationSource{Migrations: migrations.All(string(dialect))}
}

// Migrate will apply all pending SQL migrations.
func Migrate(db *sql.DB, dialect Dialect) (int, error) {
	return migrate.Exec(db, string(dialect), migrationSource(dialect), migrate.Up)
}

// MigrateDownPlan does a dry run for rolling back at most max migrations.
func MigrateDownPlan(db *sql.DB, dialect Dialect, max int) ([]string, error) {
	planned, _, err := migrate.PlanMigration(db, string(dialect), migrationSource(dialect), migrate.Down, max)
	if err != nil {
		return nil, err
	}

	var result []string
	for _, m := range planned {
		result = append(result, m.Id)
	}

	return result, nil
}

// MigrateDown rolls back at most max migrations.
func MigrateDown(db *sql.DB, dialect Dialect, max int) (int, error) {
	return migrate.ExecMax(db, string(dialect), migrationSource(dialect), migrate.Down, max)
}

// MigrationStatusRow represents an entry in the schema migrations table.
// If the migration is in the database but is not listed, Unknown will be true.
type MigrationStatusRow struct {
	Migrated  bool
	Unknown   bool
	AppliedAt time.Time
}

// MigrateStatus returns the status of database migrations keyed by migration id.
func MigrateStatus(db *sql.DB, dialect Dialect) (map[string]*MigrationStatusRow, error) {
	migrations, err := migrationSource(dialect).FindMigrations()
	if err != nil {
		return nil, err
	}

	records, err := migrate.GetMigrationRecords(db, string(dialect))
	if err != nil {
		return nil, err
	}

	rows := make(map[string]*MigrationStatusRow)

	for _, m := range migrations {
		rows[m.Id] = &MigrationStatusRow{}
	}

	for _, r := range records {
		if rows[r.Id] == nil {
			rows[r.Id] = &MigrationStatusRow{Unknown: true}
		}

		rows[r.Id].Migrated = true
		rows[r.Id].AppliedAt = r.AppliedAt
	}

	return rows, nil
}
