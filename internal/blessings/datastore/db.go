package datastore

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gitlab.com/gitlab-org/blessings/internal/blessings/datastore/glsql"
)

// CheckServerVersion checks that the database server is recent enough for
// the queries of this package. Postgres must be 9.6 or later and SQLite
// must support RETURNING, which was added in 3.35.
func CheckServerVersion(ctx context.Context, db *sql.DB, dialect glsql.Dialect) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if dialect == glsql.DialectSQLite {
		var serverVersion string
		if err := db.QueryRowContext(ctx, "SELECT sqlite_version()").Scan(&serverVersion); err != nil {
			return fmt.Errorf("get sqlite version: %w", classifyError(err))
		}

		if !sqliteVersionAtLeast(serverVersion, 3, 35) {
			return fmt.Errorf("sqlite version too old: %s", serverVersion)
		}

		return nil
	}

	var serverVersion int
	if err := db.QueryRowContext(ctx, "SHOW server_version_num").Scan(&serverVersion); err != nil {
		return fmt.Errorf("get postgres server version: %w", classifyError(err))
	}

	const minimumServerVersion = 90600 // Postgres 9.6
	if serverVersion < minimumServerVersion {
		return fmt.Errorf("postgres server version too old: %d", serverVersion)
	}

	return nil
}

func sqliteVersionAtLeast(version string, major, minor int) bool {
	parts := strings.SplitN(version, ".", 3)
	if len(parts) < 2 {
		return false
	}

	gotMajor, err := strconv.Atoi(parts[0])
	if err != nil {
		return false
	}

	gotMinor, err := strconv.Atoi(parts[1])
	if err != nil {
		return false
	}

	return gotMajor > major || (gotMajor == major && gotMinor >= minor)
}
