package glsql

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gitlab.com/gitlab-org/blessings/internal/blessings/config"
)

// EnvTestDriver selects the database used by GetDB. The embedded sqlite
// engine is used when it is empty.
const EnvTestDriver = "BLESSINGS_TEST_DB_DRIVER"

var (
	// testDB is a shared Postgres connection pool that needs to be used only for testing.
	// Initialization of it happens on the first call to GetDB and it remains open until call to Clean.
	testDB         DB
	testDBInitOnce sync.Once
)

// DB is a helper struct that should be used only for testing purposes.
type DB struct {
	*sql.DB
	Dialect Dialect
}

// Truncate removes all data from the list of tables and restarts identities for them.
// Tables referencing each other must be passed together.
func (db DB) Truncate(t testing.TB, tables ...string) {
	t.Helper()

	quoted := make([]string, len(tables))
	for i, table := range tables {
		quoted[i] = strconv.Quote(table)
	}

	if db.Dialect != DialectSQLite {
		_, err := db.DB.Exec(fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY", strings.Join(quoted, ", ")))
		require.NoError(t, err, "database truncation failed: %s", tables)
		return
	}

	for _, table := range quoted {
		_, err := db.DB.Exec("DELETE FROM " + table)
		require.NoError(t, err, "database truncation failed: %s", table)
	}

	_, err := db.DB.Exec("DELETE FROM sqlite_sequence WHERE name IN (" + strings.Join(quotedLiterals(tables), ", ") + ")")
	require.NoError(t, err, "identity reset failed: %s", tables)
}

func quotedLiterals(values []string) []string {
	result := make([]string, len(values))
	for i, v := range values {
		result[i] = "'" + strings.ReplaceAll(v, "'", "''") + "'"
	}
	return result
}

// RequireRowsInTable fails the test if tname doesn't contain exactly n rows.
func (db DB) RequireRowsInTable(t *testing.T, tname string, n int) {
	t.Helper()

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM "+tname).Scan(&count))
	require.Equal(t, n, count, "unexpected amount of rows in table: %d instead of %d", count, n)
}

// Close releases connection pool.
func (db DB) Close() error {
	if err := db.DB.Close(); err != nil {
		return errors.New("failed to release connection pool: " + err.Error())
	}
	return nil
}

// GetDB returns a wrapper around a migrated database connection pool.
// Must be used only for testing.
// By default every call creates a new sqlite database inside t.TempDir().
// If BLESSINGS_TEST_DB_DRIVER is "postgres" or "pgx" the 'blessings_test'
// database is re-created once per package and shared between tests, which
// then have to Truncate the tables they use. It uses env vars:
//
//	PGHOST - required, URL/socket/dir
//	PGPORT - required, binding port
//	PGUSER - optional, user - `$ whoami` would be used if not provided
func GetDB(t testing.TB) DB {
	t.Helper()

	driver := os.Getenv(EnvTestDriver)
	if driver == "" || driver == config.DriverSQLite {
		return newSQLiteTestDB(t)
	}

	testDBInitOnce.Do(func() {
		sqlDB := initBlessingsTestDB(t, driver)

		_, mErr := Migrate(sqlDB, DialectPostgres)
		require.NoError(t, mErr, "failed to run database migration")
		testDB = DB{DB: sqlDB, Dialect: DialectPostgres}
	})
	return testDB
}

func newSQLiteTestDB(t testing.TB) DB {
	t.Helper()

	sqlDB, err := OpenDB(config.DB{
		Driver: config.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "blessings.sqlite"),
	})
	require.NoError(t, err, "failed to open sqlite database")

	db := DB{DB: sqlDB, Dialect: DialectSQLite}
	t.Cleanup(func() { require.NoError(t, db.Close()) })

	_, err = Migrate(sqlDB, DialectSQLite)
	require.NoError(t, err, "failed to run database migration")

	return db
}

// TestDBConfig returns the connection settings of the Postgres test
// instance, taken from PGHOST, PGPORT and PGUSER.
func TestDBConfig(t testing.TB, driver string) config.DB {
	t.Helper()

	host, hostFound := os.LookupEnv("PGHOST")
	require.True(t, hostFound, "PGHOST env var expected to be provided to connect to Postgres database")

	port, portFound := os.LookupEnv("PGPORT")
	require.True(t, portFound, "PGPORT env var expected to be provided to connect to Postgres database")
	portNumber, pErr := strconv.Atoi(port)
	require.NoError(t, pErr, "PGPORT must be a port number of the Postgres database listens for incoming connections")

	return config.DB{
		Driver:  driver,
		Host:    host,
		Port:    portNumber,
		DBName:  "postgres",
		SSLMode: "disable",
		User:    os.Getenv("PGUSER"),
	}
}

func initBlessingsTestDB(t testing.TB, driver string) *sql.DB {
	t.Helper()

	// connect to 'postgres' database first to re-create testing database from scratch
	dbCfg := TestDBConfig(t, driver)

	postgresDB, oErr := OpenDB(dbCfg)
	require.NoError(t, oErr, "failed to connect to 'postgres' database")
	defer func() { require.NoError(t, postgresDB.Close()) }()

	_, dErr := postgresDB.Exec("DROP DATABASE IF EXISTS blessings_test")
	require.NoError(t, dErr, "failed to drop 'blessings_test' database")

	_, cErr := postgresDB.Exec("CREATE DATABASE blessings_test WITH ENCODING 'UTF8'")
	require.NoError(t, cErr, "failed to create 'blessings_test' database")
	require.NoError(t, postgresDB.Close(), "error on closing connection to 'postgres' database")

	// connect to the testing database
	dbCfg.DBName = "blessings_test"
	blessingsTestDB, err := OpenDB(dbCfg)
	require.NoError(t, err, "failed to connect to 'blessings_test' database")
	return blessingsTestDB
}

// Clean releases the shared Postgres connection pool if any.
// It needs to be called only once after all tests for package are done.
// The best place to use it is TestMain(*testing.M) {...} after m.Run().
func Clean() error {
	if testDB.DB != nil {
		return testDB.Close()
	}
	return nil
}
