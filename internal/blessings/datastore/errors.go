package datastore

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"gitlab.com/gitlab-org/blessings/internal/blessings/datastore/glsql"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// ViolationKind names the kind of integrity constraint that rejected a write.
type ViolationKind string

const (
	// KindForeignKey means a referenced row doesn't exist.
	KindForeignKey ViolationKind = "foreign_key"
	// KindUnique means the primary key or a unique index already holds the value.
	KindUnique ViolationKind = "unique"
)

// Postgres SQLSTATE codes, see https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	pgForeignKeyViolation = "23503"
	pgUniqueViolation     = "23505"
)

var (
	// ErrNestedTransaction is returned by WithTransaction when it is called
	// from within the body of another transaction.
	ErrNestedTransaction = errors.New("nested transactions are not supported")
	// ErrTransactionDone is returned by writes on a transaction that is
	// already committed or rolled back.
	ErrTransactionDone = glsql.ErrTransactionDone
)

// InvalidArgumentError tags the error as being caused by an invalid argument.
type InvalidArgumentError struct{ error }

func (err InvalidArgumentError) Unwrap() error { return err.error }

func newNameTooLongError(entity, name string) error {
	return InvalidArgumentError{fmt.Errorf("%s name %q is longer than %d characters", entity, name, maxNameLength)}
}

func newEmptyNameError(entity string) error {
	return InvalidArgumentError{fmt.Errorf("%s name must not be empty", entity)}
}

// NotFoundError is returned when the requested row doesn't exist.
type NotFoundError struct {
	Entity string
	ID     int64
}

func (err NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", err.Entity, err.ID)
}

// ConstraintViolationError is returned when the database rejects a write
// because of a foreign key or a uniqueness constraint. The enclosing
// transaction is always rolled back.
type ConstraintViolationError struct {
	Kind       ViolationKind
	Table      string
	Constraint string
	err        error
}

func (err ConstraintViolationError) Error() string {
	msg := fmt.Sprintf("%s constraint violation", strings.ReplaceAll(string(err.Kind), "_", " "))
	if err.Table != "" {
		msg += " on " + err.Table
	}
	return msg + ": " + err.err.Error()
}

func (err ConstraintViolationError) Unwrap() error { return err.err }

// StoreUnavailableError is returned when the database can't be reached.
type StoreUnavailableError struct{ err error }

func (err StoreUnavailableError) Error() string { return "store unavailable: " + err.err.Error() }

func (err StoreUnavailableError) Unwrap() error { return err.err }

// IsConstraintViolation reports whether err was caused by the given kind of
// constraint violation.
func IsConstraintViolation(err error, kind ViolationKind) bool {
	var cv ConstraintViolationError
	return errors.As(err, &cv) && cv.Kind == kind
}

// classifyError converts driver specific failures into the error kinds of
// this package. Errors it doesn't recognize are returned unchanged.
func classifyError(err error) error {
	if err == nil {
		return nil
	}

	var (
		cv          ConstraintViolationError
		unavailable StoreUnavailableError
		pqErr       *pq.Error
		pgErr       *pgconn.PgError
		sqliteErr   *sqlite.Error
		connectErr  *pgconn.ConnectError
		netErr      *net.OpError
	)

	switch {
	case errors.As(err, &cv), errors.As(err, &unavailable):
		return err
	case errors.As(err, &pqErr):
		if kind, ok := pgViolationKind(string(pqErr.Code)); ok {
			return ConstraintViolationError{Kind: kind, Table: pqErr.Table, Constraint: pqErr.Constraint, err: err}
		}
		if pqErr.Code.Class() == "08" {
			return StoreUnavailableError{err: err}
		}
	case errors.As(err, &pgErr):
		if kind, ok := pgViolationKind(pgErr.Code); ok {
			return ConstraintViolationError{Kind: kind, Table: pgErr.TableName, Constraint: pgErr.ConstraintName, err: err}
		}
		if strings.HasPrefix(pgErr.Code, "08") {
			return StoreUnavailableError{err: err}
		}
	case errors.As(err, &sqliteErr):
		return classifySQLiteError(sqliteErr, err)
	case errors.As(err, &connectErr),
		errors.As(err, &netErr),
		errors.Is(err, driver.ErrBadConn),
		errors.Is(err, sql.ErrConnDone),
		strings.HasSuffix(err.Error(), "sql: database is closed"):
		return StoreUnavailableError{err: err}
	}

	return err
}

func pgViolationKind(code string) (ViolationKind, bool) {
	switch code {
	case pgForeignKeyViolation:
		return KindForeignKey, true
	case pgUniqueViolation:
		return KindUnique, true
	default:
		return "", false
	}
}

// sqliteTable matches the column list SQLite appends to uniqueness failures,
// e.g. "UNIQUE constraint failed: product.id".
var sqliteTable = regexp.MustCompile(`constraint failed: (\w+)\.`)

func classifySQLiteError(sqliteErr *sqlite.Error, err error) error {
	code := sqliteErr.Code()
	msg := sqliteErr.Error()

	switch {
	case code == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY,
		code == sqlite3.SQLITE_CONSTRAINT && strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return ConstraintViolationError{Kind: KindForeignKey, err: err}
	case code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY,
		code == sqlite3.SQLITE_CONSTRAINT_UNIQUE,
		code == sqlite3.SQLITE_CONSTRAINT && strings.Contains(msg, "UNIQUE constraint failed"):
		cv := ConstraintViolationError{Kind: KindUnique, err: err}
		if m := sqliteTable.FindStringSubmatch(msg); m != nil {
			cv.Table = m[1]
		}
		return cv
	}

	switch code & 0xff {
	case sqlite3.SQLITE_CANTOPEN, sqlite3.SQLITE_BUSY, sqlite3.SQLITE_NOTADB, sqlite3.SQLITE_IOERR:
		return StoreUnavailableError{err: err}
	}

	return err
}
