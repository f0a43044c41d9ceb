// Package glsql is a helper package to work with plain SQL queries against
// any of the supported database drivers.
package glsql

import (
	"context"
	"database/sql"
	"errors"

	// Blank imports register the supported drivers with database/sql
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"gitlab.com/gitlab-org/blessings/internal/blessings/config"
	_ "modernc.org/sqlite"
)

// OpenDB returns connection pool to the database.
func OpenDB(conf config.DB) (*sql.DB, error) {
	driver := conf.Driver
	if driver == "" {
		driver = config.DriverPostgres
	}

	db, err := sql.Open(driver, conf.DSN())
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// Querier is an abstraction on *sql.DB and *sql.Tx that allows to use their methods without awareness about actual type.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// TxState is the lifecycle stage of a TxQuery.
type TxState int

const (
	// TxActive means statements may still be issued.
	TxActive TxState = iota
	// TxCommitted means Done committed the transaction.
	TxCommitted
	// TxRolledBack means Done rolled the transaction back.
	TxRolledBack
)

func (s TxState) String() string {
	switch s {
	case TxActive:
		return "active"
	case TxCommitted:
		return "committed"
	case TxRolledBack:
		return "rolled_back"
	default:
		return "unknown"
	}
}

// ErrTransactionDone is returned by Err once Done completed a transaction
// that had no failure of its own.
var ErrTransactionDone = errors.New("transaction has already been committed or rolled back")

// TxQuery runs operations inside transaction and commits|rollbacks on Done.
type TxQuery interface {
	// Exec calls op function with provided ctx.
	// Returns true on success and false in case operation failed or wasn't called because of previously failed op.
	Exec(ctx context.Context, op func(context.Context, *sql.Tx) error) bool
	// Done must be called after work is finished to complete transaction.
	// errPtr must not be nil.
	// COMMIT will be executed if no errors happen during TxQuery usage and *errPtr is nil.
	// Otherwise it will be ROLLBACK operation.
	Done(errPtr *error)
	// Err returns the first failure observed by the TxQuery, including a failure to begin.
	Err() error
	// State reports whether the transaction is still active or how it ended.
	State() TxState
}

// NewTxQuery creates entity that allows to run queries in scope of a transaction.
// It always returns non-nil value.
func NewTxQuery(ctx context.Context, logger logrus.FieldLogger, db *sql.DB) TxQuery {
	tx, err := db.BeginTx(ctx, nil)
	return &txQuery{
		tx:     tx,
		err:    err,
		logger: logger,
	}
}

type txQuery struct {
	tx     *sql.Tx
	err    error
	state  TxState
	logger logrus.FieldLogger
}

// Exec calls op function with provided ctx.
// Returns true on success and false in case operation failed or wasn't called because of previously failed op.
func (txq *txQuery) Exec(ctx context.Context, op func(context.Context, *sql.Tx) error) bool {
	if txq.err != nil || txq.state != TxActive {
		return false
	}

	txq.err = op(ctx, txq.tx)
	return txq.err == nil
}

// Done must be called after work is finished to complete transaction.
// errPtr must not be nil.
// COMMIT will be executed if no errors happen during txQuery usage and *errPtr is nil.
// Otherwise it will be ROLLBACK operation.
// Calls after the first one only report the outcome.
func (txq *txQuery) Done(errPtr *error) {
	if txq.state != TxActive {
		if *errPtr == nil {
			*errPtr = txq.err
		}
		return
	}

	switch {
	case txq.tx == nil:
		// BeginTx failed, there is nothing to finish
		txq.state = TxRolledBack
	case txq.err == nil && *errPtr == nil:
		txq.err = txq.tx.Commit()
		if txq.err != nil {
			txq.log(txq.err, "commit failed")
			txq.state = TxRolledBack
		} else {
			txq.state = TxCommitted
		}
	default:
		// Don't overwrite txq.err because it's already non-nil or the caller owns the error
		if err := txq.tx.Rollback(); err != nil {
			txq.log(err, "rollback failed")
		}
		txq.state = TxRolledBack
	}

	if *errPtr == nil {
		*errPtr = txq.err
	}
}

func (txq *txQuery) Err() error {
	if txq.err == nil && txq.state != TxActive {
		return ErrTransactionDone
	}

	return txq.err
}

func (txq *txQuery) State() TxState { return txq.state }

func (txq *txQuery) log(err error, msg string) {
	if txq.logger != nil {
		txq.logger.WithError(err).Error(msg)
	}
}

// DestProvider returns list of pointers that will be used to scan values into.
type DestProvider interface {
	// To returns list of pointers.
	// It is not an idempotent operation and each call will return a new list.
	To() []interface{}
}

// ScanAll reads all data from 'rows' into holders provided by 'in'.
// It will also 'Close' source after completion.
func ScanAll(rows *sql.Rows, in DestProvider) (err error) {
	defer func() {
		if cErr := rows.Close(); cErr != nil && err == nil {
			err = cErr
		}
	}()

	for rows.Next() {
		if err = rows.Scan(in.To()...); err != nil {
			return err
		}
	}
	err = rows.Err()
	return err
}

// Int64Provider allows to use it with ScanAll function to read all rows into it and return result as a slice.
type Int64Provider []*int64

// Values returns list of values read from *sql.Rows
func (p *Int64Provider) Values() []int64 {
	if len(*p) == 0 {
		return nil
	}

	r := make([]int64, len(*p))
	for i, v := range *p {
		r[i] = *v
	}
	return r
}

// To returns a list of pointers that will be used as a destination for scan operation.
func (p *Int64Provider) To() []interface{} {
	var d int64
	*p = append(*p, &d)
	return []interface{}{&d}
}
