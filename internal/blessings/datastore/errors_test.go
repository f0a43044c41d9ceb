package datastore

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

func TestClassifyError(t *testing.T) {
	pqForeignKey := &pq.Error{Code: "23503", Table: "producto_cliente_categoria_precio", Constraint: "producto_cliente_categoria_precio_product_id_fkey", Message: "insert violates foreign key"}
	pgxUnique := &pgconn.PgError{Code: "23505", TableName: "producto_cliente_categoria_precio", ConstraintName: "producto_cliente_categoria_precio_pkey", Message: "duplicate key"}
	netErr := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}

	for _, tc := range []struct {
		desc        string
		err         error
		violation   *ConstraintViolationError
		unavailable bool
	}{
		{
			desc: "lib/pq foreign key violation",
			err:  pqForeignKey,
			violation: &ConstraintViolationError{
				Kind:       KindForeignKey,
				Table:      "producto_cliente_categoria_precio",
				Constraint: "producto_cliente_categoria_precio_product_id_fkey",
				err:        pqForeignKey,
			},
		},
		{
			desc: "pgx unique violation wrapped by the caller",
			err:  fmt.Errorf("insert: %w", pgxUnique),
			violation: &ConstraintViolationError{
				Kind:       KindUnique,
				Table:      "producto_cliente_categoria_precio",
				Constraint: "producto_cliente_categoria_precio_pkey",
				err:        fmt.Errorf("insert: %w", pgxUnique),
			},
		},
		{desc: "lib/pq connection failure", err: &pq.Error{Code: "08006"}, unavailable: true},
		{desc: "pgx connection failure", err: &pgconn.PgError{Code: "08001"}, unavailable: true},
		{desc: "network error", err: netErr, unavailable: true},
		{desc: "bad connection", err: driver.ErrBadConn, unavailable: true},
		{desc: "connection done", err: sql.ErrConnDone, unavailable: true},
		{desc: "other postgres error", err: &pq.Error{Code: "42601"}},
		{desc: "context canceled", err: context.Canceled},
		{desc: "no rows", err: sql.ErrNoRows},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			classified := classifyError(tc.err)

			var cv ConstraintViolationError
			var unavailable StoreUnavailableError

			switch {
			case tc.violation != nil:
				require.True(t, errors.As(classified, &cv))
				require.Equal(t, *tc.violation, cv)
			case tc.unavailable:
				require.True(t, errors.As(classified, &unavailable))
				require.True(t, errors.Is(classified, tc.err), "the cause must stay reachable")
			default:
				require.Equal(t, tc.err, classified)
			}

			require.Equal(t, classified, classifyError(classified), "classification is idempotent")
		})
	}

	require.NoError(t, classifyError(nil))
}

func TestErrorMessages(t *testing.T) {
	cause := errors.New("boom")

	require.Equal(t,
		"foreign key constraint violation on product: boom",
		ConstraintViolationError{Kind: KindForeignKey, Table: "product", err: cause}.Error(),
	)
	require.Equal(t, "unique constraint violation: boom", ConstraintViolationError{Kind: KindUnique, err: cause}.Error())
	require.Equal(t, "store unavailable: boom", StoreUnavailableError{err: cause}.Error())
	require.Equal(t, "blessing 7 not found", NotFoundError{Entity: "blessing", ID: 7}.Error())
}
