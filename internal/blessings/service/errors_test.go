package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	"gitlab.com/gitlab-org/blessings/internal/blessings/datastore"
)

func TestStatusFor(t *testing.T) {
	for _, tc := range []struct {
		desc   string
		err    error
		status int
		msg    string
	}{
		{
			desc:   "not found",
			err:    fmt.Errorf("get: %w", datastore.NotFoundError{Entity: "product", ID: 3}),
			status: http.StatusNotFound,
			msg:    datastore.NotFoundError{Entity: "product", ID: 3}.Error(),
		},
		{
			desc:   "duplicate price",
			err:    fmt.Errorf("insert: %w", datastore.ConstraintViolationError{Kind: datastore.KindUnique}),
			status: http.StatusConflict,
			msg:    "price already defined for this product and client category",
		},
		{
			desc:   "dangling reference",
			err:    datastore.ConstraintViolationError{Kind: datastore.KindForeignKey},
			status: http.StatusBadRequest,
			msg:    "referenced product or client category does not exist",
		},
		{
			desc:   "unavailable",
			err:    fmt.Errorf("begin: %w", datastore.StoreUnavailableError{}),
			status: http.StatusServiceUnavailable,
			msg:    "store unavailable",
		},
		{
			desc:   "deadline",
			err:    fmt.Errorf("query: %w", context.DeadlineExceeded),
			status: http.StatusGatewayTimeout,
			msg:    "request timed out",
		},
		{
			desc:   "nested transaction",
			err:    datastore.ErrNestedTransaction,
			status: http.StatusInternalServerError,
			msg:    "internal error",
		},
		{
			desc:   "unknown",
			err:    errors.New("something odd"),
			status: http.StatusInternalServerError,
			msg:    "internal error",
		},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			status, msg := statusFor(tc.err)
			require.Equal(t, tc.status, status)
			require.Equal(t, tc.msg, msg)
		})
	}
}
