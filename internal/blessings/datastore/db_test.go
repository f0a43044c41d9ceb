package datastore

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gitlab.com/gitlab-org/blessings/internal/blessings/datastore/glsql"
	"gitlab.com/gitlab-org/blessings/internal/testhelper"
)

func TestCheckServerVersion(t *testing.T) {
	db := glsql.GetDB(t)

	ctx, cancel := testhelper.Context()
	defer cancel()

	require.NoError(t, CheckServerVersion(ctx, db.DB, db.Dialect))
}

func TestSQLiteVersionAtLeast(t *testing.T) {
	for _, tc := range []struct {
		version  string
		expected bool
	}{
		{version: "3.46.0", expected: true},
		{version: "3.35.0", expected: true},
		{version: "3.34.1", expected: false},
		{version: "4.0", expected: true},
		{version: "2.99.99", expected: false},
		{version: "garbage", expected: false},
		{version: "3.x", expected: false},
	} {
		t.Run(tc.version, func(t *testing.T) {
			require.Equal(t, tc.expected, sqliteVersionAtLeast(tc.version, 3, 35))
		})
	}
}
