package datastore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gitlab.com/gitlab-org/blessings/internal/blessings/datastore/glsql"
)

// Blessing is a row of the blessings table.
type Blessing struct {
	ID      int64
	Message string
}

// BlessingStore reads blessings.
type BlessingStore struct {
	db      glsql.Querier
	dialect glsql.Dialect
}

// NewBlessingStore returns a new BlessingStore using the passed in database.
func NewBlessingStore(db glsql.Querier, dialect glsql.Dialect) BlessingStore {
	return BlessingStore{db: db, dialect: dialect}
}

// ListBlessings returns all blessings ordered by id.
func (s BlessingStore) ListBlessings(ctx context.Context) ([]Blessing, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, message
FROM blessings
ORDER BY id
`)
	if err != nil {
		return nil, fmt.Errorf("query: %w", classifyError(err))
	}
	defer rows.Close()

	blessings := []Blessing{}
	for rows.Next() {
		var b Blessing
		if err := rows.Scan(&b.ID, &b.Message); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}

		blessings = append(blessings, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", classifyError(err))
	}

	return blessings, nil
}

// GetBlessing returns the blessing with the given id or NotFoundError.
func (s BlessingStore) GetBlessing(ctx context.Context, id int64) (Blessing, error) {
	var b Blessing
	err := s.db.QueryRowContext(ctx, s.dialect.Rebind(`
SELECT id, message
FROM blessings
WHERE id = $1
`), id).Scan(&b.ID, &b.Message)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return Blessing{}, NotFoundError{Entity: "blessing", ID: id}
	case err != nil:
		return Blessing{}, fmt.Errorf("query: %w", classifyError(err))
	}

	return b, nil
}
