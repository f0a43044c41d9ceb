package datastore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"gitlab.com/gitlab-org/blessings/internal/blessings/datastore/glsql"
)

const maxNameLength = 40

// Product is a row of the product table.
type Product struct {
	ID   int64
	Name string
}

// ClientCategory is a row of the client_category table.
type ClientCategory struct {
	ID   int64
	Name string
}

// PriceLink is the price of a product for a client category. The pair of
// ProductID and ClientCategoryID is unique.
type PriceLink struct {
	ProductID        int64
	ClientCategoryID int64
	Price            int64
}

// CatalogTx gives access to the catalog tables in scope of a transaction
// started by CatalogStore.WithTransaction. Once a statement fails every
// further call returns that failure without touching the database.
type CatalogTx interface {
	// InsertProduct inserts a product and returns its generated id.
	InsertProduct(ctx context.Context, name string) (int64, error)
	// InsertClientCategory inserts a client category and returns its generated id.
	InsertClientCategory(ctx context.Context, name string) (int64, error)
	// InsertPriceLink links a product to a client category with a price.
	// ConstraintViolationError is returned if either id doesn't exist or the
	// pair is already linked.
	InsertPriceLink(ctx context.Context, link PriceLink) error
	// PriceLinksByProduct returns the links of a product as seen by this transaction.
	PriceLinksByProduct(ctx context.Context, productID int64) ([]PriceLink, error)
}

type transactionKey struct{}

func inTransaction(ctx context.Context) bool {
	return ctx.Value(transactionKey{}) != nil
}

// CatalogStore manages products, client categories and the prices linking them.
type CatalogStore struct {
	db      *sql.DB
	dialect glsql.Dialect
	logger  logrus.FieldLogger

	transactionsTotal *prometheus.CounterVec
	violationsTotal   *prometheus.CounterVec
}

// NewCatalogStore returns a new CatalogStore using the passed in database.
func NewCatalogStore(logger logrus.FieldLogger, db *sql.DB, dialect glsql.Dialect) *CatalogStore {
	return &CatalogStore{
		db:      db,
		dialect: dialect,
		logger:  logger,
		transactionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "blessings",
				Subsystem: "datastore",
				Name:      "transactions_total",
				Help:      "Number of finished catalog transactions by outcome.",
			},
			[]string{"outcome"},
		),
		violationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "blessings",
				Subsystem: "datastore",
				Name:      "constraint_violations_total",
				Help:      "Number of writes rejected by an integrity constraint.",
			},
			[]string{"kind"},
		),
	}
}

// Describe implements prometheus.Collector.
func (s *CatalogStore) Describe(descs chan<- *prometheus.Desc) {
	prometheus.DescribeByCollect(s, descs)
}

// Collect implements prometheus.Collector.
func (s *CatalogStore) Collect(metrics chan<- prometheus.Metric) {
	s.transactionsTotal.Collect(metrics)
	s.violationsTotal.Collect(metrics)
}

// WithTransaction runs body in a transaction. The transaction is committed
// if body returns nil and rolled back otherwise, in which case the error of
// body is returned as is. A panicking body is rolled back before the panic
// is propagated. Calling WithTransaction from within body returns
// ErrNestedTransaction.
func (s *CatalogStore) WithTransaction(ctx context.Context, body func(context.Context, CatalogTx) error) (err error) {
	if inTransaction(ctx) {
		return ErrNestedTransaction
	}

	txq := glsql.NewTxQuery(ctx, s.logger, s.db)
	if err := txq.Err(); err != nil {
		txq.Done(&err)
		s.transactionsTotal.WithLabelValues(txq.State().String()).Inc()
		return fmt.Errorf("begin: %w", s.classify(err))
	}

	defer func() {
		if p := recover(); p != nil {
			panicErr := fmt.Errorf("transaction body panicked: %v", p)
			txq.Done(&panicErr)
			s.transactionsTotal.WithLabelValues(txq.State().String()).Inc()
			panic(p)
		}
	}()

	bodyErr := body(context.WithValue(ctx, transactionKey{}, struct{}{}), &catalogTx{store: s, txq: txq})
	// a failed statement is reported as is even if body swallowed it
	stmtErr := txq.Err()

	err = bodyErr
	txq.Done(&err)
	s.transactionsTotal.WithLabelValues(txq.State().String()).Inc()

	if bodyErr == nil && stmtErr == nil && err != nil {
		err = fmt.Errorf("commit: %w", s.classify(err))
	}

	if err != nil {
		s.logger.WithError(err).Debug("catalog transaction rolled back")
	}

	return err
}

// PriceLinksByProduct returns the committed price links of a product ordered
// by client category id. An empty slice is returned if there are none.
func (s *CatalogStore) PriceLinksByProduct(ctx context.Context, productID int64) ([]PriceLink, error) {
	links, err := queryPriceLinks(ctx, s.db, s.dialect, productID)
	if err != nil {
		return nil, s.classify(err)
	}

	return links, nil
}

// GetProduct returns the product with the given id or NotFoundError.
func (s *CatalogStore) GetProduct(ctx context.Context, id int64) (Product, error) {
	var p Product
	err := s.db.QueryRowContext(ctx, s.dialect.Rebind(`
SELECT id, name
FROM product
WHERE id = $1
`), id).Scan(&p.ID, &p.Name)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return Product{}, NotFoundError{Entity: "product", ID: id}
	case err != nil:
		return Product{}, fmt.Errorf("query: %w", s.classify(err))
	}

	return p, nil
}

// GetClientCategory returns the client category with the given id or NotFoundError.
func (s *CatalogStore) GetClientCategory(ctx context.Context, id int64) (ClientCategory, error) {
	var c ClientCategory
	err := s.db.QueryRowContext(ctx, s.dialect.Rebind(`
SELECT id, name
FROM client_category
WHERE id = $1
`), id).Scan(&c.ID, &c.Name)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return ClientCategory{}, NotFoundError{Entity: "client category", ID: id}
	case err != nil:
		return ClientCategory{}, fmt.Errorf("query: %w", s.classify(err))
	}

	return c, nil
}

// ListProducts returns all products ordered by id.
func (s *CatalogStore) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name FROM product ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("query: %w", s.classify(err))
	}
	defer rows.Close()

	products := []Product{}
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}

		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", s.classify(err))
	}

	return products, nil
}

// ListClientCategories returns all client categories ordered by id.
func (s *CatalogStore) ListClientCategories(ctx context.Context) ([]ClientCategory, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name FROM client_category ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("query: %w", s.classify(err))
	}
	defer rows.Close()

	categories := []ClientCategory{}
	for rows.Next() {
		var c ClientCategory
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}

		categories = append(categories, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", s.classify(err))
	}

	return categories, nil
}

// ProductIDsByClientCategory returns the ids of the products priced for a
// client category in increasing order.
func (s *CatalogStore) ProductIDsByClientCategory(ctx context.Context, clientCategoryID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.Rebind(`
SELECT product_id
FROM producto_cliente_categoria_precio
WHERE client_category_id = $1
ORDER BY product_id
`), clientCategoryID)
	if err != nil {
		return nil, fmt.Errorf("query: %w", s.classify(err))
	}

	var ids glsql.Int64Provider
	if err := glsql.ScanAll(rows, &ids); err != nil {
		return nil, fmt.Errorf("scan: %w", s.classify(err))
	}

	if values := ids.Values(); values != nil {
		return values, nil
	}

	return []int64{}, nil
}

// classify converts driver errors and counts constraint violations.
func (s *CatalogStore) classify(err error) error {
	err = classifyError(err)

	var cv ConstraintViolationError
	if errors.As(err, &cv) {
		s.violationsTotal.WithLabelValues(string(cv.Kind)).Inc()
	}

	return err
}

type catalogTx struct {
	store *CatalogStore
	txq   glsql.TxQuery
}

func (t *catalogTx) exec(ctx context.Context, op func(context.Context, *sql.Tx) error) error {
	if t.txq.State() != glsql.TxActive {
		return ErrTransactionDone
	}

	if !t.txq.Exec(ctx, op) {
		return t.txq.Err()
	}

	return nil
}

func (t *catalogTx) InsertProduct(ctx context.Context, name string) (int64, error) {
	var id int64
	err := t.exec(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if err := validateName("product", name); err != nil {
			return err
		}

		if err := tx.QueryRowContext(ctx, t.store.dialect.Rebind(`
INSERT INTO product (name)
VALUES ($1)
RETURNING id
`), name).Scan(&id); err != nil {
			return fmt.Errorf("insert product: %w", t.store.classify(err))
		}
		return nil
	})

	return id, err
}

func (t *catalogTx) InsertClientCategory(ctx context.Context, name string) (int64, error) {
	var id int64
	err := t.exec(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if err := validateName("client category", name); err != nil {
			return err
		}

		if err := tx.QueryRowContext(ctx, t.store.dialect.Rebind(`
INSERT INTO client_category (name)
VALUES ($1)
RETURNING id
`), name).Scan(&id); err != nil {
			return fmt.Errorf("insert client category: %w", t.store.classify(err))
		}
		return nil
	})

	return id, err
}

func (t *catalogTx) InsertPriceLink(ctx context.Context, link PriceLink) error {
	return t.exec(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, t.store.dialect.Rebind(`
INSERT INTO producto_cliente_categoria_precio (product_id, client_category_id, price)
VALUES ($1, $2, $3)
`), link.ProductID, link.ClientCategoryID, link.Price); err != nil {
			return fmt.Errorf("insert price link: %w", t.store.classify(err))
		}
		return nil
	})
}

func (t *catalogTx) PriceLinksByProduct(ctx context.Context, productID int64) ([]PriceLink, error) {
	var links []PriceLink
	err := t.exec(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var err error
		links, err = queryPriceLinks(ctx, tx, t.store.dialect, productID)
		return t.store.classify(err)
	})

	return links, err
}

func validateName(entity, name string) error {
	if name == "" {
		return newEmptyNameError(entity)
	}

	if utf8.RuneCountInString(name) > maxNameLength {
		return newNameTooLongError(entity, name)
	}

	return nil
}

type priceLinkProvider []*PriceLink

func (p *priceLinkProvider) To() []interface{} {
	var link PriceLink
	*p = append(*p, &link)
	return []interface{}{&link.ProductID, &link.ClientCategoryID, &link.Price}
}

func (p priceLinkProvider) Values() []PriceLink {
	links := make([]PriceLink, len(p))
	for i, link := range p {
		links[i] = *link
	}
	return links
}

func queryPriceLinks(ctx context.Context, q glsql.Querier, dialect glsql.Dialect, productID int64) ([]PriceLink, error) {
	rows, err := q.QueryContext(ctx, dialect.Rebind(`
SELECT product_id, client_category_id, price
FROM producto_cliente_categoria_precio
WHERE product_id = $1
ORDER BY client_category_id
`), productID)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}

	var links priceLinkProvider
	if err := glsql.ScanAll(rows, &links); err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}

	return links.Values(), nil
}
