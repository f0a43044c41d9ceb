// Package service exposes the blessings and the product catalog over HTTP.
package service

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gitlab.com/gitlab-org/blessings/internal/blessings/datastore"
	"gitlab.com/gitlab-org/blessings/internal/blessings/metrics"
	"gitlab.com/gitlab-org/labkit/correlation"
)

// BlessingReader reads blessings.
type BlessingReader interface {
	ListBlessings(ctx context.Context) ([]datastore.Blessing, error)
	GetBlessing(ctx context.Context, id int64) (datastore.Blessing, error)
}

// Catalog gives access to products, client categories and their prices.
type Catalog interface {
	WithTransaction(ctx context.Context, body func(context.Context, datastore.CatalogTx) error) error
	PriceLinksByProduct(ctx context.Context, productID int64) ([]datastore.PriceLink, error)
	GetProduct(ctx context.Context, id int64) (datastore.Product, error)
	ListProducts(ctx context.Context) ([]datastore.Product, error)
	ListClientCategories(ctx context.Context) ([]datastore.ClientCategory, error)
	GetClientCategory(ctx context.Context, id int64) (datastore.ClientCategory, error)
	ProductIDsByClientCategory(ctx context.Context, clientCategoryID int64) ([]int64, error)
}

// Server is the HTTP frontend of the stores.
type Server struct {
	logger    logrus.FieldLogger
	blessings BlessingReader
	catalog   Catalog

	requestLatency metrics.HistogramVec
	inFlight       metrics.Gauge

	engine *gin.Engine
	http   *http.Server
}

// Option configures optional Server dependencies.
type Option func(*Server)

// WithRequestLatency observes request durations in h.
func WithRequestLatency(h metrics.HistogramVec) Option {
	return func(s *Server) { s.requestLatency = h }
}

// WithRequestsInFlight tracks the requests being served in g.
func WithRequestsInFlight(g metrics.Gauge) Option {
	return func(s *Server) { s.inFlight = g }
}

// NewServer returns a server with all routes registered.
func NewServer(logger logrus.FieldLogger, blessings BlessingReader, catalog Catalog, opts ...Option) *Server {
	s := &Server{
		logger:    logger,
		blessings: blessings,
		catalog:   catalog,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.engine = gin.New()
	// recovery sits inside instrument and accessLog so a panicking request
	// is still measured and logged with its 500 status
	s.engine.Use(
		s.instrument(),
		s.accessLog(),
		s.recovery(),
		sentryReporter(),
	)
	s.routes()

	s.http = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

func (s *Server) routes() {
	v1 := s.engine.Group("/v1")

	v1.GET("/blessings", s.listBlessings)
	v1.GET("/blessings/:id", s.getBlessing)

	v1.GET("/products", s.listProducts)
	v1.POST("/products", s.createProduct)
	v1.GET("/products/:id", s.getProduct)
	v1.GET("/products/:id/prices", s.listProductPrices)

	v1.GET("/client-categories", s.listClientCategories)
	v1.POST("/client-categories", s.createClientCategory)
	v1.GET("/client-categories/:id", s.getClientCategory)
	v1.GET("/client-categories/:id/products", s.listClientCategoryProducts)
}

// Handler returns the http.Handler serving all routes. Every request gets
// a correlation id, propagated from the X-Request-Id header when present.
func (s *Server) Handler() http.Handler {
	return correlation.InjectCorrelationID(s.engine, correlation.WithPropagation())
}

// Serve accepts connections on l until Shutdown is called.
func (s *Server) Serve(l net.Listener) error {
	return s.http.Serve(l)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
