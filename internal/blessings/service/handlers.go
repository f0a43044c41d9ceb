package service

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strconv"

	"github.com/gin-gonic/gin"
	"gitlab.com/gitlab-org/blessings/internal/blessings/datastore"
)

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		abortWithStatus(c, http.StatusBadRequest, fmt.Errorf("parse id %q: %w", c.Param("id"), errInvalidID), errInvalidID.Error())
		return 0, false
	}

	return id, true
}

func (s *Server) listBlessings(c *gin.Context) {
	blessings, err := s.blessings.ListBlessings(c.Request.Context())
	if err != nil {
		abort(c, err)
		return
	}

	c.JSON(http.StatusOK, toBlessingResponses(blessings))
}

func (s *Server) getBlessing(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	blessing, err := s.blessings.GetBlessing(c.Request.Context(), id)
	if err != nil {
		abort(c, err)
		return
	}

	c.JSON(http.StatusOK, toBlessingResponse(blessing))
}

func (s *Server) listProducts(c *gin.Context) {
	products, err := s.catalog.ListProducts(c.Request.Context())
	if err != nil {
		abort(c, err)
		return
	}

	c.JSON(http.StatusOK, toProductResponses(products))
}

func (s *Server) getProduct(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()

	product, err := s.catalog.GetProduct(ctx, id)
	if err != nil {
		abort(c, err)
		return
	}

	links, err := s.catalog.PriceLinksByProduct(ctx, id)
	if err != nil {
		abort(c, err)
		return
	}

	c.JSON(http.StatusOK, toProductResponse(product, links))
}

func (s *Server) listProductPrices(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	links, err := s.catalog.PriceLinksByProduct(c.Request.Context(), id)
	if err != nil {
		abort(c, err)
		return
	}

	c.JSON(http.StatusOK, toPriceResponses(links))
}

// createProduct inserts the product and all of its prices in one
// transaction: either everything is stored or nothing is.
func (s *Server) createProduct(c *gin.Context) {
	var req createProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithStatus(c, http.StatusBadRequest, err, errInvalidArgument.Error())
		return
	}

	var product datastore.Product
	var links []datastore.PriceLink

	err := s.catalog.WithTransaction(c.Request.Context(), func(ctx context.Context, tx datastore.CatalogTx) error {
		id, err := tx.InsertProduct(ctx, req.Name)
		if err != nil {
			return err
		}

		product = datastore.Product{ID: id, Name: req.Name}
		links = toPriceLinks(id, req.Prices)

		for _, link := range links {
			if err := tx.InsertPriceLink(ctx, link); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		abort(c, err)
		return
	}

	// same order as the stored prices are read back in
	sort.Slice(links, func(i, j int) bool { return links[i].ClientCategoryID < links[j].ClientCategoryID })

	s.logger.WithField("product_id", product.ID).WithField("prices", len(links)).Info("product created")

	c.JSON(http.StatusCreated, toProductResponse(product, links))
}

func (s *Server) listClientCategories(c *gin.Context) {
	categories, err := s.catalog.ListClientCategories(c.Request.Context())
	if err != nil {
		abort(c, err)
		return
	}

	c.JSON(http.StatusOK, toClientCategoryResponses(categories))
}

func (s *Server) createClientCategory(c *gin.Context) {
	var req createClientCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithStatus(c, http.StatusBadRequest, err, errInvalidArgument.Error())
		return
	}

	var category datastore.ClientCategory
	if err := s.catalog.WithTransaction(c.Request.Context(), func(ctx context.Context, tx datastore.CatalogTx) error {
		id, err := tx.InsertClientCategory(ctx, req.Name)
		category = datastore.ClientCategory{ID: id, Name: req.Name}
		return err
	}); err != nil {
		abort(c, err)
		return
	}

	c.JSON(http.StatusCreated, toClientCategoryResponse(category))
}

func (s *Server) getClientCategory(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	category, err := s.catalog.GetClientCategory(c.Request.Context(), id)
	if err != nil {
		abort(c, err)
		return
	}

	c.JSON(http.StatusOK, toClientCategoryResponse(category))
}

// listClientCategoryProducts returns the ids of the products priced for the
// client category. An unknown category is not found rather than empty.
func (s *Server) listClientCategoryProducts(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()

	if _, err := s.catalog.GetClientCategory(ctx, id); err != nil {
		abort(c, err)
		return
	}

	productIDs, err := s.catalog.ProductIDsByClientCategory(ctx, id)
	if err != nil {
		abort(c, err)
		return
	}

	c.JSON(http.StatusOK, clientCategoryProductsResponse{ClientCategoryID: id, ProductIDs: productIDs})
}
