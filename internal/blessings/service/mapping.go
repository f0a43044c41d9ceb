package service

import (
	"gitlab.com/gitlab-org/blessings/internal/blessings/datastore"
)

type blessingResponse struct {
	ID      int64  `json:"id"`
	Message string `json:"message"`
}

type priceResponse struct {
	ProductID        int64 `json:"productId"`
	ClientCategoryID int64 `json:"clientCategoryId"`
	Price            int64 `json:"price"`
}

type productResponse struct {
	ID     int64           `json:"id"`
	Name   string          `json:"name"`
	Prices []priceResponse `json:"prices,omitempty"`
}

type clientCategoryResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type clientCategoryPriceRequest struct {
	CategoryClientID int64 `json:"categoryClientId"`
	Price            int64 `json:"price"`
}

type createProductRequest struct {
	Name   string                       `json:"name" binding:"required"`
	Prices []clientCategoryPriceRequest `json:"prices"`
}

type clientCategoryProductsResponse struct {
	ClientCategoryID int64   `json:"clientCategoryId"`
	ProductIDs       []int64 `json:"productIds"`
}

type createClientCategoryRequest struct {
	Name string `json:"name" binding:"required"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func toBlessingResponse(b datastore.Blessing) blessingResponse {
	return blessingResponse{ID: b.ID, Message: b.Message}
}

func toBlessingResponses(blessings []datastore.Blessing) []blessingResponse {
	out := make([]blessingResponse, len(blessings))
	for i, b := range blessings {
		out[i] = toBlessingResponse(b)
	}
	return out
}

func toPriceResponse(l datastore.PriceLink) priceResponse {
	return priceResponse{ProductID: l.ProductID, ClientCategoryID: l.ClientCategoryID, Price: l.Price}
}

func toPriceResponses(links []datastore.PriceLink) []priceResponse {
	out := make([]priceResponse, len(links))
	for i, l := range links {
		out[i] = toPriceResponse(l)
	}
	return out
}

func toProductResponse(p datastore.Product, links []datastore.PriceLink) productResponse {
	resp := productResponse{ID: p.ID, Name: p.Name}
	if len(links) > 0 {
		resp.Prices = toPriceResponses(links)
	}
	return resp
}

func toProductResponses(products []datastore.Product) []productResponse {
	out := make([]productResponse, len(products))
	for i, p := range products {
		out[i] = toProductResponse(p, nil)
	}
	return out
}

func toClientCategoryResponse(c datastore.ClientCategory) clientCategoryResponse {
	return clientCategoryResponse{ID: c.ID, Name: c.Name}
}

func toClientCategoryResponses(categories []datastore.ClientCategory) []clientCategoryResponse {
	out := make([]clientCategoryResponse, len(categories))
	for i, c := range categories {
		out[i] = toClientCategoryResponse(c)
	}
	return out
}

// toPriceLinks links every requested price to productID, keeping the
// request order.
func toPriceLinks(productID int64, prices []clientCategoryPriceRequest) []datastore.PriceLink {
	links := make([]datastore.PriceLink, len(prices))
	for i, p := range prices {
		links[i] = datastore.PriceLink{ProductID: productID, ClientCategoryID: p.CategoryClientID, Price: p.Price}
	}
	return links
}
