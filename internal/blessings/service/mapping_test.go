package service

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"gitlab.com/gitlab-org/blessings/internal/blessings/datastore"
)

func TestToProductResponse(t *testing.T) {
	product := datastore.Product{ID: 4, Name: "X"}

	out, err := json.Marshal(toProductResponse(product, nil))
	require.NoError(t, err)
	require.JSONEq(t, `{"id":4,"name":"X"}`, string(out))

	links := toPriceLinks(product.ID, []clientCategoryPriceRequest{
		{CategoryClientID: 2, Price: 15},
		{CategoryClientID: 1, Price: 20},
	})
	require.Equal(t, []datastore.PriceLink{
		{ProductID: 4, ClientCategoryID: 2, Price: 15},
		{ProductID: 4, ClientCategoryID: 1, Price: 20},
	}, links)

	out, err = json.Marshal(toProductResponse(product, links))
	require.NoError(t, err)
	require.JSONEq(t, `{
		"id": 4,
		"name": "X",
		"prices": [
			{"productId": 4, "clientCategoryId": 2, "price": 15},
			{"productId": 4, "clientCategoryId": 1, "price": 20}
		]
	}`, string(out))
}

func TestEmptyCollectionsEncodeAsArrays(t *testing.T) {
	for _, v := range []interface{}{
		toBlessingResponses(nil),
		toPriceResponses(nil),
		toProductResponses(nil),
		toClientCategoryResponses(nil),
	} {
		out, err := json.Marshal(v)
		require.NoError(t, err)
		require.Equal(t, "[]", string(out))
	}
}
