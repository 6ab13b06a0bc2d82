package catalog

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/auraflora/shopbot-server-go/internal/errors"
	"github.com/auraflora/shopbot-server-go/internal/model"
)

const pageOne = `{
	"data": [
		{"retailer_id": "rl7vdxcifo", "name": "Spirit", "price": "1,500 THB", "image_url": "https://cdn.example.com/spirit.jpg", "availability": "in stock"},
		{"retailer_id": "xk2painted", "name": "Sunset", "price": "2,200 THB", "image_url": "https://cdn.example.com/sunset.jpg", "availability": "out of stock"}
	],
	"paging": {"next": "%s"}
}`

const pageTwo = `{
	"data": [
		{"retailer_id": "mm9velvet", "name": "Velvet", "price": "1,800 THB", "image_url": "https://cdn.example.com/velvet.jpg", "availability": "in stock"}
	],
	"paging": {}
}`

func newTestClient(t *testing.T) *Client {
	t.Helper()
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("after") == "cursor2" {
			fmt.Fprint(w, pageTwo)
			return
		}
		fmt.Fprintf(w, pageOne, srv.URL+"/catalog-1/products?after=cursor2")
	}))
	t.Cleanup(srv.Close)
	return NewClient("test-token", "catalog-1", WithBaseURL(srv.URL))
}

func TestListAvailableFollowsPagingAndFiltersStock(t *testing.T) {
	client := newTestClient(t)

	products, err := client.ListAvailable(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 2, "out-of-stock items should be dropped")

	assert.Equal(t, "Spirit", products[0].Name)
	assert.Equal(t, "1500", products[0].UnitAmount.String())
	assert.Equal(t, "Velvet", products[1].Name)
}

func TestValidateKnownProduct(t *testing.T) {
	client := newTestClient(t)

	product, err := client.Validate(context.Background(), "rl7vdxcifo")
	require.NoError(t, err)
	assert.Equal(t, "Spirit", product.Name)
}

func TestValidateUnknownProduct(t *testing.T) {
	client := newTestClient(t)

	_, err := client.Validate(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeValidation))
}

func TestValidateOutOfStockProduct(t *testing.T) {
	client := newTestClient(t)

	_, err := client.Validate(context.Background(), "xk2painted")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeValidation))
}

func TestValidateEmptyID(t *testing.T) {
	client := newTestClient(t)

	_, err := client.Validate(context.Background(), "")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeValidation))
}

func TestListAvailableUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()
	client := NewClient("test-token", "catalog-1", WithBaseURL(srv.URL))

	_, err := client.ListAvailable(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeExternal))
}

func TestFormatForPrompt(t *testing.T) {
	products := []model.Product{
		{RetailerID: "rl7vdxcifo", Name: "Spirit", Price: "1,500 THB"},
		{RetailerID: "mm9velvet", Name: "Velvet", Price: "1,800 THB"},
	}
	out := FormatForPrompt(products)
	assert.Equal(t, "- Spirit (id: rl7vdxcifo, price: 1,500 THB)\n- Velvet (id: mm9velvet, price: 1,800 THB)", out)
	assert.Empty(t, FormatForPrompt(nil))
}
