package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"catalog-be/internal/metrics"
	"catalog-be/internal/product"
	"catalog-be/internal/store"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCatalog(t *testing.T) string {
	t.Helper()

	svc := product.NewService(product.NewMemoryRepository(), metrics.NewRegistry())
	r := mux.NewRouter()
	product.NewHandler(svc).Register(r.PathPrefix("/api").Subrouter())

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv.URL + "/api"
}

func runCLI(t *testing.T, api string, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	err := app.Run(append([]string{"catalogctl", "--api", api}, args...))
	return out.String(), err
}

func decodeProducts(t *testing.T, out string) []product.Product {
	t.Helper()
	var items []product.Product
	require.NoError(t, json.Unmarshal([]byte(out), &items))
	return items
}

func create(t *testing.T, api, title, category, price string) product.Product {
	t.Helper()
	out, err := runCLI(t, api, "--json", "create",
		"--title", title,
		"--image", "https://img.example/x.png",
		"--category", category,
		"--price", price,
		"--description", title+" description",
	)
	require.NoError(t, err)
	items := decodeProducts(t, out)
	require.Len(t, items, 1)
	return items[0]
}

func TestCreateAndList(t *testing.T) {
	api := newCatalog(t)

	watch := create(t, api, "Leather Watch", "Accessories", "199.99")
	assert.Equal(t, "leather-watch", watch.Slug)
	assert.True(t, watch.Availability)
	create(t, api, "Sunglasses", "Accessories", "49.99")
	create(t, api, "Running Sneakers", "Shoes", "129.99")

	out, err := runCLI(t, api, "--json", "list", "--category", "Accessories", "--sort", "ascending-price")
	require.NoError(t, err)
	items := decodeProducts(t, out)
	require.Len(t, items, 2)
	assert.Equal(t, "sunglasses", items[0].Slug)
	assert.Equal(t, "leather-watch", items[1].Slug)

	out, err = runCLI(t, api, "list", "--max-price", "100")
	require.NoError(t, err)
	assert.Contains(t, out, "SLUG")
	assert.Contains(t, out, "sunglasses")
	assert.NotContains(t, out, "running-sneakers")
}

func TestCreate_IncompleteForm(t *testing.T) {
	api := newCatalog(t)

	_, err := runCLI(t, api, "create", "--title", "Cap")
	assert.ErrorIs(t, err, store.ErrFormIncomplete)
}

func TestUpdateAndDelete(t *testing.T) {
	api := newCatalog(t)
	created := create(t, api, "Cotton T-Shirt", "Clothing", "24.99")

	out, err := runCLI(t, api, "--json", "update", "--price", "19.5", "--unavailable", "cotton-t-shirt")
	require.NoError(t, err)
	items := decodeProducts(t, out)
	require.Len(t, items, 1)
	assert.Equal(t, created.ID, items[0].ID)
	assert.Equal(t, 19.5, items[0].Price)
	assert.False(t, items[0].Availability)
	assert.Equal(t, "Cotton T-Shirt", items[0].Title)

	out, err = runCLI(t, api, "delete", created.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "Product deleted successfully")

	_, err = runCLI(t, api, "get", created.ID)
	assert.ErrorContains(t, err, "Product not found")
}

func TestUpdate_KeepsGeneratedSlug(t *testing.T) {
	api := newCatalog(t)
	created := create(t, api, "!!!", "Misc", "5")
	require.Regexp(t, `^product-\d+$`, created.Slug)

	time.Sleep(2 * time.Millisecond)
	out, err := runCLI(t, api, "--json", "update", "--price", "6", created.ID)
	require.NoError(t, err)
	items := decodeProducts(t, out)
	require.Len(t, items, 1)
	assert.Equal(t, created.Slug, items[0].Slug)
	assert.Equal(t, 6.0, items[0].Price)
}

func TestUpdate_Availability(t *testing.T) {
	api := newCatalog(t)
	create(t, api, "Canvas Bag", "Bags", "40")

	out, err := runCLI(t, api, "--json", "update", "--unavailable", "canvas-bag")
	require.NoError(t, err)
	assert.False(t, decodeProducts(t, out)[0].Availability)

	out, err = runCLI(t, api, "--json", "update", "--available", "canvas-bag")
	require.NoError(t, err)
	assert.True(t, decodeProducts(t, out)[0].Availability)

	out, err = runCLI(t, api, "--json", "update", "--available", "canvas-bag")
	require.NoError(t, err)
	items := decodeProducts(t, out)
	require.Len(t, items, 1)
	assert.Equal(t, "canvas-bag", items[0].Slug)
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, store.MsgFormIncomplete, errorMessage(store.ErrFormIncomplete))
	assert.Equal(t, "boom", errorMessage(errors.New("boom")))
}

func TestRelatedAndCategories(t *testing.T) {
	api := newCatalog(t)
	create(t, api, "Canvas Bag", "Bags", "40")
	create(t, api, "Tote Bag", "Bags", "25")

	out, err := runCLI(t, api, "--json", "related", "canvas-bag")
	require.NoError(t, err)
	items := decodeProducts(t, out)
	require.Len(t, items, 1)
	assert.Equal(t, "tote-bag", items[0].Slug)

	out, err = runCLI(t, api, "categories")
	require.NoError(t, err)
	assert.Contains(t, out, "Bags")
}

func TestArgumentChecks(t *testing.T) {
	api := newCatalog(t)

	_, err := runCLI(t, api, "get")
	assert.ErrorContains(t, err, "exactly one argument")

	_, err = runCLI(t, api, "list", "--sort", "sideways")
	assert.ErrorContains(t, err, "unknown sort key")
}
