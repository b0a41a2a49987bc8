package inventory

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(f *fixture, caller uuid.UUID) *chi.Mux {
	h := NewHandler(f.svc, func(context.Context) (uuid.UUID, bool) { return caller, caller != uuid.Nil })
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func serve(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, path, strings.NewReader(body)))
	return w
}

func TestHandler_Stores(t *testing.T) {
	f := newFixture()
	r := newTestRouter(f, uuid.New())

	w := serve(r, http.MethodGet, "/api/v1/inventory/stores", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	w = serve(r, http.MethodPost, "/api/v1/inventory/stores", `{"name":"Main Street"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var s Store
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &s))

	w = serve(r, http.MethodGet, "/api/v1/inventory/stores/"+s.ID.String(), "")
	assert.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, http.StatusBadRequest, serve(r, http.MethodPost, "/api/v1/inventory/stores", `{"name":""}`).Code)
	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodGet, "/api/v1/inventory/stores/"+uuid.New().String(), "").Code)
	assert.Equal(t, http.StatusBadRequest, serve(r, http.MethodGet, "/api/v1/inventory/stores/x", "").Code)
}

func TestHandler_StoresNeedCaller(t *testing.T) {
	r := newTestRouter(newFixture(), uuid.Nil)

	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/api/v1/inventory/stores", "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodPost, "/api/v1/inventory/stores", `{"name":"A"}`).Code)
}

func TestHandler_Products(t *testing.T) {
	f := newFixture()
	owner := uuid.New()
	r := newTestRouter(f, owner)
	store, err := f.svc.CreateStore(context.Background(), owner, CreateStoreRequest{Name: "Main Street"})
	require.NoError(t, err)
	base := "/api/v1/inventory/stores/" + store.ID.String() + "/products"

	w := serve(r, http.MethodPost, base, `{"name":"Ink","selling_price":"8.50","stock_quantity":2,"min_stock_level":3}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var p Product
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
	item := base + "/" + p.ID.String()

	w = serve(r, http.MethodGet, base+"/low-stock", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), p.ID.String())

	w = serve(r, http.MethodPatch, item, `{"name":"Black Ink"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Black Ink")

	w = serve(r, http.MethodPost, item+"/stock-adjustments", `{"delta":5,"reason":"delivery"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"stock_quantity":7`)

	w = serve(r, http.MethodPost, item+"/stock-adjustments", `{"delta":-8}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = serve(r, http.MethodGet, base, "")
	require.Equal(t, http.StatusOK, w.Code)
	var list []Product
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	assert.Equal(t, http.StatusNoContent, serve(r, http.MethodDelete, item, "").Code)
	assert.JSONEq(t, `[]`, serve(r, http.MethodGet, base, "").Body.String())

	assert.Equal(t, http.StatusBadRequest, serve(r, http.MethodPost, base, `{"name":"Bad","selling_price":"-1"}`).Code)
	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodGet, base+"/"+uuid.New().String(), "").Code)
	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodDelete, base+"/"+uuid.New().String(), "").Code)
}

func TestHandler_StoreRoutesNeedOwner(t *testing.T) {
	f := newFixture()
	owner := uuid.New()
	store, err := f.svc.CreateStore(context.Background(), owner, CreateStoreRequest{Name: "Main Street"})
	require.NoError(t, err)
	base := "/api/v1/inventory/stores/" + store.ID.String()

	w := serve(newTestRouter(f, owner), http.MethodPost, base+"/products", `{"name":"Ink","selling_price":"8.50"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	stranger := newTestRouter(f, uuid.New())
	assert.Equal(t, http.StatusForbidden, serve(stranger, http.MethodGet, base, "").Code)
	assert.Equal(t, http.StatusForbidden, serve(stranger, http.MethodGet, base+"/products", "").Code)
	assert.Equal(t, http.StatusForbidden, serve(stranger, http.MethodPost, base+"/products", `{"name":"Pen","selling_price":"1"}`).Code)

	products, err := f.svc.ListProducts(context.Background(), store.ID, "")
	require.NoError(t, err)
	assert.Len(t, products, 1)
}
