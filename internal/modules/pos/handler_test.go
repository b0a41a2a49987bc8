package pos

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/georgemunganga/printa-pos/internal/modules/auth"
	"github.com/georgemunganga/printa-pos/internal/modules/cart"
	"github.com/georgemunganga/printa-pos/internal/modules/settings"
)

func newTestRouter(state cart.State) (*chi.Mux, *mockRepository, *mockCarts) {
	logger, _ := test.NewNullLogger()
	repo := newMockRepository()
	carts := &mockCarts{state: state}
	h := NewHandler(NewService(repo, carts, stubSettings{s: settings.StoreSettings{}}, "en-US", logger))
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r, repo, carts
}

func serve(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func checkoutRequest(ctx context.Context, storeID uuid.UUID, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/stores/"+storeID.String()+"/terminals/T1/checkout", strings.NewReader(body))
	return req.WithContext(ctx)
}

func TestHandler_CheckoutRecordsCashier(t *testing.T) {
	r, repo, carts := newTestRouter(cartWith(t, "0", product("Pen", "4")))
	cashier := uuid.New()
	ctx := auth.WithUserID(context.Background(), cashier)

	w := serve(r, checkoutRequest(ctx, uuid.New(), `{"checkout_id":"c-1","payment_method":"cash","amount_tendered":"5"}`))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var body checkoutResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Sale completed", body.Message)
	assert.Equal(t, "$1.00", body.Receipt.Change)
	assert.Equal(t, &cashier, body.Receipt.Transaction.CashierID)
	assert.Equal(t, "c-1", body.Receipt.Transaction.IdempotencyKey)
	assert.Equal(t, 1, repo.calls)
	assert.True(t, carts.state.IsEmpty())
}

func TestHandler_CheckoutReplayIsOK(t *testing.T) {
	state := cartWith(t, "0", product("Pen", "4"))
	r, _, carts := newTestRouter(state)
	storeID := uuid.New()
	body := `{"checkout_id":"c-2","payment_method":"card"}`

	w := serve(r, checkoutRequest(context.Background(), storeID, body))
	require.Equal(t, http.StatusCreated, w.Code)
	require.True(t, carts.state.IsEmpty())

	w = serve(r, checkoutRequest(context.Background(), storeID, body))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Sale already recorded")

	carts.state = cartWith(t, "0", product("Laptop", "900"))
	w = serve(r, checkoutRequest(context.Background(), storeID, body))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.False(t, carts.state.IsEmpty())
}

func TestHandler_CheckoutErrors(t *testing.T) {
	tests := []struct {
		name   string
		state  cart.State
		body   string
		status int
	}{
		{"empty cart", cart.State{}, `{"payment_method":"cash","amount_tendered":"1"}`, http.StatusBadRequest},
		{"bad method", cartWith(t, "0", product("Pen", "4")), `{"payment_method":"cheque"}`, http.StatusBadRequest},
		{"short cash", cartWith(t, "0", product("Pen", "4")), `{"payment_method":"cash","amount_tendered":"3.99"}`, http.StatusUnprocessableEntity},
		{"malformed body", cartWith(t, "0", product("Pen", "4")), `{`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, repo, _ := newTestRouter(tt.state)
			w := serve(r, checkoutRequest(context.Background(), uuid.New(), tt.body))
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Zero(t, repo.calls)
		})
	}
}

func TestHandler_CheckoutStockConflict(t *testing.T) {
	r, repo, carts := newTestRouter(cartWith(t, "0", product("Pen", "4")))
	repo.err = ErrInsufficientStock

	w := serve(r, checkoutRequest(context.Background(), uuid.New(), `{"payment_method":"card"}`))

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.False(t, carts.state.IsEmpty())
}

func TestHandler_TransactionsAndRefund(t *testing.T) {
	r, _, _ := newTestRouter(cartWith(t, "0", product("Pen", "4")))
	storeID := uuid.New()
	base := "/api/v1/stores/" + storeID.String() + "/transactions"

	w := serve(r, httptest.NewRequest(http.MethodGet, base, nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	w = serve(r, checkoutRequest(context.Background(), storeID, `{"payment_method":"card"}`))
	require.Equal(t, http.StatusCreated, w.Code)
	var created checkoutResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	txID := created.Receipt.Transaction.ID.String()

	w = serve(r, httptest.NewRequest(http.MethodGet, base+"?limit=5", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var list []Transaction
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	w = serve(r, httptest.NewRequest(http.MethodGet, base+"/"+txID, nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(r, httptest.NewRequest(http.MethodPost, base+"/"+txID+"/refund", strings.NewReader(`{"reason":"wrong size"}`)))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Transaction refunded")
	assert.Contains(t, w.Body.String(), `"status":"REFUNDED"`)

	w = serve(r, httptest.NewRequest(http.MethodPost, base+"/"+txID+"/refund", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestHandler_BadParams(t *testing.T) {
	r, _, _ := newTestRouter(cart.State{})
	storeID := uuid.New().String()

	tests := []struct {
		method, path string
		status       int
	}{
		{http.MethodGet, "/api/v1/stores/nope/transactions", http.StatusBadRequest},
		{http.MethodGet, "/api/v1/stores/" + storeID + "/transactions?limit=ten", http.StatusBadRequest},
		{http.MethodGet, "/api/v1/stores/" + storeID + "/transactions/nope", http.StatusBadRequest},
		{http.MethodGet, "/api/v1/stores/" + storeID + "/transactions/" + uuid.New().String(), http.StatusNotFound},
	}
	for _, tt := range tests {
		w := serve(r, httptest.NewRequest(tt.method, tt.path, nil))
		assert.Equal(t, tt.status, w.Code, tt.path)
	}
}
