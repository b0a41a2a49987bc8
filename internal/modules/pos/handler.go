package pos

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/georgemunganga/printa-pos/internal/modules/auth"
)

// Handler exposes POS HTTP endpoints.
type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/api/v1/stores/{store_id}/terminals/{terminal_id}/checkout", h.checkout) // POST /api/v1/stores/{id}/terminals/{id}/checkout
	r.Get("/api/v1/stores/{store_id}/transactions", h.listStoreTransactions)         // GET  /api/v1/stores/{id}/transactions?limit=
	r.Get("/api/v1/stores/{store_id}/transactions/{id}", h.getTransaction)           // GET  /api/v1/stores/{id}/transactions/{id}
	r.Post("/api/v1/stores/{store_id}/transactions/{id}/refund", h.refund)           // POST /api/v1/stores/{id}/transactions/{id}/refund
}

type checkoutResponse struct {
	Receipt *Receipt `json:"receipt"`
	Message string   `json:"message"`
}

func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	storeID, err := uuid.Parse(chi.URLParam(r, "store_id"))
	if err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": "invalid store_id"})
		return
	}
	var req CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if uid, ok := auth.UserID(r.Context()); ok {
		req.CashierID = &uid
	}

	receipt, err := h.service.Checkout(r.Context(), storeID, chi.URLParam(r, "terminal_id"), req)
	if err != nil {
		respond(w, statusFor(err, http.StatusBadGateway), map[string]string{"error": err.Error()})
		return
	}
	if receipt.Replayed {
		respond(w, http.StatusOK, checkoutResponse{Receipt: receipt, Message: "Sale already recorded"})
		return
	}
	respond(w, http.StatusCreated, checkoutResponse{Receipt: receipt, Message: "Sale completed"})
}

func (h *Handler) getTransaction(w http.ResponseWriter, r *http.Request) {
	storeID, id, ok := parseIDs(w, r)
	if !ok {
		return
	}
	tx, err := h.service.GetTransaction(r.Context(), storeID, id)
	if err != nil {
		respond(w, statusFor(err, http.StatusInternalServerError), map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, tx)
}

func (h *Handler) listStoreTransactions(w http.ResponseWriter, r *http.Request) {
	storeID, err := uuid.Parse(chi.URLParam(r, "store_id"))
	if err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": "invalid store_id"})
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil {
			respond(w, http.StatusBadRequest, map[string]string{"error": "limit must be a number"})
			return
		}
	}
	txs, err := h.service.ListStoreTransactions(r.Context(), storeID, limit)
	if err != nil {
		respond(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if txs == nil {
		txs = []*Transaction{}
	}
	respond(w, http.StatusOK, txs)
}

func (h *Handler) refund(w http.ResponseWriter, r *http.Request) {
	storeID, id, ok := parseIDs(w, r)
	if !ok {
		return
	}
	var req RefundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	tx, err := h.service.RefundTransaction(r.Context(), storeID, id, req)
	if err != nil {
		respond(w, statusFor(err, http.StatusInternalServerError), map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, map[string]interface{}{"transaction": tx, "message": "Transaction refunded"})
}

func parseIDs(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	storeID, err := uuid.Parse(chi.URLParam(r, "store_id"))
	if err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": "invalid store_id"})
		return uuid.Nil, uuid.Nil, false
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": "invalid transaction id"})
		return uuid.Nil, uuid.Nil, false
	}
	return storeID, id, true
}

// statusFor maps service errors to HTTP status codes; anything unrecognised gets
// fallback.
func statusFor(err error, fallback int) int {
	switch {
	case errors.Is(err, ErrEmptyCart), errors.Is(err, ErrInvalidPaymentMethod), errors.Is(err, ErrInvalidAmount):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInsufficientStock), errors.Is(err, ErrCheckoutConflict):
		return http.StatusConflict
	case errors.Is(err, ErrPaymentMethodDisabled), errors.Is(err, ErrInsufficientAmount), errors.Is(err, ErrNotRefundable):
		return http.StatusUnprocessableEntity
	default:
		return fallback
	}
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
