package cart

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/georgemunganga/printa-pos/internal/modules/money"
	"github.com/georgemunganga/printa-pos/internal/modules/settings"
)

// StoreSettings reads the settings used to format cart amounts.
type StoreSettings interface {
	Get(ctx context.Context, storeID uuid.UUID) settings.StoreSettings
}

// Handler exposes cart HTTP endpoints.
type Handler struct {
	service  Service
	settings StoreSettings
	locale   string
}

func NewHandler(service Service, storeSettings StoreSettings, locale string) *Handler {
	return &Handler{service: service, settings: storeSettings, locale: locale}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/stores/{store_id}/terminals/{terminal_id}/cart", func(r chi.Router) {
		r.Get("/", h.get)
		r.Delete("/", h.clear)

		// Line items
		r.Post("/items", h.addItem)
		r.Patch("/items/{product_id}", h.updateItem)
		r.Delete("/items/{product_id}", h.removeItem)

		// Order-level fields
		r.Put("/customer", h.setCustomer)
		r.Put("/discount", h.setDiscount)
		r.Put("/tax-rate", h.setTaxRate) // body takes a percentage
		r.Put("/notes", h.setNotes)
	})
}

type formattedTotals struct {
	Subtotal string `json:"subtotal"`
	Discount string `json:"discount"`
	Tax      string `json:"tax"`
	Total    string `json:"total"`
}

type cartResponse struct {
	Cart      State           `json:"cart"`
	Totals    Totals          `json:"totals"`
	Formatted formattedTotals `json:"formatted"`
	Message   string          `json:"message,omitempty"`
	Error     string          `json:"error,omitempty"`
}

type addItemRequest struct {
	ProductID     uuid.UUID        `json:"product_id"`
	Quantity      *int             `json:"quantity,omitempty"`
	OverridePrice *decimal.Decimal `json:"override_price,omitempty"`
}

type percentRequest struct {
	Percent decimal.Decimal `json:"percent"`
}

type customerRequest struct {
	CustomerRef *string `json:"customer_ref"`
}

type notesRequest struct {
	Notes string `json:"notes"`
}

func (h *Handler) terminal(w http.ResponseWriter, r *http.Request) (uuid.UUID, string, bool) {
	storeID, err := uuid.Parse(chi.URLParam(r, "store_id"))
	if err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": "invalid store_id"})
		return uuid.Nil, "", false
	}
	terminalID := chi.URLParam(r, "terminal_id")
	if terminalID == "" {
		respond(w, http.StatusBadRequest, map[string]string{"error": "terminal_id is required"})
		return uuid.Nil, "", false
	}
	return storeID, terminalID, true
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	storeID, terminalID, ok := h.terminal(w, r)
	if !ok {
		return
	}
	h.reply(w, r, storeID, h.service.Get(r.Context(), storeID, terminalID), nil, "")
}

func (h *Handler) clear(w http.ResponseWriter, r *http.Request) {
	storeID, terminalID, ok := h.terminal(w, r)
	if !ok {
		return
	}
	state, err := h.service.Clear(r.Context(), storeID, terminalID)
	h.reply(w, r, storeID, state, err, "Cart cleared")
}

func (h *Handler) addItem(w http.ResponseWriter, r *http.Request) {
	storeID, terminalID, ok := h.terminal(w, r)
	if !ok {
		return
	}
	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	qty := 1
	if req.Quantity != nil {
		qty = *req.Quantity
	}
	state, err := h.service.AddItem(r.Context(), storeID, terminalID, req.ProductID, qty, req.OverridePrice)
	h.reply(w, r, storeID, state, err, "Item added")
}

func (h *Handler) updateItem(w http.ResponseWriter, r *http.Request) {
	storeID, terminalID, ok := h.terminal(w, r)
	if !ok {
		return
	}
	productID, err := uuid.Parse(chi.URLParam(r, "product_id"))
	if err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": "invalid product_id"})
		return
	}
	var patch ItemPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	state, err := h.service.UpdateItem(r.Context(), storeID, terminalID, productID, patch)
	h.reply(w, r, storeID, state, err, "Item updated")
}

func (h *Handler) removeItem(w http.ResponseWriter, r *http.Request) {
	storeID, terminalID, ok := h.terminal(w, r)
	if !ok {
		return
	}
	productID, err := uuid.Parse(chi.URLParam(r, "product_id"))
	if err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": "invalid product_id"})
		return
	}
	state, err := h.service.RemoveItem(r.Context(), storeID, terminalID, productID)
	h.reply(w, r, storeID, state, err, "Item removed")
}

func (h *Handler) setCustomer(w http.ResponseWriter, r *http.Request) {
	storeID, terminalID, ok := h.terminal(w, r)
	if !ok {
		return
	}
	var req customerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	state, err := h.service.SetCustomer(r.Context(), storeID, terminalID, req.CustomerRef)
	h.reply(w, r, storeID, state, err, "Customer updated")
}

func (h *Handler) setDiscount(w http.ResponseWriter, r *http.Request) {
	storeID, terminalID, ok := h.terminal(w, r)
	if !ok {
		return
	}
	var req percentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	state, err := h.service.SetDiscount(r.Context(), storeID, terminalID, req.Percent)
	h.reply(w, r, storeID, state, err, "Discount updated")
}

func (h *Handler) setTaxRate(w http.ResponseWriter, r *http.Request) {
	storeID, terminalID, ok := h.terminal(w, r)
	if !ok {
		return
	}
	var req percentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	state, err := h.service.SetTaxRate(r.Context(), storeID, terminalID, req.Percent)
	h.reply(w, r, storeID, state, err, "Tax rate updated")
}

func (h *Handler) setNotes(w http.ResponseWriter, r *http.Request) {
	storeID, terminalID, ok := h.terminal(w, r)
	if !ok {
		return
	}
	var req notesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	state, err := h.service.SetNotes(r.Context(), storeID, terminalID, req.Notes)
	h.reply(w, r, storeID, state, err, "Notes updated")
}

// reply writes the cart with its totals. On error the body still carries the cart so
// the terminal can re-render it next to the message.
func (h *Handler) reply(w http.ResponseWriter, r *http.Request, storeID uuid.UUID, state State, err error, message string) {
	totals := state.Totals()
	f := money.NewFormatter(h.settings.Get(r.Context(), storeID), h.locale)
	body := cartResponse{
		Cart:   state,
		Totals: totals,
		Formatted: formattedTotals{
			Subtotal: f.Amount(totals.Subtotal),
			Discount: f.Amount(totals.DiscountAmount),
			Tax:      f.Amount(totals.TaxAmount),
			Total:    f.Amount(totals.Total),
		},
	}
	if err != nil {
		body.Error = err.Error()
		respond(w, statusFor(err), body)
		return
	}
	body.Message = message
	respond(w, http.StatusOK, body)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrInvalidQuantity), errors.Is(err, ErrInvalidPrice):
		return http.StatusBadRequest
	case errors.Is(err, ErrItemNotFound), errors.Is(err, ErrProductNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInsufficientStock):
		return http.StatusConflict
	case errors.Is(err, ErrNotPersisted):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
