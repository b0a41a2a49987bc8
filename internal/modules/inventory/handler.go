package inventory

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Handler exposes inventory HTTP endpoints.
type Handler struct {
	service     Service
	currentUser func(context.Context) (uuid.UUID, bool)
}

// NewHandler builds the inventory endpoints. currentUser resolves the store owner.
func NewHandler(service Service, currentUser func(context.Context) (uuid.UUID, bool)) *Handler {
	return &Handler{service: service, currentUser: currentUser}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/inventory", func(r chi.Router) {
		// Store endpoints
		r.Post("/stores", h.createStore)
		r.Get("/stores", h.listStores) // stores owned by the caller

		r.Group(func(r chi.Router) {
			r.Use(RequireStoreOwner(h.service, h.currentUser))
			r.Get("/stores/{store_id}", h.getStore)

			// Product endpoints
			r.Post("/stores/{store_id}/products", h.addProduct)
			r.Get("/stores/{store_id}/products", h.listProducts) // ?q=name or sku
			r.Get("/stores/{store_id}/products/low-stock", h.listLowStock)
			r.Get("/stores/{store_id}/products/{id}", h.getProduct)
			r.Patch("/stores/{store_id}/products/{id}", h.updateProduct)
			r.Delete("/stores/{store_id}/products/{id}", h.deleteProduct)
			r.Post("/stores/{store_id}/products/{id}/stock-adjustments", h.adjustStock)
		})
	})
}

func (h *Handler) createStore(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.currentUser(r.Context())
	if !ok {
		respond(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}
	var req CreateStoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	store, err := h.service.CreateStore(r.Context(), ownerID, req)
	if err != nil {
		respond(w, statusFor(err), map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusCreated, store)
}

func (h *Handler) getStore(w http.ResponseWriter, r *http.Request) {
	storeID, ok := urlUUID(w, r, "store_id")
	if !ok {
		return
	}
	store, err := h.service.GetStore(r.Context(), storeID)
	if err != nil {
		respond(w, statusFor(err), map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, store)
}

func (h *Handler) listStores(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.currentUser(r.Context())
	if !ok {
		respond(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}
	stores, err := h.service.ListStores(r.Context(), ownerID)
	if err != nil {
		respond(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if stores == nil {
		stores = []*Store{}
	}
	respond(w, http.StatusOK, stores)
}

func (h *Handler) addProduct(w http.ResponseWriter, r *http.Request) {
	storeID, ok := urlUUID(w, r, "store_id")
	if !ok {
		return
	}
	var req AddProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	p, err := h.service.AddProduct(r.Context(), storeID, req)
	if err != nil {
		respond(w, statusFor(err), map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusCreated, p)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	storeID, ok := urlUUID(w, r, "store_id")
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}
	p, err := h.service.GetProduct(r.Context(), storeID, id)
	if err != nil {
		respond(w, statusFor(err), map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, p)
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	storeID, ok := urlUUID(w, r, "store_id")
	if !ok {
		return
	}
	products, err := h.service.ListProducts(r.Context(), storeID, r.URL.Query().Get("q"))
	if err != nil {
		respond(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if products == nil {
		products = []*Product{}
	}
	respond(w, http.StatusOK, products)
}

func (h *Handler) listLowStock(w http.ResponseWriter, r *http.Request) {
	storeID, ok := urlUUID(w, r, "store_id")
	if !ok {
		return
	}
	products, err := h.service.ListLowStock(r.Context(), storeID)
	if err != nil {
		respond(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if products == nil {
		products = []*Product{}
	}
	respond(w, http.StatusOK, products)
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	storeID, ok := urlUUID(w, r, "store_id")
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}
	var req UpdateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	p, err := h.service.UpdateProduct(r.Context(), storeID, id, req)
	if err != nil {
		respond(w, statusFor(err), map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, p)
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	storeID, ok := urlUUID(w, r, "store_id")
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteProduct(r.Context(), storeID, id); err != nil {
		respond(w, statusFor(err), map[string]string{"error": err.Error()})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) adjustStock(w http.ResponseWriter, r *http.Request) {
	storeID, ok := urlUUID(w, r, "store_id")
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}
	var adj StockAdjustment
	if err := json.NewDecoder(r.Body).Decode(&adj); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	p, err := h.service.AdjustStock(r.Context(), storeID, id, adj)
	if err != nil {
		respond(w, statusFor(err), map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, p)
}

func urlUUID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": "invalid " + param})
		return uuid.Nil, false
	}
	return id, true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrStoreNotFound), errors.Is(err, ErrProductNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidStore), errors.Is(err, ErrInvalidProduct), errors.Is(err, ErrZeroAdjustment):
		return http.StatusBadRequest
	case errors.Is(err, ErrDuplicateSKU), errors.Is(err, ErrNegativeStock):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
