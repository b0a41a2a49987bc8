package settings

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Service is the part of the Provider the HTTP layer uses.
type Service interface {
	Load(ctx context.Context, storeID uuid.UUID) (StoreSettings, Source)
	Save(ctx context.Context, storeID uuid.UUID, patch Patch) (StoreSettings, error)
}

// Handler exposes store settings endpoints.
type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/stores/{store_id}/settings", func(r chi.Router) {
		r.Get("/", h.get) // GET /api/v1/stores/{store_id}/settings
		r.Put("/", h.put) // PUT /api/v1/stores/{store_id}/settings
	})
}

type settingsResponse struct {
	Settings Form   `json:"settings"`
	Source   Source `json:"source,omitempty"`
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	storeID, err := uuid.Parse(chi.URLParam(r, "store_id"))
	if err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": "invalid store_id"})
		return
	}
	s, source := h.service.Load(r.Context(), storeID)
	respond(w, http.StatusOK, settingsResponse{Settings: FormFrom(s), Source: source})
}

func (h *Handler) put(w http.ResponseWriter, r *http.Request) {
	storeID, err := uuid.Parse(chi.URLParam(r, "store_id"))
	if err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": "invalid store_id"})
		return
	}
	var form Form
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	patch, err := form.Patch()
	if err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	s, err := h.service.Save(r.Context(), storeID, patch)
	if errors.Is(err, ErrRemoteSave) {
		respond(w, http.StatusBadGateway, settingsResponse{Settings: FormFrom(s), Error: err.Error()})
		return
	}
	if err != nil {
		respond(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, settingsResponse{Settings: FormFrom(s), Message: "Settings saved"})
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
