package user

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

type Handler struct {
	service     Service
	currentUser func(context.Context) (uuid.UUID, bool)
}

// NewHandler builds the user endpoints. currentUser resolves the authenticated caller.
func NewHandler(service Service, currentUser func(context.Context) (uuid.UUID, bool)) *Handler {
	return &Handler{service: service, currentUser: currentUser}
}

// RegisterPublicRoutes mounts the endpoints reachable without a token.
func (h *Handler) RegisterPublicRoutes(r chi.Router) {
	r.Post("/api/v1/users/register", h.registerUser) // POST /api/v1/users/register
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/api/v1/users/me/setup-done", h.getSetupDone)  // GET /api/v1/users/me/setup-done
	r.Put("/api/v1/users/me/setup-done", h.markSetupDone) // PUT /api/v1/users/me/setup-done
	r.Get("/api/v1/users/{id}", h.getUser)                // GET /api/v1/users/{id}
}

func (h *Handler) registerUser(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	user, err := h.service.RegisterUser(r.Context(), req)
	switch {
	case errors.Is(err, ErrInvalidEmail), errors.Is(err, ErrWeakPassword):
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	case errors.Is(err, ErrEmailTaken):
		respond(w, http.StatusConflict, map[string]string{"error": err.Error()})
		return
	case err != nil:
		respond(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusCreated, user)
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": "invalid user id"})
		return
	}

	user, err := h.service.GetUser(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		respond(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	if err != nil {
		respond(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, user)
}

func (h *Handler) getSetupDone(w http.ResponseWriter, r *http.Request) {
	id, ok := h.currentUser(r.Context())
	if !ok {
		respond(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}
	done, err := h.service.SetupDone(r.Context(), id)
	if err != nil {
		respond(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, map[string]bool{"setup_done": done})
}

func (h *Handler) markSetupDone(w http.ResponseWriter, r *http.Request) {
	id, ok := h.currentUser(r.Context())
	if !ok {
		respond(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}
	if err := h.service.MarkSetupDone(r.Context(), id); err != nil {
		respond(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, map[string]bool{"setup_done": true})
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
