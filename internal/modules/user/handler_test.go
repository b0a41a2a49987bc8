package user

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

func newTestRouter(t *testing.T, caller uuid.UUID) *chi.Mux {
	svc, _ := newTestService(t)
	h := NewHandler(svc, func(context.Context) (uuid.UUID, bool) {
		return caller, caller != uuid.Nil
	})
	r := chi.NewRouter()
	h.RegisterPublicRoutes(r)
	h.RegisterRoutes(r)
	return r
}

func serve(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, path, strings.NewReader(body)))
	return w
}

func TestHandler_RegisterAndGet(t *testing.T) {
	r := newTestRouter(t, uuid.Nil)

	w := serve(r, http.MethodPost, "/api/v1/users/register", `{"email":"owner@shop.example","password":"password1"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.NotContains(t, w.Body.String(), "password")

	var created User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = serve(r, http.MethodGet, "/api/v1/users/"+created.ID.String(), "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(r, http.MethodPost, "/api/v1/users/register", `{"email":"owner@shop.example","password":"password2"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestHandler_Errors(t *testing.T) {
	r := newTestRouter(t, uuid.Nil)

	assert.Equal(t, http.StatusBadRequest, serve(r, http.MethodPost, "/api/v1/users/register", `{"email":"x","password":"password1"}`).Code)
	assert.Equal(t, http.StatusBadRequest, serve(r, http.MethodPost, "/api/v1/users/register", `not json`).Code)
	assert.Equal(t, http.StatusBadRequest, serve(r, http.MethodGet, "/api/v1/users/abc", "").Code)
	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodGet, "/api/v1/users/"+uuid.New().String(), "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/api/v1/users/me/setup-done", "").Code)
}

func TestHandler_SetupDone(t *testing.T) {
	r := newTestRouter(t, uuid.New())

	w := serve(r, http.MethodGet, "/api/v1/users/me/setup-done", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"setup_done":false}`, w.Body.String())

	w = serve(r, http.MethodPut, "/api/v1/users/me/setup-done", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = serve(r, http.MethodGet, "/api/v1/users/me/setup-done", "")
	assert.JSONEq(t, `{"setup_done":true}`, w.Body.String())
}
