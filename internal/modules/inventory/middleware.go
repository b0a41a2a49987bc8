package inventory

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// StoreGetter loads a store by id.
type StoreGetter interface {
	GetStore(ctx context.Context, id uuid.UUID) (*Store, error)
}

// RequireStoreOwner rejects requests whose {store_id} route parameter names a store the
// caller does not own. Routes without the parameter pass through. It must wrap handlers
// registered after the parameter is matched (chi Group or With).
func RequireStoreOwner(stores StoreGetter, currentUser func(context.Context) (uuid.UUID, bool)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			param := chi.URLParam(r, "store_id")
			if param == "" {
				next.ServeHTTP(w, r)
				return
			}
			storeID, err := uuid.Parse(param)
			if err != nil {
				respond(w, http.StatusBadRequest, map[string]string{"error": "invalid store_id"})
				return
			}
			userID, ok := currentUser(r.Context())
			if !ok {
				respond(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
				return
			}

			store, err := stores.GetStore(r.Context(), storeID)
			switch {
			case errors.Is(err, ErrStoreNotFound):
				respond(w, http.StatusNotFound, map[string]string{"error": err.Error()})
				return
			case err != nil:
				respond(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
				return
			case store.OwnerID != userID:
				respond(w, http.StatusForbidden, map[string]string{"error": "store belongs to another account"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
