package settings

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var ErrNotFound = errors.New("store settings not found")

// Repository defines remote storage for store settings. Get returns only the columns
// the remote row actually holds; absent columns stay nil in the patch.
type Repository interface {
	Get(ctx context.Context, storeID uuid.UUID) (*Patch, error)
	Upsert(ctx context.Context, s StoreSettings) error
}
