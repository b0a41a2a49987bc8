package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var (
	ErrNotFound      = errors.New("category not found")
	ErrDuplicateName = errors.New("a category with this name already exists in the store")
	ErrInvalidName   = errors.New("category name is required")
)

// Category groups a store's products on the sales screen.
type Category struct {
	ID           uuid.UUID `json:"id"`
	StoreID      uuid.UUID `json:"store_id"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	ProductCount int       `json:"product_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
