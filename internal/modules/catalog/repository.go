package catalog

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the interface for category data storage.
type Repository interface {
	Create(ctx context.Context, c *Category) error
	GetByID(ctx context.Context, storeID, id uuid.UUID) (*Category, error)
	List(ctx context.Context, storeID uuid.UUID) ([]*Category, error)
	Update(ctx context.Context, c *Category) error
	// Delete removes the category; its products become uncategorised.
	Delete(ctx context.Context, storeID, id uuid.UUID) error
}
