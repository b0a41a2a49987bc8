package inventory

import (
	"context"

	"github.com/google/uuid"
)

// StoreRepository defines store data storage.
type StoreRepository interface {
	CreateStore(ctx context.Context, s *Store) error
	GetStoreByID(ctx context.Context, id uuid.UUID) (*Store, error)
	ListStoresByOwner(ctx context.Context, ownerID uuid.UUID) ([]*Store, error)
}

// ProductRepository defines product data storage. Every lookup is scoped to a store.
type ProductRepository interface {
	AddProduct(ctx context.Context, p *Product) error
	GetProduct(ctx context.Context, storeID, id uuid.UUID) (*Product, error)
	// ListProducts returns active products; search matches name or sku when not empty.
	ListProducts(ctx context.Context, storeID uuid.UUID, search string) ([]*Product, error)
	UpdateProduct(ctx context.Context, p *Product) error
	DeactivateProduct(ctx context.Context, storeID, id uuid.UUID) error
	// AdjustStock applies delta and records it in the adjustment log in one transaction.
	AdjustStock(ctx context.Context, storeID, id uuid.UUID, adj StockAdjustment) (*Product, error)
	ListLowStock(ctx context.Context, storeID uuid.UUID) ([]*Product, error)
}
