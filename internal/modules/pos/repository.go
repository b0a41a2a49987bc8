package pos

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines data access for POS transactions.
type Repository interface {
	// RecordSale stores tx with its items and decrements stock for every item in one
	// database transaction. A second call with the same store and idempotency key
	// returns the first sale with Replayed set.
	RecordSale(ctx context.Context, tx *Transaction) (*SaleResult, error)
	// GetByIdempotencyKey returns the sale recorded under key, or ErrNotFound.
	GetByIdempotencyKey(ctx context.Context, storeID uuid.UUID, key string) (*Transaction, error)
	GetByID(ctx context.Context, storeID, id uuid.UUID) (*Transaction, error)
	ListByStore(ctx context.Context, storeID uuid.UUID, limit int) ([]*Transaction, error)
	// Refund marks a COMPLETED transaction REFUNDED and puts its items back in stock.
	Refund(ctx context.Context, storeID, id uuid.UUID, reason string) (*Transaction, error)
}
