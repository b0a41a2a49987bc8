package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

var (
	ErrStoreNotFound   = errors.New("store not found")
	ErrProductNotFound = errors.New("product not found")
	ErrInvalidStore    = errors.New("invalid store")
	ErrInvalidProduct  = errors.New("invalid product")
	ErrDuplicateSKU    = errors.New("a product with this sku already exists in the store")
	ErrNegativeStock   = errors.New("stock cannot go below zero")
	ErrZeroAdjustment  = errors.New("adjustment delta must not be zero")
)

// Store is a shop with one or more terminals, owned by the user who created it.
type Store struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   uuid.UUID `json:"owner_id"`
	Name      string    `json:"name"`
	Address   string    `json:"address,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Email     string    `json:"email,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Product is an item a store sells at the counter.
type Product struct {
	ID            uuid.UUID       `json:"id"`
	StoreID       uuid.UUID       `json:"store_id"`
	CategoryID    *uuid.UUID      `json:"category_id,omitempty"`
	CategoryName  string          `json:"category_name,omitempty"`
	Name          string          `json:"name"`
	SKU           string          `json:"sku,omitempty"`
	SellingPrice  decimal.Decimal `json:"selling_price"`
	StockQuantity int             `json:"stock_quantity"`
	MinStockLevel int             `json:"min_stock_level"`
	ImageRef      string          `json:"image_ref,omitempty"`
	IsActive      bool            `json:"is_active"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// LowStock reports whether the product is at or below its minimum level.
func (p *Product) LowStock() bool {
	return p.StockQuantity <= p.MinStockLevel
}

// StockAdjustment is a manual stock correction.
type StockAdjustment struct {
	Delta  int    `json:"delta"`
	Reason string `json:"reason"`
}
