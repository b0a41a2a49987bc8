package inventory

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/georgemunganga/printa-pos/internal/modules/cart"
)

// Service defines inventory business logic for stores and their products.
type Service interface {
	// Store operations
	CreateStore(ctx context.Context, ownerID uuid.UUID, req CreateStoreRequest) (*Store, error)
	GetStore(ctx context.Context, id uuid.UUID) (*Store, error)
	ListStores(ctx context.Context, ownerID uuid.UUID) ([]*Store, error)

	// Product operations
	AddProduct(ctx context.Context, storeID uuid.UUID, req AddProductRequest) (*Product, error)
	GetProduct(ctx context.Context, storeID, id uuid.UUID) (*Product, error)
	ListProducts(ctx context.Context, storeID uuid.UUID, search string) ([]*Product, error)
	UpdateProduct(ctx context.Context, storeID, id uuid.UUID, req UpdateProductRequest) (*Product, error)
	DeleteProduct(ctx context.Context, storeID, id uuid.UUID) error
	AdjustStock(ctx context.Context, storeID, id uuid.UUID, adj StockAdjustment) (*Product, error)
	ListLowStock(ctx context.Context, storeID uuid.UUID) ([]*Product, error)

	// CartProduct snapshots an active product for a cart line.
	CartProduct(ctx context.Context, storeID, productID uuid.UUID) (*cart.Product, error)
}

// CreateStoreRequest holds data for creating a store.
type CreateStoreRequest struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
}

// AddProductRequest holds data for adding a product to a store.
type AddProductRequest struct {
	CategoryID    *uuid.UUID      `json:"category_id"`
	Name          string          `json:"name"`
	SKU           string          `json:"sku"`
	SellingPrice  decimal.Decimal `json:"selling_price"`
	StockQuantity int             `json:"stock_quantity"`
	MinStockLevel int             `json:"min_stock_level"`
	ImageRef      string          `json:"image_ref"`
}

// UpdateProductRequest changes the present fields of a product. Stock moves through
// AdjustStock only.
type UpdateProductRequest struct {
	CategoryID    *uuid.UUID       `json:"category_id"`
	ClearCategory bool             `json:"clear_category"`
	Name          *string          `json:"name"`
	SKU           *string          `json:"sku"`
	SellingPrice  *decimal.Decimal `json:"selling_price"`
	MinStockLevel *int             `json:"min_stock_level"`
	ImageRef      *string          `json:"image_ref"`
	IsActive      *bool            `json:"is_active"`
}

type service struct {
	storeRepo   StoreRepository
	productRepo ProductRepository
	log         log.FieldLogger
}

// NewService creates a new inventory service.
func NewService(storeRepo StoreRepository, productRepo ProductRepository, logger log.FieldLogger) Service {
	return &service{
		storeRepo:   storeRepo,
		productRepo: productRepo,
		log:         logger,
	}
}

func (s *service) CreateStore(ctx context.Context, ownerID uuid.UUID, req CreateStoreRequest) (*Store, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, errors.Wrap(ErrInvalidStore, "name is required")
	}
	store := &Store{
		ID:       uuid.New(),
		OwnerID:  ownerID,
		Name:     name,
		Address:  strings.TrimSpace(req.Address),
		Phone:    strings.TrimSpace(req.Phone),
		Email:    strings.TrimSpace(req.Email),
		IsActive: true,
	}
	if err := s.storeRepo.CreateStore(ctx, store); err != nil {
		return nil, err
	}
	s.log.WithFields(log.Fields{"store_id": store.ID, "owner_id": ownerID}).Info("store created")
	return store, nil
}

func (s *service) GetStore(ctx context.Context, id uuid.UUID) (*Store, error) {
	return s.storeRepo.GetStoreByID(ctx, id)
}

func (s *service) ListStores(ctx context.Context, ownerID uuid.UUID) ([]*Store, error) {
	return s.storeRepo.ListStoresByOwner(ctx, ownerID)
}

func (s *service) AddProduct(ctx context.Context, storeID uuid.UUID, req AddProductRequest) (*Product, error) {
	p := &Product{
		ID:            uuid.New(),
		StoreID:       storeID,
		CategoryID:    req.CategoryID,
		Name:          strings.TrimSpace(req.Name),
		SKU:           strings.TrimSpace(req.SKU),
		SellingPrice:  req.SellingPrice.Round(2),
		StockQuantity: req.StockQuantity,
		MinStockLevel: req.MinStockLevel,
		ImageRef:      req.ImageRef,
		IsActive:      true,
	}
	if err := validateProduct(p); err != nil {
		return nil, err
	}
	if err := s.productRepo.AddProduct(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *service) GetProduct(ctx context.Context, storeID, id uuid.UUID) (*Product, error) {
	return s.productRepo.GetProduct(ctx, storeID, id)
}

func (s *service) ListProducts(ctx context.Context, storeID uuid.UUID, search string) ([]*Product, error) {
	return s.productRepo.ListProducts(ctx, storeID, strings.TrimSpace(search))
}

func (s *service) UpdateProduct(ctx context.Context, storeID, id uuid.UUID, req UpdateProductRequest) (*Product, error) {
	p, err := s.productRepo.GetProduct(ctx, storeID, id)
	if err != nil {
		return nil, err
	}
	switch {
	case req.ClearCategory:
		p.CategoryID = nil
	case req.CategoryID != nil:
		p.CategoryID = req.CategoryID
	}
	if req.Name != nil {
		p.Name = strings.TrimSpace(*req.Name)
	}
	if req.SKU != nil {
		p.SKU = strings.TrimSpace(*req.SKU)
	}
	if req.SellingPrice != nil {
		p.SellingPrice = req.SellingPrice.Round(2)
	}
	if req.MinStockLevel != nil {
		p.MinStockLevel = *req.MinStockLevel
	}
	if req.ImageRef != nil {
		p.ImageRef = *req.ImageRef
	}
	if req.IsActive != nil {
		p.IsActive = *req.IsActive
	}
	if err := validateProduct(p); err != nil {
		return nil, err
	}
	if err := s.productRepo.UpdateProduct(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *service) DeleteProduct(ctx context.Context, storeID, id uuid.UUID) error {
	return s.productRepo.DeactivateProduct(ctx, storeID, id)
}

func (s *service) AdjustStock(ctx context.Context, storeID, id uuid.UUID, adj StockAdjustment) (*Product, error) {
	if adj.Delta == 0 {
		return nil, ErrZeroAdjustment
	}
	adj.Reason = strings.TrimSpace(adj.Reason)
	p, err := s.productRepo.AdjustStock(ctx, storeID, id, adj)
	if err != nil {
		return nil, err
	}
	logger := s.log.WithFields(log.Fields{"store_id": storeID, "product_id": id, "delta": adj.Delta})
	logger.Info("stock adjusted")
	if p.LowStock() {
		logger.WithField("stock", p.StockQuantity).Warn("low stock")
	}
	return p, nil
}

func (s *service) ListLowStock(ctx context.Context, storeID uuid.UUID) ([]*Product, error) {
	return s.productRepo.ListLowStock(ctx, storeID)
}

func (s *service) CartProduct(ctx context.Context, storeID, productID uuid.UUID) (*cart.Product, error) {
	p, err := s.productRepo.GetProduct(ctx, storeID, productID)
	if errors.Is(err, ErrProductNotFound) {
		return nil, cart.ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	if !p.IsActive {
		return nil, cart.ErrProductNotFound
	}
	return &cart.Product{
		ID:            p.ID,
		Name:          p.Name,
		SKU:           p.SKU,
		Category:      p.CategoryName,
		ImageRef:      p.ImageRef,
		SellingPrice:  p.SellingPrice,
		StockQuantity: p.StockQuantity,
	}, nil
}

func validateProduct(p *Product) error {
	switch {
	case p.Name == "":
		return errors.Wrap(ErrInvalidProduct, "name is required")
	case p.SellingPrice.IsNegative():
		return errors.Wrap(ErrInvalidProduct, "selling_price cannot be negative")
	case p.StockQuantity < 0:
		return errors.Wrap(ErrInvalidProduct, "stock_quantity cannot be negative")
	case p.MinStockLevel < 0:
		return errors.Wrap(ErrInvalidProduct, "min_stock_level cannot be negative")
	}
	return nil
}
