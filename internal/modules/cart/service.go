package cart

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/georgemunganga/printa-pos/internal/modules/localcache"
)

// ProductLookup reads the catalog snapshot of a product. Missing or inactive products
// are reported as ErrProductNotFound.
type ProductLookup interface {
	CartProduct(ctx context.Context, storeID, productID uuid.UUID) (*Product, error)
}

// TaxRates supplies a store's current tax rate as a fraction.
type TaxRates interface {
	TaxRate(ctx context.Context, storeID uuid.UUID) decimal.Decimal
}

// Service defines cart operations for a terminal of a store.
type Service interface {
	Get(ctx context.Context, storeID uuid.UUID, terminalID string) State
	AddItem(ctx context.Context, storeID uuid.UUID, terminalID string, productID uuid.UUID, qty int, overridePrice *decimal.Decimal) (State, error)
	UpdateItem(ctx context.Context, storeID uuid.UUID, terminalID string, productID uuid.UUID, patch ItemPatch) (State, error)
	RemoveItem(ctx context.Context, storeID uuid.UUID, terminalID string, productID uuid.UUID) (State, error)
	Clear(ctx context.Context, storeID uuid.UUID, terminalID string) (State, error)
	SetCustomer(ctx context.Context, storeID uuid.UUID, terminalID string, customerRef *string) (State, error)
	SetDiscount(ctx context.Context, storeID uuid.UUID, terminalID string, percent decimal.Decimal) (State, error)
	SetTaxRate(ctx context.Context, storeID uuid.UUID, terminalID string, percent decimal.Decimal) (State, error)
	SetNotes(ctx context.Context, storeID uuid.UUID, terminalID string, notes string) (State, error)
}

// idleAfter is how long a terminal's cart stays in memory unused. After that it is
// dropped and read back from the cache on next use, which also picks up changes
// written by another API instance.
const idleAfter = 5 * time.Minute

type openStore struct {
	store    *Store
	lastUsed time.Time
}

type service struct {
	products ProductLookup
	taxes    TaxRates
	cache    localcache.Cache
	log      log.FieldLogger
	now      func() time.Time

	mu        sync.Mutex
	stores    map[string]*openStore
	lastSweep time.Time
}

func NewService(products ProductLookup, taxes TaxRates, cache localcache.Cache, logger log.FieldLogger) Service {
	return &service{
		products: products,
		taxes:    taxes,
		cache:    cache,
		log:      logger,
		now:      time.Now,
		stores:   make(map[string]*openStore),
	}
}

// store returns the terminal's Store, restoring it from the cache on first use and
// after it has been idle.
func (s *service) store(ctx context.Context, storeID uuid.UUID, terminalID string) *Store {
	key := localcache.CartKey(storeID, terminalID)
	now := s.now()

	s.mu.Lock()
	s.evictIdle(now)
	if o, ok := s.stores[key]; ok && now.Sub(o.lastUsed) < idleAfter {
		o.lastUsed = now
		s.mu.Unlock()
		return o.store
	}
	s.mu.Unlock()

	opened := OpenStore(ctx, s.cache, key, Empty(s.taxes.TaxRate(ctx, storeID)), s.log)

	s.mu.Lock()
	defer s.mu.Unlock()
	if o, ok := s.stores[key]; ok && now.Sub(o.lastUsed) < idleAfter {
		o.lastUsed = now
		return o.store
	}
	s.stores[key] = &openStore{store: opened, lastUsed: now}
	return opened
}

// evictIdle drops stores unused for idleAfter, sweeping at most once per idleAfter.
// s.mu must be held.
func (s *service) evictIdle(now time.Time) {
	if now.Sub(s.lastSweep) < idleAfter {
		return
	}
	for key, o := range s.stores {
		if now.Sub(o.lastUsed) >= idleAfter {
			delete(s.stores, key)
		}
	}
	s.lastSweep = now
}

func (s *service) Get(ctx context.Context, storeID uuid.UUID, terminalID string) State {
	return s.store(ctx, storeID, terminalID).State()
}

func (s *service) AddItem(ctx context.Context, storeID uuid.UUID, terminalID string, productID uuid.UUID, qty int, overridePrice *decimal.Decimal) (State, error) {
	st := s.store(ctx, storeID, terminalID)
	p, err := s.products.CartProduct(ctx, storeID, productID)
	if err != nil {
		return st.State(), err
	}
	return st.Dispatch(ctx, AddItem{Product: *p, Quantity: qty, OverridePrice: overridePrice})
}

func (s *service) UpdateItem(ctx context.Context, storeID uuid.UUID, terminalID string, productID uuid.UUID, patch ItemPatch) (State, error) {
	return s.store(ctx, storeID, terminalID).Dispatch(ctx, UpdateItem{ProductID: productID, Patch: patch})
}

func (s *service) RemoveItem(ctx context.Context, storeID uuid.UUID, terminalID string, productID uuid.UUID) (State, error) {
	return s.store(ctx, storeID, terminalID).Dispatch(ctx, RemoveItem{ProductID: productID})
}

// Clear empties the cart and resets its tax rate to the store's current setting.
func (s *service) Clear(ctx context.Context, storeID uuid.UUID, terminalID string) (State, error) {
	return s.store(ctx, storeID, terminalID).Dispatch(ctx, ClearCart{TaxRate: s.taxes.TaxRate(ctx, storeID)})
}

func (s *service) SetCustomer(ctx context.Context, storeID uuid.UUID, terminalID string, customerRef *string) (State, error) {
	return s.store(ctx, storeID, terminalID).Dispatch(ctx, SetCustomer{CustomerRef: customerRef})
}

func (s *service) SetDiscount(ctx context.Context, storeID uuid.UUID, terminalID string, percent decimal.Decimal) (State, error) {
	return s.store(ctx, storeID, terminalID).Dispatch(ctx, SetDiscount{Percent: percent})
}

func (s *service) SetTaxRate(ctx context.Context, storeID uuid.UUID, terminalID string, percent decimal.Decimal) (State, error) {
	return s.store(ctx, storeID, terminalID).Dispatch(ctx, SetTaxRate{Percent: percent})
}

func (s *service) SetNotes(ctx context.Context, storeID uuid.UUID, terminalID string, notes string) (State, error) {
	return s.store(ctx, storeID, terminalID).Dispatch(ctx, SetNotes{Notes: notes})
}
