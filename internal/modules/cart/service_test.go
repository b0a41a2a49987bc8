package cart

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/georgemunganga/printa-pos/internal/modules/localcache"
)

type mockProducts struct {
	products map[uuid.UUID]Product
}

func (m *mockProducts) CartProduct(_ context.Context, _ uuid.UUID, productID uuid.UUID) (*Product, error) {
	p, ok := m.products[productID]
	if !ok {
		return nil, ErrProductNotFound
	}
	return &p, nil
}

type fixedTax struct {
	mu   sync.Mutex
	rate decimal.Decimal
}

func (f *fixedTax) TaxRate(context.Context, uuid.UUID) decimal.Decimal {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rate
}

func (f *fixedTax) set(rate string) {
	f.mu.Lock()
	f.rate = dec(rate)
	f.mu.Unlock()
}

func newTestService(t *testing.T, products ...Product) (Service, *fixedTax, localcache.Cache) {
	cache, _ := setupTestCache(t)
	logger, _ := test.NewNullLogger()
	lookup := &mockProducts{products: make(map[uuid.UUID]Product)}
	for _, p := range products {
		lookup.products[p.ID] = p
	}
	taxes := &fixedTax{rate: dec("0.1")}
	return NewService(lookup, taxes, cache, logger), taxes, cache
}

func TestService_NewCartUsesStoreTaxRate(t *testing.T) {
	svc, _, _ := newTestService(t)

	s := svc.Get(context.Background(), uuid.New(), "T1")

	assert.True(t, s.IsEmpty())
	assert.True(t, s.TaxRate.Equal(dec("0.1")))
}

func TestService_AddItemLoadsProduct(t *testing.T) {
	p := Product{ID: uuid.New(), Name: "Notebook", SellingPrice: dec("10"), StockQuantity: 5}
	svc, _, _ := newTestService(t, p)
	ctx := context.Background()
	storeID := uuid.New()

	s, err := svc.AddItem(ctx, storeID, "T1", p.ID, 2, nil)
	require.NoError(t, err)
	assert.True(t, s.Totals().Total.Equal(dec("22")))

	_, err = svc.AddItem(ctx, storeID, "T1", uuid.New(), 1, nil)
	assert.ErrorIs(t, err, ErrProductNotFound)
	assert.Len(t, svc.Get(ctx, storeID, "T1").Items, 1)
}

func TestService_TerminalsAreIsolated(t *testing.T) {
	p := Product{ID: uuid.New(), Name: "Ruler", SellingPrice: dec("2"), StockQuantity: 5}
	svc, _, _ := newTestService(t, p)
	ctx := context.Background()
	storeID := uuid.New()

	_, err := svc.AddItem(ctx, storeID, "T1", p.ID, 1, nil)
	require.NoError(t, err)

	assert.True(t, svc.Get(ctx, storeID, "T2").IsEmpty())
	assert.True(t, svc.Get(ctx, uuid.New(), "T1").IsEmpty())
}

func TestService_ClearRederivesTaxRate(t *testing.T) {
	p := Product{ID: uuid.New(), Name: "Bag", SellingPrice: dec("3"), StockQuantity: 5}
	svc, taxes, _ := newTestService(t, p)
	ctx := context.Background()
	storeID := uuid.New()

	_, err := svc.AddItem(ctx, storeID, "T1", p.ID, 1, nil)
	require.NoError(t, err)
	_, err = svc.SetTaxRate(ctx, storeID, "T1", dec("5"))
	require.NoError(t, err)

	taxes.set("0.16")
	s, err := svc.Clear(ctx, storeID, "T1")
	require.NoError(t, err)

	assert.True(t, s.IsEmpty())
	assert.True(t, s.TaxRate.Equal(dec("0.16")))
}

func TestService_SettersAndRestore(t *testing.T) {
	svc, _, cache := newTestService(t)
	ctx := context.Background()
	storeID := uuid.New()
	ref := "C-7"

	_, err := svc.SetCustomer(ctx, storeID, "T1", &ref)
	require.NoError(t, err)
	_, err = svc.SetDiscount(ctx, storeID, "T1", dec("150"))
	require.NoError(t, err)
	s, err := svc.SetNotes(ctx, storeID, "T1", "deliver friday")
	require.NoError(t, err)

	assert.Equal(t, "C-7", *s.CustomerRef)
	assert.True(t, s.DiscountPercent.Equal(dec("100")))

	// a fresh service over the same cache sees the persisted cart
	logger, _ := test.NewNullLogger()
	restarted := NewService(&mockProducts{}, &fixedTax{}, cache, logger)
	assert.True(t, restarted.Get(ctx, storeID, "T1").Equal(s))
}

func TestService_UpdateAndRemove(t *testing.T) {
	p := Product{ID: uuid.New(), Name: "Toner", SellingPrice: dec("40"), StockQuantity: 4}
	svc, _, _ := newTestService(t, p)
	ctx := context.Background()
	storeID := uuid.New()

	_, err := svc.AddItem(ctx, storeID, "T1", p.ID, 1, nil)
	require.NoError(t, err)

	s, err := svc.UpdateItem(ctx, storeID, "T1", p.ID, ItemPatch{Quantity: intPtr(4)})
	require.NoError(t, err)
	assert.Equal(t, 4, s.Items[0].Quantity)

	s, err = svc.RemoveItem(ctx, storeID, "T1", p.ID)
	require.NoError(t, err)
	assert.True(t, s.IsEmpty())
}

func TestService_ConcurrentAddsAreSerialised(t *testing.T) {
	p := Product{ID: uuid.New(), Name: "Bead", SellingPrice: dec("0.1"), StockQuantity: 1000}
	svc, _, _ := newTestService(t, p)
	ctx := context.Background()
	storeID := uuid.New()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.AddItem(ctx, storeID, "T1", p.ID, 1, nil)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	s := svc.Get(ctx, storeID, "T1")
	require.Len(t, s.Items, 1)
	assert.Equal(t, 20, s.Items[0].Quantity)
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestService_IdleCartIsReloadedFromCache(t *testing.T) {
	pen := Product{ID: uuid.New(), Name: "Pen", SellingPrice: dec("1"), StockQuantity: 5}
	pad := Product{ID: uuid.New(), Name: "Pad", SellingPrice: dec("4"), StockQuantity: 5}
	svc, _, cache := newTestService(t, pen)
	c := &clock{t: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)}
	svc.(*service).now = c.now
	ctx := context.Background()
	storeID := uuid.New()

	_, err := svc.AddItem(ctx, storeID, "T1", pen.ID, 1, nil)
	require.NoError(t, err)

	// another instance serves the terminal and persists its own cart
	other, err := Reduce(Empty(dec("0.1")), AddItem{Product: pad, Quantity: 2})
	require.NoError(t, err)
	require.NoError(t, cache.Set(ctx, localcache.CartKey(storeID, "T1"), other))

	c.advance(time.Minute)
	assert.Equal(t, "Pen", svc.Get(ctx, storeID, "T1").Items[0].Name, "recently used cart is served from memory")

	c.advance(idleAfter)
	s := svc.Get(ctx, storeID, "T1")
	require.Len(t, s.Items, 1)
	assert.Equal(t, "Pad", s.Items[0].Name)
	assert.Equal(t, 2, s.Items[0].Quantity)
}

func TestService_IdleCartsAreEvicted(t *testing.T) {
	svc, _, _ := newTestService(t)
	c := &clock{t: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)}
	impl := svc.(*service)
	impl.now = c.now
	ctx := context.Background()
	storeID := uuid.New()

	for _, terminal := range []string{"T1", "T2", "T3"} {
		svc.Get(ctx, storeID, terminal)
	}
	require.Len(t, impl.stores, 3)

	c.advance(idleAfter + time.Second)
	svc.Get(ctx, storeID, "T4")

	assert.Len(t, impl.stores, 1)
	assert.Contains(t, impl.stores, localcache.CartKey(storeID, "T4"))
}
