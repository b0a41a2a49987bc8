package cart

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidQuantity   = errors.New("quantity must be greater than zero")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrItemNotFound      = errors.New("item not in cart")
	ErrInvalidPrice      = errors.New("price cannot be negative")
	ErrProductNotFound   = errors.New("product not found")
)

var hundred = decimal.NewFromInt(100)

// Product is the catalog snapshot a line item is created from.
type Product struct {
	ID            uuid.UUID       `json:"id"`
	Name          string          `json:"name"`
	SKU           string          `json:"sku"`
	Category      string          `json:"category"`
	ImageRef      string          `json:"image_ref"`
	SellingPrice  decimal.Decimal `json:"selling_price"`
	StockQuantity int             `json:"stock_quantity"`
}

// LineItem is one product in the cart. StockSnapshot is the stock level seen when the
// product was added and caps the line's quantity.
type LineItem struct {
	ProductID     uuid.UUID       `json:"product_id"`
	Name          string          `json:"name"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	Quantity      int             `json:"quantity"`
	SKU           string          `json:"sku"`
	Category      string          `json:"category"`
	ImageRef      string          `json:"image_ref"`
	StockSnapshot int             `json:"stock_snapshot"`
}

// LineTotal is UnitPrice × Quantity.
func (li LineItem) LineTotal() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// ItemPatch holds the line item fields an update may change.
type ItemPatch struct {
	Quantity  *int             `json:"quantity,omitempty"`
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty"`
	Name      *string          `json:"name,omitempty"`
}

// State is a terminal's in-progress order. DiscountPercent is kept in [0,100] and
// TaxRate, a fraction, in [0,1].
type State struct {
	Items           []LineItem      `json:"items"`
	CustomerRef     *string         `json:"customer_ref"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	TaxRate         decimal.Decimal `json:"tax_rate"`
	Notes           string          `json:"notes"`
}

// Empty returns an empty cart taxed at taxRate.
func Empty(taxRate decimal.Decimal) State {
	return State{TaxRate: clamp(taxRate, decimal.Zero, decimal.NewFromInt(1))}
}

func (s State) IsEmpty() bool { return len(s.Items) == 0 }

func (s State) indexOf(productID uuid.UUID) int {
	for i, li := range s.Items {
		if li.ProductID == productID {
			return i
		}
	}
	return -1
}

// Item returns the line for productID.
func (s State) Item(productID uuid.UUID) (LineItem, bool) {
	if i := s.indexOf(productID); i >= 0 {
		return s.Items[i], true
	}
	return LineItem{}, false
}

func (s State) clone() State {
	if s.Items != nil {
		items := make([]LineItem, len(s.Items))
		copy(items, s.Items)
		s.Items = items
	}
	if s.CustomerRef != nil {
		ref := *s.CustomerRef
		s.CustomerRef = &ref
	}
	return s
}

// Equal reports whether s and o hold the same items, customer, discount, tax rate and
// notes. Decimals compare by value.
func (s State) Equal(o State) bool {
	if len(s.Items) != len(o.Items) {
		return false
	}
	for i := range s.Items {
		a, b := s.Items[i], o.Items[i]
		if a.ProductID != b.ProductID || a.Name != b.Name || !a.UnitPrice.Equal(b.UnitPrice) ||
			a.Quantity != b.Quantity || a.SKU != b.SKU || a.Category != b.Category ||
			a.ImageRef != b.ImageRef || a.StockSnapshot != b.StockSnapshot {
			return false
		}
	}
	if (s.CustomerRef == nil) != (o.CustomerRef == nil) {
		return false
	}
	if s.CustomerRef != nil && *s.CustomerRef != *o.CustomerRef {
		return false
	}
	return s.DiscountPercent.Equal(o.DiscountPercent) &&
		s.TaxRate.Equal(o.TaxRate) &&
		s.Notes == o.Notes
}

// Totals is the pricing derived from a State. It is never stored.
type Totals struct {
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	TaxableAmount  decimal.Decimal `json:"taxable_amount"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	Total          decimal.Decimal `json:"total"`
	ItemCount      int             `json:"item_count"`
}

// Totals recomputes the pricing from the current items, discount and tax rate.
func (s State) Totals() Totals {
	var t Totals
	for _, li := range s.Items {
		t.Subtotal = t.Subtotal.Add(li.LineTotal())
		t.ItemCount += li.Quantity
	}
	t.DiscountAmount = t.Subtotal.Mul(s.DiscountPercent).Div(hundred)
	t.TaxableAmount = t.Subtotal.Sub(t.DiscountAmount)
	t.TaxAmount = t.TaxableAmount.Mul(s.TaxRate)
	t.Total = t.TaxableAmount.Add(t.TaxAmount)
	return t
}

func clamp(v, lo, hi decimal.Decimal) decimal.Decimal {
	if v.LessThan(lo) {
		return lo
	}
	if v.GreaterThan(hi) {
		return hi
	}
	return v
}
