package cart

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// Action is a named cart transition.
type Action interface {
	apply(s State) (State, error)
}

// Reduce applies action to state and returns the next state. state is never modified;
// on error the returned state is state itself.
func Reduce(state State, action Action) (State, error) {
	next, err := action.apply(state.clone())
	if err != nil {
		return state, err
	}
	return next, nil
}

// AddItem adds Quantity of Product, or increments the existing line for it.
// OverridePrice replaces the product's selling price on a new line.
type AddItem struct {
	Product       Product
	Quantity      int
	OverridePrice *decimal.Decimal
}

func (a AddItem) apply(s State) (State, error) {
	if a.Quantity <= 0 {
		return s, ErrInvalidQuantity
	}
	if a.Quantity > a.Product.StockQuantity {
		return s, stockError(a.Product.Name, a.Product.StockQuantity)
	}

	if i := s.indexOf(a.Product.ID); i >= 0 {
		li := s.Items[i]
		if li.Quantity+a.Quantity > li.StockSnapshot {
			return s, stockError(li.Name, li.StockSnapshot)
		}
		li.Quantity += a.Quantity
		s.Items[i] = li
		return s, nil
	}

	price := a.Product.SellingPrice
	if a.OverridePrice != nil {
		price = *a.OverridePrice
	}
	if price.IsNegative() {
		return s, ErrInvalidPrice
	}
	s.Items = append(s.Items, LineItem{
		ProductID:     a.Product.ID,
		Name:          a.Product.Name,
		UnitPrice:     price,
		Quantity:      a.Quantity,
		SKU:           a.Product.SKU,
		Category:      a.Product.Category,
		ImageRef:      a.Product.ImageRef,
		StockSnapshot: a.Product.StockQuantity,
	})
	return s, nil
}

// UpdateItem merges Patch into the line for ProductID. A quantity of zero or less
// removes the line.
type UpdateItem struct {
	ProductID uuid.UUID
	Patch     ItemPatch
}

func (a UpdateItem) apply(s State) (State, error) {
	i := s.indexOf(a.ProductID)
	if i < 0 {
		return s, ErrItemNotFound
	}
	if a.Patch.Quantity != nil && *a.Patch.Quantity <= 0 {
		return RemoveItem{ProductID: a.ProductID}.apply(s)
	}

	li := s.Items[i]
	if a.Patch.Quantity != nil {
		if *a.Patch.Quantity > li.StockSnapshot {
			return s, stockError(li.Name, li.StockSnapshot)
		}
		li.Quantity = *a.Patch.Quantity
	}
	if a.Patch.UnitPrice != nil {
		if a.Patch.UnitPrice.IsNegative() {
			return s, ErrInvalidPrice
		}
		li.UnitPrice = *a.Patch.UnitPrice
	}
	if a.Patch.Name != nil {
		li.Name = *a.Patch.Name
	}
	s.Items[i] = li
	return s, nil
}

// RemoveItem deletes the line for ProductID, if any.
type RemoveItem struct {
	ProductID uuid.UUID
}

func (a RemoveItem) apply(s State) (State, error) {
	i := s.indexOf(a.ProductID)
	if i < 0 {
		return s, nil
	}
	s.Items = append(s.Items[:i], s.Items[i+1:]...)
	return s, nil
}

// ClearCart empties the cart. TaxRate is the store's current rate.
type ClearCart struct {
	TaxRate decimal.Decimal
}

func (a ClearCart) apply(State) (State, error) {
	return Empty(a.TaxRate), nil
}

type SetCustomer struct {
	CustomerRef *string
}

func (a SetCustomer) apply(s State) (State, error) {
	s.CustomerRef = nil
	if a.CustomerRef != nil {
		ref := *a.CustomerRef
		s.CustomerRef = &ref
	}
	return s, nil
}

// SetDiscount sets the discount percentage, clamped to [0,100].
type SetDiscount struct {
	Percent decimal.Decimal
}

func (a SetDiscount) apply(s State) (State, error) {
	s.DiscountPercent = clamp(a.Percent, decimal.Zero, hundred)
	return s, nil
}

// SetTaxRate takes a percentage and stores it as a fraction clamped to [0,1].
type SetTaxRate struct {
	Percent decimal.Decimal
}

func (a SetTaxRate) apply(s State) (State, error) {
	s.TaxRate = clamp(a.Percent.Div(hundred), decimal.Zero, decimal.NewFromInt(1))
	return s, nil
}

type SetNotes struct {
	Notes string
}

func (a SetNotes) apply(s State) (State, error) {
	s.Notes = a.Notes
	return s, nil
}

func stockError(name string, available int) error {
	return errors.Wrapf(ErrInsufficientStock, "only %d of %s available", available, name)
}
