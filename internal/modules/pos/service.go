package pos

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/georgemunganga/printa-pos/internal/modules/cart"
	"github.com/georgemunganga/printa-pos/internal/modules/money"
	"github.com/georgemunganga/printa-pos/internal/modules/settings"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// Carts is the part of the cart service checkout needs.
type Carts interface {
	Get(ctx context.Context, storeID uuid.UUID, terminalID string) cart.State
	Clear(ctx context.Context, storeID uuid.UUID, terminalID string) (cart.State, error)
}

// StoreSettings supplies payment toggles, currency, timezone and receipt footer.
type StoreSettings interface {
	Get(ctx context.Context, storeID uuid.UUID) settings.StoreSettings
}

// Service defines POS business logic.
type Service interface {
	Checkout(ctx context.Context, storeID uuid.UUID, terminalID string, req CheckoutRequest) (*Receipt, error)
	GetTransaction(ctx context.Context, storeID, id uuid.UUID) (*Transaction, error)
	ListStoreTransactions(ctx context.Context, storeID uuid.UUID, limit int) ([]*Transaction, error)
	RefundTransaction(ctx context.Context, storeID, id uuid.UUID, req RefundRequest) (*Transaction, error)
}

type service struct {
	repo     Repository
	carts    Carts
	settings StoreSettings
	locale   string
	log      log.FieldLogger
	now      func() time.Time

	mu        sync.Mutex
	terminals map[string]*sync.Mutex
}

func NewService(repo Repository, carts Carts, storeSettings StoreSettings, locale string, logger log.FieldLogger) Service {
	return &service{
		repo:      repo,
		carts:     carts,
		settings:  storeSettings,
		locale:    locale,
		log:       logger,
		now:       time.Now,
		terminals: make(map[string]*sync.Mutex),
	}
}

// Checkout records the terminal's cart as a sale. Checkouts of one terminal run one at a
// time. A checkout id that was already recorded is answered with the stored sale and the
// cart is left alone; the cart is cleared only after a new sale is stored.
func (s *service) Checkout(ctx context.Context, storeID uuid.UUID, terminalID string, req CheckoutRequest) (*Receipt, error) {
	unlock := s.lockTerminal(storeID, terminalID)
	defer unlock()

	cfg := s.settings.Get(ctx, storeID)
	state := s.carts.Get(ctx, storeID, terminalID)
	key := strings.TrimSpace(req.CheckoutID)

	if key != "" {
		prior, err := s.repo.GetByIdempotencyKey(ctx, storeID, key)
		switch {
		case errors.Is(err, ErrNotFound):
		case err != nil:
			return nil, err
		default:
			// an empty cart is the normal retry after a lost response
			if !state.IsEmpty() && !sameSale(prior, compose(storeID, state, prior.Currency, prior.PaymentMethod)) {
				return nil, errors.Wrapf(ErrCheckoutConflict, "%s", key)
			}
			return s.receipt(cfg, &SaleResult{Transaction: prior, Replayed: true}), nil
		}
	}

	if state.IsEmpty() {
		return nil, ErrEmptyCart
	}
	method, err := ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		return nil, err
	}
	if !cfg.PaymentEnabled(string(method)) {
		return nil, errors.Wrapf(ErrPaymentMethodDisabled, "%s", method)
	}

	tx := compose(storeID, state, cfg.CurrencyCode(), method)
	tx.CashierID = req.CashierID
	tx.IdempotencyKey = key
	if tx.IdempotencyKey == "" {
		tx.IdempotencyKey = uuid.NewString()
	}

	if method == PaymentCash {
		tendered, err := decimal.NewFromString(strings.TrimSpace(req.AmountTendered))
		if err != nil || tendered.IsNegative() {
			return nil, ErrInvalidAmount
		}
		tendered = tendered.Round(2)
		if tendered.LessThan(tx.Total) {
			return nil, ErrInsufficientAmount
		}
		tx.AmountTendered = &tendered
		tx.ChangeDue = decimal.Max(decimal.Zero, tendered.Sub(tx.Total))
	}

	logger := s.log.WithFields(log.Fields{
		"store_id":    storeID,
		"terminal_id": terminalID,
		"checkout_id": tx.IdempotencyKey,
	})

	res, err := s.repo.RecordSale(ctx, tx)
	if err != nil {
		if !errors.Is(err, ErrInsufficientStock) {
			logger.WithError(err).Error("record sale failed")
		}
		return nil, err
	}

	if res.Replayed {
		// another instance stored this checkout id between the lookup and the insert
		if !sameSale(res.Transaction, tx) {
			return nil, errors.Wrapf(ErrCheckoutConflict, "%s", tx.IdempotencyKey)
		}
		logger.WithField("transaction_id", res.Transaction.ID).Info("sale already recorded")
		return s.receipt(cfg, res), nil
	}

	if _, err := s.carts.Clear(ctx, storeID, terminalID); err != nil {
		logger.WithError(err).Warn("cart clear after sale failed")
	}

	logger.WithFields(log.Fields{
		"transaction_id": res.Transaction.ID,
		"total":          res.Transaction.Total.StringFixed(2),
		"payment_method": res.Transaction.PaymentMethod,
	}).Info("sale completed")
	for _, a := range res.LowStock {
		logger.WithFields(log.Fields{"product_id": a.ProductID, "stock": a.StockQuantity}).Warn("low stock")
	}

	return s.receipt(cfg, res), nil
}

// lockTerminal serialises checkouts of one terminal and returns the unlock func.
func (s *service) lockTerminal(storeID uuid.UUID, terminalID string) func() {
	key := storeID.String() + ":" + terminalID
	s.mu.Lock()
	l, ok := s.terminals[key]
	if !ok {
		l = &sync.Mutex{}
		s.terminals[key] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// sameSale reports whether b sells the same lines for the same total as a.
func sameSale(a, b *Transaction) bool {
	if len(a.Items) != len(b.Items) || !a.Total.Equal(b.Total) {
		return false
	}
	for i := range a.Items {
		x, y := a.Items[i], b.Items[i]
		if x.ProductID != y.ProductID || x.Quantity != y.Quantity || !x.UnitPrice.Equal(y.UnitPrice) {
			return false
		}
	}
	return true
}

// compose builds the sale from the cart. Money fields are rounded to cents here and
// nowhere else; the total is the sum of the rounded parts.
func compose(storeID uuid.UUID, state cart.State, currency string, method PaymentMethod) *Transaction {
	tx := &Transaction{
		ID:            uuid.New(),
		StoreID:       storeID,
		CustomerRef:   state.CustomerRef,
		Currency:      currency,
		PaymentMethod: method,
		Status:        TxCompleted,
		Notes:         state.Notes,
	}
	for _, li := range state.Items {
		tx.Items = append(tx.Items, TransactionItem{
			ID:        uuid.New(),
			ProductID: li.ProductID,
			Name:      li.Name,
			SKU:       li.SKU,
			UnitPrice: li.UnitPrice.Round(2),
			Quantity:  li.Quantity,
			LineTotal: li.LineTotal().Round(2),
		})
	}

	totals := state.Totals()
	tx.Subtotal = totals.Subtotal.Round(2)
	tx.DiscountAmount = totals.DiscountAmount.Round(2)
	tx.TaxAmount = totals.TaxAmount.Round(2)
	tx.Total = tx.Subtotal.Sub(tx.DiscountAmount).Add(tx.TaxAmount)
	return tx
}

func (s *service) receipt(cfg settings.StoreSettings, res *SaleResult) *Receipt {
	tx := res.Transaction
	f := money.NewFormatter(cfg, s.locale)
	amount := func(d decimal.Decimal) string { return f.Format(decimal.NewNullDecimal(d), tx.Currency) }

	issued := tx.CreatedAt
	if issued.IsZero() {
		issued = s.now()
	}

	rc := &Receipt{
		Transaction: tx,
		Subtotal:    amount(tx.Subtotal),
		Discount:    amount(tx.DiscountAmount),
		Tax:         amount(tx.TaxAmount),
		Total:       amount(tx.Total),
		Change:      amount(tx.ChangeDue),
		Footer:      cfg.ReceiptFooter,
		IssuedAt:    issued.In(cfg.Location()).Format("2006-01-02 15:04 MST"),
		LowStock:    res.LowStock,
		Replayed:    res.Replayed,
	}
	if tx.AmountTendered != nil {
		rc.Tendered = amount(*tx.AmountTendered)
	}
	for _, it := range tx.Items {
		rc.Lines = append(rc.Lines, ReceiptLine{
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: amount(it.UnitPrice),
			LineTotal: amount(it.LineTotal),
		})
	}
	return rc
}

func (s *service) GetTransaction(ctx context.Context, storeID, id uuid.UUID) (*Transaction, error) {
	return s.repo.GetByID(ctx, storeID, id)
}

func (s *service) ListStoreTransactions(ctx context.Context, storeID uuid.UUID, limit int) ([]*Transaction, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return s.repo.ListByStore(ctx, storeID, limit)
}

func (s *service) RefundTransaction(ctx context.Context, storeID, id uuid.UUID, req RefundRequest) (*Transaction, error) {
	tx, err := s.repo.Refund(ctx, storeID, id, strings.TrimSpace(req.Reason))
	if err != nil {
		return nil, err
	}
	s.log.WithFields(log.Fields{"store_id": storeID, "transaction_id": id}).Info("transaction refunded")
	return tx, nil
}
