package pos

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

var (
	ErrEmptyCart             = errors.New("Cart is empty")
	ErrInvalidPaymentMethod  = errors.New("invalid payment_method (allowed: CASH, CARD, MOBILE_MONEY, VOUCHER)")
	ErrPaymentMethodDisabled = errors.New("payment method is disabled for this store")
	ErrInvalidAmount         = errors.New("amount_tendered must be a non-negative number")
	ErrInsufficientAmount    = errors.New("insufficient amount")
	ErrInsufficientStock     = errors.New("insufficient stock")
	ErrNotFound              = errors.New("transaction not found")
	ErrNotRefundable         = errors.New("only COMPLETED transactions can be refunded")
	ErrCheckoutConflict      = errors.New("checkout_id was already used for a different sale")
)

// PaymentMethod represents how a POS transaction was paid.
type PaymentMethod string

const (
	PaymentCash        PaymentMethod = "CASH"
	PaymentCard        PaymentMethod = "CARD"
	PaymentMobileMoney PaymentMethod = "MOBILE_MONEY"
	PaymentVoucher     PaymentMethod = "VOUCHER"
)

// ParsePaymentMethod normalises s ("cash", " Card ") to a known method.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	method := PaymentMethod(strings.ToUpper(strings.TrimSpace(s)))
	switch method {
	case PaymentCash, PaymentCard, PaymentMobileMoney, PaymentVoucher:
		return method, nil
	}
	return "", ErrInvalidPaymentMethod
}

// TxStatus represents the state of a POS transaction.
type TxStatus string

const (
	TxPending   TxStatus = "PENDING"
	TxCompleted TxStatus = "COMPLETED"
	TxRefunded  TxStatus = "REFUNDED"
	TxFailed    TxStatus = "FAILED"
)

// TransactionItem is a sold line, priced as it was in the cart.
type TransactionItem struct {
	ID            uuid.UUID       `json:"id"`
	TransactionID uuid.UUID       `json:"transaction_id"`
	ProductID     uuid.UUID       `json:"product_id"`
	Name          string          `json:"name"`
	SKU           string          `json:"sku,omitempty"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	Quantity      int             `json:"quantity"`
	LineTotal     decimal.Decimal `json:"line_total"`
}

// Transaction records a completed sale at the counter.
type Transaction struct {
	ID             uuid.UUID         `json:"id"`
	StoreID        uuid.UUID         `json:"store_id"`
	CashierID      *uuid.UUID        `json:"cashier_id,omitempty"`
	IdempotencyKey string            `json:"checkout_id"`
	CustomerRef    *string           `json:"customer_ref,omitempty"`
	Items          []TransactionItem `json:"items"`
	Subtotal       decimal.Decimal   `json:"subtotal"`
	DiscountAmount decimal.Decimal   `json:"discount_amount"`
	TaxAmount      decimal.Decimal   `json:"tax_amount"`
	Total          decimal.Decimal   `json:"total"`
	Currency       string            `json:"currency"`
	PaymentMethod  PaymentMethod     `json:"payment_method"`
	AmountTendered *decimal.Decimal  `json:"amount_tendered,omitempty"`
	ChangeDue      decimal.Decimal   `json:"change_due"`
	Status         TxStatus          `json:"status"`
	Notes          string            `json:"notes,omitempty"`
	RefundReason   string            `json:"refund_reason,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// CheckoutRequest is the payload for converting a terminal's cart into a sale.
// CheckoutID identifies the attempt; retries with the same id never record twice.
type CheckoutRequest struct {
	CheckoutID     string     `json:"checkout_id,omitempty"`
	PaymentMethod  string     `json:"payment_method"`
	AmountTendered string     `json:"amount_tendered,omitempty"`
	CashierID      *uuid.UUID `json:"-"`
}

// RefundRequest is the payload for refunding a POS transaction.
type RefundRequest struct {
	Reason string `json:"reason"`
}

// LowStockAlert names a product a sale took to or below its minimum level.
type LowStockAlert struct {
	ProductID     uuid.UUID `json:"product_id"`
	Name          string    `json:"name"`
	StockQuantity int       `json:"stock_quantity"`
	MinStockLevel int       `json:"min_stock_level"`
}

// SaleResult is what recording a sale produced. Replayed is set when the checkout id
// had already been recorded and nothing new was written.
type SaleResult struct {
	Transaction *Transaction
	LowStock    []LowStockAlert
	Replayed    bool
}

// ReceiptLine is a display-ready sold line.
type ReceiptLine struct {
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	LineTotal string `json:"line_total"`
}

// Receipt is the checkout result shown to the cashier.
type Receipt struct {
	Transaction *Transaction    `json:"transaction"`
	Lines       []ReceiptLine   `json:"lines"`
	Subtotal    string          `json:"subtotal"`
	Discount    string          `json:"discount"`
	Tax         string          `json:"tax"`
	Total       string          `json:"total"`
	Tendered    string          `json:"tendered,omitempty"`
	Change      string          `json:"change"`
	Footer      string          `json:"footer,omitempty"`
	IssuedAt    string          `json:"issued_at"`
	LowStock    []LowStockAlert `json:"low_stock,omitempty"`
	Replayed    bool            `json:"replayed,omitempty"`
}
