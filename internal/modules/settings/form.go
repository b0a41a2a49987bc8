package settings

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

var (
	ErrInvalidTaxRate  = errors.New("tax rate must be between 0 and 100 percent")
	ErrInvalidCurrency = errors.New("currency must be a three-letter code")
	ErrInvalidTimezone = errors.New("unknown timezone")
)

var hundred = decimal.NewFromInt(100)

// Form is the shape settings are edited in. Tax is a percentage here and a fraction
// everywhere else; Patch and FormFrom are the only conversions between the two.
type Form struct {
	Currency          *string            `json:"currency,omitempty"`
	TaxRatePercent    *decimal.Decimal   `json:"tax_rate_percent,omitempty"`
	Timezone          *string            `json:"timezone,omitempty"`
	ReceiptFooter     *string            `json:"receipt_footer,omitempty"`
	PaymentMethods    map[string]bool    `json:"payment_methods,omitempty"`
	NotificationPrefs *NotificationPrefs `json:"notification_prefs,omitempty"`
}

// Patch validates the form and converts it into a settings patch.
func (f Form) Patch() (Patch, error) {
	p := Patch{
		Timezone:          f.Timezone,
		ReceiptFooter:     f.ReceiptFooter,
		PaymentMethods:    f.PaymentMethods,
		NotificationPrefs: f.NotificationPrefs,
	}
	if f.Currency != nil {
		code := strings.ToUpper(strings.TrimSpace(*f.Currency))
		if len(code) != 3 {
			return Patch{}, ErrInvalidCurrency
		}
		// Codes outside ISO 4217 are allowed; the formatter prints them verbatim.
		if unit, err := currency.ParseISO(code); err == nil {
			code = unit.String()
		}
		p.Currency = &code
	}
	if f.TaxRatePercent != nil {
		pct := *f.TaxRatePercent
		if pct.IsNegative() || pct.GreaterThan(hundred) {
			return Patch{}, ErrInvalidTaxRate
		}
		rate := pct.Div(hundred)
		p.TaxRate = &rate
	}
	if f.Timezone != nil && *f.Timezone != "" {
		if _, err := time.LoadLocation(*f.Timezone); err != nil {
			return Patch{}, ErrInvalidTimezone
		}
	}
	return p, nil
}

// FormFrom renders settings in the editable shape.
func FormFrom(s StoreSettings) Form {
	pct := s.TaxRate.Mul(hundred)
	prefs := s.NotificationPrefs
	code := s.CurrencyCode()
	return Form{
		Currency:          &code,
		TaxRatePercent:    &pct,
		Timezone:          &s.Timezone,
		ReceiptFooter:     &s.ReceiptFooter,
		PaymentMethods:    s.clone().PaymentMethods,
		NotificationPrefs: &prefs,
	}
}
