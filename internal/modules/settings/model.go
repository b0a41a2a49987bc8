package settings

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// NotificationPrefs controls which notices a store wants to receive.
type NotificationPrefs struct {
	LowStock     bool   `json:"low_stock"`
	DailySummary bool   `json:"daily_summary"`
	Email        string `json:"email,omitempty"`
}

// StoreSettings is the per-store configuration consumed by the cart, checkout and
// currency formatting. TaxRate is a fraction (0.16 means 16%).
type StoreSettings struct {
	StoreID           uuid.UUID         `json:"store_id"`
	Currency          string            `json:"currency"`
	TaxRate           decimal.Decimal   `json:"tax_rate"`
	Timezone          string            `json:"timezone"`
	ReceiptFooter     string            `json:"receipt_footer"`
	PaymentMethods    map[string]bool   `json:"payment_methods"`
	NotificationPrefs NotificationPrefs `json:"notification_prefs"`
}

// CurrencyCode returns the configured currency, USD when unset.
func (s StoreSettings) CurrencyCode() string {
	if s.Currency == "" {
		return "USD"
	}
	return s.Currency
}

// PaymentEnabled reports whether method may be used at checkout. Methods the store
// never configured are enabled.
func (s StoreSettings) PaymentEnabled(method string) bool {
	enabled, ok := s.PaymentMethods[strings.ToUpper(method)]
	return !ok || enabled
}

// Location resolves the store timezone, UTC when unset or unknown.
func (s StoreSettings) Location() *time.Location {
	if s.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (s StoreSettings) clone() StoreSettings {
	if s.PaymentMethods != nil {
		methods := make(map[string]bool, len(s.PaymentMethods))
		for k, v := range s.PaymentMethods {
			methods[k] = v
		}
		s.PaymentMethods = methods
	}
	return s
}

// Patch carries a partial settings update; nil fields are left untouched.
type Patch struct {
	Currency          *string            `json:"currency,omitempty"`
	TaxRate           *decimal.Decimal   `json:"tax_rate,omitempty"`
	Timezone          *string            `json:"timezone,omitempty"`
	ReceiptFooter     *string            `json:"receipt_footer,omitempty"`
	PaymentMethods    map[string]bool    `json:"payment_methods,omitempty"`
	NotificationPrefs *NotificationPrefs `json:"notification_prefs,omitempty"`
}

// Apply merges the present fields of p over s and returns the result. Payment method
// toggles merge per method.
func (p Patch) Apply(s StoreSettings) StoreSettings {
	out := s.clone()
	if p.Currency != nil {
		out.Currency = strings.ToUpper(*p.Currency)
	}
	if p.TaxRate != nil {
		out.TaxRate = *p.TaxRate
	}
	if p.Timezone != nil {
		out.Timezone = *p.Timezone
	}
	if p.ReceiptFooter != nil {
		out.ReceiptFooter = *p.ReceiptFooter
	}
	if p.PaymentMethods != nil {
		if out.PaymentMethods == nil {
			out.PaymentMethods = make(map[string]bool, len(p.PaymentMethods))
		}
		for method, enabled := range p.PaymentMethods {
			out.PaymentMethods[strings.ToUpper(method)] = enabled
		}
	}
	if p.NotificationPrefs != nil {
		out.NotificationPrefs = *p.NotificationPrefs
	}
	return out
}

// Source tells where a loaded settings snapshot came from.
type Source string

const (
	SourceRemote   Source = "remote"
	SourceCache    Source = "cache"
	SourceDefaults Source = "defaults"
)
