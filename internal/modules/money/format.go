// Package money renders monetary amounts for receipts and API responses.
package money

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// DefaultCurrency is used when neither the caller nor the source names a currency.
const DefaultCurrency = "USD"

const defaultLocale = "en-US"

// CurrencySource supplies the currency used when a caller does not name one.
// settings.StoreSettings satisfies it.
type CurrencySource interface {
	CurrencyCode() string
}

// symbols holds prefixes for currencies whose symbol is unambiguous as a plain prefix.
var symbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
	"INR": "₹",
	"NGN": "₦",
	"ZMW": "K",
	"KES": "KSh",
}

// manualSymbols are rendered without the locale-aware path at all; generic
// formatting does not produce a usable symbol for them.
var manualSymbols = map[string]string{
	"PHP": "₱",
}

// Format renders amount in the given currency and locale. A null amount renders as
// the empty string. Unknown currency codes render as "<CODE> <amount>".
func Format(amount decimal.NullDecimal, currencyCode, locale string) string {
	if !amount.Valid {
		return ""
	}
	code := strings.ToUpper(strings.TrimSpace(currencyCode))
	if code == "" {
		code = DefaultCurrency
	}

	value := amount.Decimal
	sign := ""
	if value.IsNegative() {
		sign = "-"
		value = value.Abs()
	}

	if sym, ok := manualSymbols[code]; ok {
		return sign + sym + value.StringFixed(2)
	}

	unit, err := currency.ParseISO(code)
	if err != nil {
		return code + " " + sign + value.StringFixed(2)
	}

	scale, _ := currency.Standard.Rounding(unit)
	number := localized(value, scale, parseLocale(locale))
	if sym, ok := symbols[code]; ok {
		return sign + sym + number
	}
	return code + " " + sign + number
}

// localized groups the digits of value rounded to scale with the locale's separators.
// The digits come from the decimal itself, so large amounts stay exact.
func localized(value decimal.Decimal, scale int, tag language.Tag) string {
	group, point := separators(tag)
	intPart, frac, _ := strings.Cut(value.StringFixed(int32(scale)), ".")

	var b strings.Builder
	for i, d := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteString(group)
		}
		b.WriteRune(d)
	}
	if frac != "" {
		b.WriteString(point)
		b.WriteString(frac)
	}
	return b.String()
}

// separators reads the locale's grouping and decimal separators off a sample number.
// Locales that do not print Latin digits fall back to "," and ".".
func separators(tag language.Tag) (group, point string) {
	sample := message.NewPrinter(tag).Sprintf("%.1f", 1234.5)
	i := strings.Index(sample, "234")
	if i < 1 || !strings.HasPrefix(sample, "1") || !strings.HasSuffix(sample, "5") || i+3 > len(sample)-1 {
		return ",", "."
	}
	return sample[1:i], sample[i+3 : len(sample)-1]
}

func parseLocale(locale string) language.Tag {
	if locale == "" {
		return language.MustParse(defaultLocale)
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return language.MustParse(defaultLocale)
	}
	return tag
}

// Formatter binds Format to a currency source and a locale.
type Formatter struct {
	source CurrencySource
	locale string
}

// NewFormatter returns a formatter that falls back to source for the currency code.
func NewFormatter(source CurrencySource, locale string) *Formatter {
	return &Formatter{source: source, locale: locale}
}

// Format renders amount; an empty currencyCode is resolved from the source.
func (f *Formatter) Format(amount decimal.NullDecimal, currencyCode string) string {
	if currencyCode == "" && f.source != nil {
		currencyCode = f.source.CurrencyCode()
	}
	return Format(amount, currencyCode, f.locale)
}

// Amount formats a non-null amount in the source currency.
func (f *Formatter) Amount(amount decimal.Decimal) string {
	return f.Format(decimal.NewNullDecimal(amount), "")
}
