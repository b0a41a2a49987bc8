package settings

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormPatch_ConvertsPercentToFraction(t *testing.T) {
	f := Form{TaxRatePercent: decPtr("16")}

	p, err := f.Patch()
	require.NoError(t, err)
	require.NotNil(t, p.TaxRate)
	assert.True(t, p.TaxRate.Equal(decimal.RequireFromString("0.16")))
}

func TestFormPatch_Validation(t *testing.T) {
	tests := []struct {
		name string
		form Form
		err  error
	}{
		{"negative tax", Form{TaxRatePercent: decPtr("-1")}, ErrInvalidTaxRate},
		{"tax above 100", Form{TaxRatePercent: decPtr("100.01")}, ErrInvalidTaxRate},
		{"short currency", Form{Currency: strPtr("US")}, ErrInvalidCurrency},
		{"long currency", Form{Currency: strPtr("USDT")}, ErrInvalidCurrency},
		{"unknown timezone", Form{Timezone: strPtr("Mars/Olympus")}, ErrInvalidTimezone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.form.Patch()
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestFormPatch_BoundsAndNormalisation(t *testing.T) {
	p, err := Form{
		Currency:       strPtr(" php "),
		TaxRatePercent: decPtr("100"),
		Timezone:       strPtr("Africa/Lusaka"),
	}.Patch()
	require.NoError(t, err)

	assert.Equal(t, "PHP", *p.Currency)
	assert.True(t, p.TaxRate.Equal(decimal.NewFromInt(1)))
	assert.Equal(t, "Africa/Lusaka", *p.Timezone)
}

func TestFormPatch_LeavesAbsentFieldsNil(t *testing.T) {
	p, err := Form{ReceiptFooter: strPtr("bye")}.Patch()
	require.NoError(t, err)

	assert.Nil(t, p.Currency)
	assert.Nil(t, p.TaxRate)
	assert.Nil(t, p.Timezone)
	assert.Equal(t, "bye", *p.ReceiptFooter)
}

func TestFormFrom_RoundTripsPercent(t *testing.T) {
	f := FormFrom(StoreSettings{TaxRate: decimal.RequireFromString("0.075")})

	assert.True(t, f.TaxRatePercent.Equal(decimal.RequireFromString("7.5")))
	assert.Equal(t, "USD", *f.Currency)

	p, err := f.Patch()
	require.NoError(t, err)
	assert.True(t, p.TaxRate.Equal(decimal.RequireFromString("0.075")))
}

func TestPaymentEnabled(t *testing.T) {
	s := StoreSettings{PaymentMethods: map[string]bool{"CARD": false, "CASH": true}}

	assert.False(t, s.PaymentEnabled("card"))
	assert.True(t, s.PaymentEnabled("CASH"))
	assert.True(t, s.PaymentEnabled("MOBILE_MONEY"))
}

func TestPatchApply_MergesPaymentMethodsPerMethod(t *testing.T) {
	s := StoreSettings{PaymentMethods: map[string]bool{"CARD": true, "CASH": true}}

	out := Patch{PaymentMethods: map[string]bool{"card": false}}.Apply(s)

	assert.Equal(t, map[string]bool{"CARD": false, "CASH": true}, out.PaymentMethods)
	assert.True(t, s.PaymentMethods["CARD"], "input must not be mutated")
}

func TestLocation_FallsBackToUTC(t *testing.T) {
	assert.Equal(t, "UTC", StoreSettings{}.Location().String())
	assert.Equal(t, "UTC", StoreSettings{Timezone: "Nowhere/Else"}.Location().String())
	assert.Equal(t, "Asia/Manila", StoreSettings{Timezone: "Asia/Manila"}.Location().String())
}
