package settings

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

type postgresRepo struct{ db *sql.DB }

func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

func (r *postgresRepo) Get(ctx context.Context, storeID uuid.UUID) (*Patch, error) {
	var (
		currency, timezone, footer sql.NullString
		taxRate                    decimal.NullDecimal
		methods, prefs             []byte
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT currency, tax_rate, timezone, receipt_footer, payment_methods, notification_prefs
		FROM store_settings WHERE store_id=$1`, storeID).
		Scan(&currency, &taxRate, &timezone, &footer, &methods, &prefs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "select store_settings")
	}

	p := &Patch{}
	if currency.Valid {
		code := strings.ToUpper(currency.String)
		p.Currency = &code
	}
	if taxRate.Valid {
		rate := taxRate.Decimal
		p.TaxRate = &rate
	}
	if timezone.Valid {
		p.Timezone = &timezone.String
	}
	if footer.Valid {
		p.ReceiptFooter = &footer.String
	}
	if methods != nil {
		if err := json.Unmarshal(methods, &p.PaymentMethods); err != nil {
			return nil, errors.Wrap(err, "decode payment_methods")
		}
	}
	if prefs != nil {
		var np NotificationPrefs
		if err := json.Unmarshal(prefs, &np); err != nil {
			return nil, errors.Wrap(err, "decode notification_prefs")
		}
		p.NotificationPrefs = &np
	}
	return p, nil
}

// Upsert overwrites the whole settings row for the store.
func (r *postgresRepo) Upsert(ctx context.Context, s StoreSettings) error {
	methods, err := json.Marshal(s.PaymentMethods)
	if err != nil {
		return errors.Wrap(err, "encode payment_methods")
	}
	prefs, err := json.Marshal(s.NotificationPrefs)
	if err != nil {
		return errors.Wrap(err, "encode notification_prefs")
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO store_settings
		  (store_id, currency, tax_rate, timezone, receipt_footer, payment_methods, notification_prefs, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,NOW())
		ON CONFLICT (store_id) DO UPDATE SET
		  currency=EXCLUDED.currency,
		  tax_rate=EXCLUDED.tax_rate,
		  timezone=EXCLUDED.timezone,
		  receipt_footer=EXCLUDED.receipt_footer,
		  payment_methods=EXCLUDED.payment_methods,
		  notification_prefs=EXCLUDED.notification_prefs,
		  updated_at=NOW()`,
		s.StoreID, s.Currency, s.TaxRate, s.Timezone, s.ReceiptFooter, string(methods), string(prefs))
	if err != nil {
		return errors.Wrap(err, "upsert store_settings")
	}
	return nil
}
