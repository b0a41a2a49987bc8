package pos

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

type postgresRepo struct{ db *sql.DB }

func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

const txColumns = `id,store_id,cashier_id,idempotency_key,customer_ref,subtotal,discount_amount,
	tax_amount,total,currency,payment_method,amount_tendered,change_due,status,notes,
	refund_reason,created_at,updated_at`

func (r *postgresRepo) RecordSale(ctx context.Context, t *Transaction) (*SaleResult, error) {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "begin sale")
	}
	defer dbTx.Rollback()

	var tendered decimal.NullDecimal
	if t.AmountTendered != nil {
		tendered = decimal.NewNullDecimal(*t.AmountTendered)
	}
	err = dbTx.QueryRowContext(ctx, `
		INSERT INTO transactions
		  (id, store_id, cashier_id, idempotency_key, customer_ref, subtotal, discount_amount,
		   tax_amount, total, currency, payment_method, amount_tendered, change_due, status, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
		ON CONFLICT (store_id, idempotency_key) DO NOTHING
		RETURNING created_at, updated_at`,
		t.ID, t.StoreID, nullUUID(t.CashierID), t.IdempotencyKey, t.CustomerRef,
		t.Subtotal, t.DiscountAmount, t.TaxAmount, t.Total, t.Currency, t.PaymentMethod,
		tendered, t.ChangeDue, t.Status, t.Notes).
		Scan(&t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		// this checkout id was already recorded
		existing, err := r.getByKey(ctx, dbTx, t.StoreID, t.IdempotencyKey)
		if err != nil {
			return nil, err
		}
		return &SaleResult{Transaction: existing, Replayed: true}, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "insert transaction")
	}

	result := &SaleResult{Transaction: t}
	for i := range t.Items {
		item := &t.Items[i]
		item.TransactionID = t.ID

		var alert LowStockAlert
		err := dbTx.QueryRowContext(ctx, `
			UPDATE products SET stock_quantity = stock_quantity - $1, updated_at = NOW()
			WHERE id=$2 AND store_id=$3 AND is_active AND stock_quantity >= $1
			RETURNING name, stock_quantity, min_stock_level`,
			item.Quantity, item.ProductID, t.StoreID).
			Scan(&alert.Name, &alert.StockQuantity, &alert.MinStockLevel)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrapf(ErrInsufficientStock, "%s", item.Name)
		}
		if err != nil {
			return nil, errors.Wrapf(err, "decrement stock of %s", item.ProductID)
		}
		if alert.StockQuantity <= alert.MinStockLevel {
			alert.ProductID = item.ProductID
			result.LowStock = append(result.LowStock, alert)
		}

		if _, err := dbTx.ExecContext(ctx, `
			INSERT INTO stock_adjustments (id, store_id, product_id, delta, reason)
			VALUES ($1,$2,$3,$4,$5)`,
			uuid.New(), t.StoreID, item.ProductID, -item.Quantity, "sale "+t.ID.String()); err != nil {
			return nil, errors.Wrap(err, "insert stock adjustment")
		}

		if _, err := dbTx.ExecContext(ctx, `
			INSERT INTO transaction_items
			  (id, transaction_id, line_no, product_id, name, sku, unit_price, quantity, line_total)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			item.ID, item.TransactionID, i+1, item.ProductID, item.Name, item.SKU,
			item.UnitPrice, item.Quantity, item.LineTotal); err != nil {
			return nil, errors.Wrap(err, "insert transaction item")
		}
	}

	if err := dbTx.Commit(); err != nil {
		return nil, errors.Wrap(err, "commit sale")
	}
	return result, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, storeID, id uuid.UUID) (*Transaction, error) {
	t, err := r.scan(r.db.QueryRowContext(ctx,
		`SELECT `+txColumns+` FROM transactions WHERE id=$1 AND store_id=$2`, id, storeID))
	if err != nil {
		return nil, err
	}
	if err := r.loadItems(ctx, r.db, []*Transaction{t}); err != nil {
		return nil, err
	}
	return t, nil
}

func (r *postgresRepo) GetByIdempotencyKey(ctx context.Context, storeID uuid.UUID, key string) (*Transaction, error) {
	return r.getByKey(ctx, r.db, storeID, key)
}

func (r *postgresRepo) getByKey(ctx context.Context, q querier, storeID uuid.UUID, key string) (*Transaction, error) {
	t, err := r.scan(q.QueryRowContext(ctx,
		`SELECT `+txColumns+` FROM transactions WHERE store_id=$1 AND idempotency_key=$2`, storeID, key))
	if err != nil {
		return nil, err
	}
	if err := r.loadItems(ctx, q, []*Transaction{t}); err != nil {
		return nil, err
	}
	return t, nil
}

func (r *postgresRepo) ListByStore(ctx context.Context, storeID uuid.UUID, limit int) ([]*Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+txColumns+` FROM transactions WHERE store_id=$1 ORDER BY created_at DESC LIMIT $2`,
		storeID, limit)
	if err != nil {
		return nil, errors.Wrap(err, "select transactions")
	}
	defer rows.Close()
	var txs []*Transaction
	for rows.Next() {
		t, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "select transactions")
	}
	if err := r.loadItems(ctx, r.db, txs); err != nil {
		return nil, err
	}
	return txs, nil
}

func (r *postgresRepo) Refund(ctx context.Context, storeID, id uuid.UUID, reason string) (*Transaction, error) {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "begin refund")
	}
	defer dbTx.Rollback()

	var status TxStatus
	err = dbTx.QueryRowContext(ctx,
		`SELECT status FROM transactions WHERE id=$1 AND store_id=$2 FOR UPDATE`, id, storeID).
		Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "lock transaction")
	}
	if status != TxCompleted {
		return nil, errors.Wrapf(ErrNotRefundable, "current status: %s", status)
	}

	if _, err := dbTx.ExecContext(ctx,
		`UPDATE transactions SET status=$1, refund_reason=$2, updated_at=NOW() WHERE id=$3`,
		TxRefunded, reason, id); err != nil {
		return nil, errors.Wrap(err, "update transaction status")
	}

	t := &Transaction{ID: id}
	if err := r.loadItems(ctx, dbTx, []*Transaction{t}); err != nil {
		return nil, err
	}
	for _, item := range t.Items {
		if _, err := dbTx.ExecContext(ctx, `
			UPDATE products SET stock_quantity = stock_quantity + $1, updated_at = NOW()
			WHERE id=$2 AND store_id=$3`,
			item.Quantity, item.ProductID, storeID); err != nil {
			return nil, errors.Wrapf(err, "restock %s", item.ProductID)
		}
		if _, err := dbTx.ExecContext(ctx, `
			INSERT INTO stock_adjustments (id, store_id, product_id, delta, reason)
			VALUES ($1,$2,$3,$4,$5)`,
			uuid.New(), storeID, item.ProductID, item.Quantity, "refund "+id.String()); err != nil {
			return nil, errors.Wrap(err, "insert stock adjustment")
		}
	}

	if err := dbTx.Commit(); err != nil {
		return nil, errors.Wrap(err, "commit refund")
	}
	return r.GetByID(ctx, storeID, id)
}

// loadItems fills Items of every transaction in txs with a single query.
func (r *postgresRepo) loadItems(ctx context.Context, q querier, txs []*Transaction) error {
	if len(txs) == 0 {
		return nil
	}
	byID := make(map[uuid.UUID]*Transaction, len(txs))
	ids := make([]string, 0, len(txs))
	for _, t := range txs {
		t.Items = []TransactionItem{}
		byID[t.ID] = t
		ids = append(ids, t.ID.String())
	}

	rows, err := q.QueryContext(ctx, `
		SELECT id, transaction_id, product_id, name, sku, unit_price, quantity, line_total
		FROM transaction_items WHERE transaction_id = ANY($1::uuid[])
		ORDER BY transaction_id, line_no`, pq.Array(ids))
	if err != nil {
		return errors.Wrap(err, "select transaction_items")
	}
	defer rows.Close()
	for rows.Next() {
		var it TransactionItem
		if err := rows.Scan(&it.ID, &it.TransactionID, &it.ProductID, &it.Name, &it.SKU,
			&it.UnitPrice, &it.Quantity, &it.LineTotal); err != nil {
			return errors.Wrap(err, "scan transaction_item")
		}
		if t, ok := byID[it.TransactionID]; ok {
			t.Items = append(t.Items, it)
		}
	}
	return errors.Wrap(rows.Err(), "select transaction_items")
}

// ── scanner ───────────────────────────────────────────────────────────────────

type rowScanner interface{ Scan(dest ...interface{}) error }

func (r *postgresRepo) scan(row rowScanner) (*Transaction, error) {
	t := &Transaction{}
	var (
		cashierID   uuid.NullUUID
		customerRef sql.NullString
		tendered    decimal.NullDecimal
	)
	err := row.Scan(&t.ID, &t.StoreID, &cashierID, &t.IdempotencyKey, &customerRef,
		&t.Subtotal, &t.DiscountAmount, &t.TaxAmount, &t.Total, &t.Currency,
		&t.PaymentMethod, &tendered, &t.ChangeDue, &t.Status, &t.Notes,
		&t.RefundReason, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "scan transaction")
	}
	if cashierID.Valid {
		uid := cashierID.UUID
		t.CashierID = &uid
	}
	if customerRef.Valid {
		t.CustomerRef = &customerRef.String
	}
	if tendered.Valid {
		t.AmountTendered = &tendered.Decimal
	}
	return t, nil
}

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}
