package inventory

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pkg/errors"
)

// isDuplicateKey reports a PostgreSQL unique constraint violation (code 23505).
func isDuplicateKey(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// ---- Store ----

type storePostgres struct{ db *sql.DB }

func NewStorePostgresRepository(db *sql.DB) StoreRepository { return &storePostgres{db: db} }

const storeColumns = `id,owner_id,name,address,phone,email,is_active,created_at,updated_at`

func (r *storePostgres) CreateStore(ctx context.Context, s *Store) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO stores (id,owner_id,name,address,phone,email,is_active)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING created_at, updated_at`,
		s.ID, s.OwnerID, s.Name, s.Address, s.Phone, s.Email, s.IsActive).
		Scan(&s.CreatedAt, &s.UpdatedAt)
	return errors.Wrap(err, "insert store")
}

func (r *storePostgres) GetStoreByID(ctx context.Context, id uuid.UUID) (*Store, error) {
	s, err := scanStore(r.db.QueryRowContext(ctx, `SELECT `+storeColumns+` FROM stores WHERE id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrStoreNotFound
	}
	return s, errors.Wrap(err, "select store")
}

func (r *storePostgres) ListStoresByOwner(ctx context.Context, ownerID uuid.UUID) ([]*Store, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+storeColumns+` FROM stores WHERE owner_id=$1 ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, errors.Wrap(err, "select stores")
	}
	defer rows.Close()
	var stores []*Store
	for rows.Next() {
		s, err := scanStore(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan store")
		}
		stores = append(stores, s)
	}
	return stores, rows.Err()
}

// ---- Product ----

type productPostgres struct{ db *sql.DB }

func NewProductPostgresRepository(db *sql.DB) ProductRepository { return &productPostgres{db: db} }

const productSelect = `
	SELECT p.id, p.store_id, p.category_id, COALESCE(c.name, ''), p.name, p.sku, p.selling_price,
	       p.stock_quantity, p.min_stock_level, p.image_ref, p.is_active, p.created_at, p.updated_at
	FROM products p
	LEFT JOIN categories c ON c.id = p.category_id`

func (r *productPostgres) AddProduct(ctx context.Context, p *Product) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO products
		  (id,store_id,category_id,name,sku,selling_price,stock_quantity,min_stock_level,image_ref,is_active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING created_at, updated_at`,
		p.ID, p.StoreID, nullUUID(p.CategoryID), p.Name, p.SKU, p.SellingPrice,
		p.StockQuantity, p.MinStockLevel, p.ImageRef, p.IsActive).
		Scan(&p.CreatedAt, &p.UpdatedAt)
	if isDuplicateKey(err) {
		return ErrDuplicateSKU
	}
	return errors.Wrap(err, "insert product")
}

func (r *productPostgres) GetProduct(ctx context.Context, storeID, id uuid.UUID) (*Product, error) {
	return r.getProduct(ctx, r.db, storeID, id)
}

func (r *productPostgres) getProduct(ctx context.Context, q querier, storeID, id uuid.UUID) (*Product, error) {
	p, err := scanProduct(q.QueryRowContext(ctx, productSelect+` WHERE p.id=$1 AND p.store_id=$2`, id, storeID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	return p, errors.Wrap(err, "select product")
}

func (r *productPostgres) ListProducts(ctx context.Context, storeID uuid.UUID, search string) ([]*Product, error) {
	return r.list(ctx, productSelect+`
		WHERE p.store_id=$1 AND p.is_active
		  AND ($2::text = '' OR p.name ILIKE '%' || $2::text || '%' OR p.sku ILIKE '%' || $2::text || '%')
		ORDER BY p.name`, storeID, search)
}

func (r *productPostgres) ListLowStock(ctx context.Context, storeID uuid.UUID) ([]*Product, error) {
	return r.list(ctx, productSelect+`
		WHERE p.store_id=$1 AND p.is_active AND p.stock_quantity <= p.min_stock_level
		ORDER BY p.stock_quantity, p.name`, storeID)
}

func (r *productPostgres) list(ctx context.Context, query string, args ...interface{}) ([]*Product, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "select products")
	}
	defer rows.Close()
	var products []*Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan product")
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (r *productPostgres) UpdateProduct(ctx context.Context, p *Product) error {
	err := r.db.QueryRowContext(ctx, `
		UPDATE products
		SET category_id=$1, name=$2, sku=$3, selling_price=$4, min_stock_level=$5, image_ref=$6,
		    is_active=$7, updated_at=NOW()
		WHERE id=$8 AND store_id=$9
		RETURNING updated_at`,
		nullUUID(p.CategoryID), p.Name, p.SKU, p.SellingPrice, p.MinStockLevel, p.ImageRef,
		p.IsActive, p.ID, p.StoreID).
		Scan(&p.UpdatedAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return ErrProductNotFound
	case isDuplicateKey(err):
		return ErrDuplicateSKU
	}
	return errors.Wrap(err, "update product")
}

// DeactivateProduct hides a product from sale. Rows stay for sold transaction items.
func (r *productPostgres) DeactivateProduct(ctx context.Context, storeID, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE products SET is_active=FALSE, updated_at=NOW() WHERE id=$1 AND store_id=$2`, id, storeID)
	if err != nil {
		return errors.Wrap(err, "deactivate product")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *productPostgres) AdjustStock(ctx context.Context, storeID, id uuid.UUID, adj StockAdjustment) (*Product, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "begin stock adjustment")
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE products SET stock_quantity = stock_quantity + $1, updated_at=NOW()
		WHERE id=$2 AND store_id=$3 AND stock_quantity + $1 >= 0`,
		adj.Delta, id, storeID)
	if err != nil {
		return nil, errors.Wrap(err, "adjust stock")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.getProduct(ctx, tx, storeID, id); err != nil {
			return nil, err
		}
		return nil, ErrNegativeStock
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO stock_adjustments (id, store_id, product_id, delta, reason)
		VALUES ($1,$2,$3,$4,$5)`,
		uuid.New(), storeID, id, adj.Delta, adj.Reason); err != nil {
		return nil, errors.Wrap(err, "insert stock adjustment")
	}

	p, err := r.getProduct(ctx, tx, storeID, id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "commit stock adjustment")
	}
	return p, nil
}

// ── scanner ──

type rowScanner interface {
	Scan(dest ...interface{}) error
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func scanStore(row rowScanner) (*Store, error) {
	s := &Store{}
	var owner uuid.NullUUID
	if err := row.Scan(&s.ID, &owner, &s.Name, &s.Address, &s.Phone, &s.Email,
		&s.IsActive, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	s.OwnerID = owner.UUID
	return s, nil
}

func scanProduct(row rowScanner) (*Product, error) {
	p := &Product{}
	var category uuid.NullUUID
	if err := row.Scan(&p.ID, &p.StoreID, &category, &p.CategoryName, &p.Name, &p.SKU,
		&p.SellingPrice, &p.StockQuantity, &p.MinStockLevel, &p.ImageRef, &p.IsActive,
		&p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	if category.Valid {
		p.CategoryID = &category.UUID
	}
	return p, nil
}

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}
