package catalog

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pkg/errors"
)

type postgresRepo struct{ db *sql.DB }

func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

const categorySelect = `
	SELECT c.id, c.store_id, c.name, c.description,
	       (SELECT COUNT(*) FROM products p WHERE p.category_id = c.id AND p.is_active),
	       c.created_at, c.updated_at
	FROM categories c`

func isDuplicateKey(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func (r *postgresRepo) Create(ctx context.Context, c *Category) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO categories (id, store_id, name, description)
		VALUES ($1,$2,$3,$4)
		RETURNING created_at, updated_at`,
		c.ID, c.StoreID, c.Name, c.Description).
		Scan(&c.CreatedAt, &c.UpdatedAt)
	if isDuplicateKey(err) {
		return ErrDuplicateName
	}
	return errors.Wrap(err, "insert category")
}

func scanCategory(scan func(...interface{}) error) (*Category, error) {
	c := &Category{}
	err := scan(&c.ID, &c.StoreID, &c.Name, &c.Description, &c.ProductCount, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "scan category")
	}
	return c, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, storeID, id uuid.UUID) (*Category, error) {
	row := r.db.QueryRowContext(ctx, categorySelect+` WHERE c.id=$1 AND c.store_id=$2`, id, storeID)
	return scanCategory(row.Scan)
}

func (r *postgresRepo) List(ctx context.Context, storeID uuid.UUID) ([]*Category, error) {
	rows, err := r.db.QueryContext(ctx, categorySelect+` WHERE c.store_id=$1 ORDER BY c.name`, storeID)
	if err != nil {
		return nil, errors.Wrap(err, "select categories")
	}
	defer rows.Close()

	var categories []*Category
	for rows.Next() {
		c, err := scanCategory(rows.Scan)
		if err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (r *postgresRepo) Update(ctx context.Context, c *Category) error {
	err := r.db.QueryRowContext(ctx, `
		UPDATE categories SET name=$1, description=$2, updated_at=NOW()
		WHERE id=$3 AND store_id=$4
		RETURNING updated_at`,
		c.Name, c.Description, c.ID, c.StoreID).
		Scan(&c.UpdatedAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return ErrNotFound
	case isDuplicateKey(err):
		return ErrDuplicateName
	}
	return errors.Wrap(err, "update category")
}

func (r *postgresRepo) Delete(ctx context.Context, storeID, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id=$1 AND store_id=$2`, id, storeID)
	if err != nil {
		return errors.Wrap(err, "delete category")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
