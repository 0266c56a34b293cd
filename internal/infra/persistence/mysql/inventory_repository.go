package mysql

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	domproduct "example.com/shoecart/internal/domain/product"
)

// InventoryRepository serves stock and product lookups from the catalog tables.
type InventoryRepository struct {
	db *sql.DB
}

func NewInventoryRepository(db *sql.DB) *InventoryRepository {
	return &InventoryRepository{db: db}
}

func (r *InventoryRepository) GetStock(ctx context.Context, id int64) (domproduct.Stock, error) {
	row := r.db.QueryRowContext(ctx, `
        SELECT id, amount
        FROM stock WHERE id = ?
    `, id)

	var s domproduct.Stock
	if err := row.Scan(&s.ID, &s.Amount); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domproduct.Stock{}, domproduct.ErrProductNotFound
		}
		return domproduct.Stock{}, errors.Wrapf(err, "query stock %d", id)
	}
	return s, nil
}

func (r *InventoryRepository) GetProduct(ctx context.Context, id int64) (domproduct.Product, error) {
	row := r.db.QueryRowContext(ctx, `
        SELECT id, title, price, image
        FROM products WHERE id = ?
    `, id)

	var p domproduct.Product
	if err := row.Scan(&p.ID, &p.Title, &p.Price, &p.Image); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domproduct.Product{}, domproduct.ErrProductNotFound
		}
		return domproduct.Product{}, errors.Wrapf(err, "query product %d", id)
	}
	return p, nil
}
