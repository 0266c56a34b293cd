package product

import "context"

// Inventory is the remote source of truth for product metadata and stock.
type Inventory interface {
	GetStock(ctx context.Context, id int64) (Stock, error)
	GetProduct(ctx context.Context, id int64) (Product, error)
}
