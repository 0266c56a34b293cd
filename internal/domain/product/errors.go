package product

import "errors"

var (
	ErrProductNotFound = errors.New("product not found")
	ErrOutOfStock      = errors.New("product out of stock")
	// ErrInventoryUnavailable marks lookups that failed for reasons other than a missing product.
	ErrInventoryUnavailable = errors.New("inventory lookup failed")
)
