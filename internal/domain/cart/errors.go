package cart

import "errors"

var (
	ErrItemNotFound     = errors.New("cart item not found")
	ErrInvalidAmount    = errors.New("cart item amount must be positive")
	ErrSnapshotNotFound = errors.New("cart snapshot not found")
	ErrDuplicateItem    = errors.New("cart snapshot has duplicate items")
)
