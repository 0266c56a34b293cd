package cart

import (
	"encoding/json"
	"fmt"
)

// Encode serializes the cart as a JSON array. An empty cart encodes as "[]".
func Encode(c Cart) ([]byte, error) {
	if c == nil {
		c = Cart{}
	}
	return json.Marshal(c)
}

// Decode parses a snapshot produced by Encode and checks the cart invariants.
func Decode(data []byte) (Cart, error) {
	var c Cart
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode cart snapshot: %w", err)
	}
	seen := make(map[int64]struct{}, len(c))
	for _, item := range c {
		if _, dup := seen[item.ID]; dup {
			return nil, ErrDuplicateItem
		}
		if item.Amount <= 0 {
			return nil, ErrInvalidAmount
		}
		seen[item.ID] = struct{}{}
	}
	if c == nil {
		c = Cart{}
	}
	return c, nil
}
