package product

import (
	"context"
	"errors"
	"fmt"

	dom "example.com/shoecart/internal/domain/product"
)

type Details struct {
	dom.Product
	Stock int64 `json:"stock"`
}

type Service struct {
	inventory dom.Inventory
}

func NewService(inventory dom.Inventory) *Service {
	return &Service{inventory: inventory}
}

func (s *Service) Get(ctx context.Context, id int64) (*Details, error) {
	p, err := s.inventory.GetProduct(ctx, id)
	if err != nil {
		return nil, classify(err)
	}
	stock, err := s.inventory.GetStock(ctx, id)
	if err != nil {
		return nil, classify(err)
	}
	return &Details{Product: p, Stock: stock.Amount}, nil
}

func classify(err error) error {
	if errors.Is(err, dom.ErrProductNotFound) || errors.Is(err, dom.ErrInventoryUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", dom.ErrInventoryUnavailable, err)
}
