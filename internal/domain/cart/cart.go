package cart

import domproduct "example.com/shoecart/internal/domain/product"

type Item struct {
	ID     int64   `json:"id"`
	Title  string  `json:"title"`
	Price  float64 `json:"price"`
	Image  string  `json:"image"`
	Amount int64   `json:"amount"`
}

// NewItem copies the product metadata into a cart line with the given amount.
func NewItem(p domproduct.Product, amount int64) Item {
	return Item{
		ID:     p.ID,
		Title:  p.Title,
		Price:  p.Price,
		Image:  p.Image,
		Amount: amount,
	}
}

func (i Item) Subtotal() float64 {
	return i.Price * float64(i.Amount)
}

// Cart is an ordered list of items, unique by product ID.
// Every method returns a new Cart and leaves the receiver untouched.
type Cart []Item

type Totals struct {
	Lines    int     `json:"lines"`
	Units    int64   `json:"units"`
	Subtotal float64 `json:"subtotal"`
}

func (c Cart) Find(id int64) (Item, bool) {
	for _, item := range c {
		if item.ID == id {
			return item, true
		}
	}
	return Item{}, false
}

// AmountOf returns the amount of the product in the cart, or 0 if absent.
func (c Cart) AmountOf(id int64) int64 {
	if item, ok := c.Find(id); ok {
		return item.Amount
	}
	return 0
}

func (c Cart) Clone() Cart {
	out := make(Cart, len(c))
	copy(out, c)
	return out
}

// WithItem appends item, replacing any existing line for the same product in place.
func (c Cart) WithItem(item Item) Cart {
	out := make(Cart, 0, len(c)+1)
	replaced := false
	for _, existing := range c {
		if existing.ID == item.ID {
			out = append(out, item)
			replaced = true
			continue
		}
		out = append(out, existing)
	}
	if !replaced {
		out = append(out, item)
	}
	return out
}

func (c Cart) WithAmount(id, amount int64) (Cart, error) {
	item, ok := c.Find(id)
	if !ok {
		return nil, ErrItemNotFound
	}
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	item.Amount = amount
	return c.WithItem(item), nil
}

func (c Cart) Without(id int64) (Cart, error) {
	if _, ok := c.Find(id); !ok {
		return nil, ErrItemNotFound
	}
	out := make(Cart, 0, len(c)-1)
	for _, item := range c {
		if item.ID != id {
			out = append(out, item)
		}
	}
	return out, nil
}

func (c Cart) Totals() Totals {
	t := Totals{Lines: len(c)}
	for _, item := range c {
		t.Units += item.Amount
		t.Subtotal += item.Subtotal()
	}
	return t
}
