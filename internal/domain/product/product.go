package product

type Product struct {
	ID    int64   `json:"id"`
	Title string  `json:"title"`
	Price float64 `json:"price"`
	Image string  `json:"image"`
}

type Stock struct {
	ID     int64 `json:"id"`
	Amount int64 `json:"amount"`
}

// Covers reports whether the stock can satisfy a line of the given amount.
func (s Stock) Covers(amount int64) bool {
	return amount <= s.Amount
}
