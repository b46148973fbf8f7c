package catalog

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Item is one purchasable coin as served by GET /coins.
type Item struct {
	ID          string          `json:"_id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Metal       string          `json:"metal"`
	WeightGrams float64         `json:"weight_grams"`
	Country     string          `json:"country"`
	Year        int             `json:"year"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	ImageURL    string          `json:"image_url,omitempty"`
}

func (it Item) InStock() bool { return it.Stock > 0 }

// Validate reports whether the record is usable by the cart.
func (it Item) Validate() error {
	if it.ID == "" {
		return fmt.Errorf("item %q: missing _id", it.Name)
	}
	if it.Price.IsNegative() {
		return fmt.Errorf("item %s: negative price %s", it.ID, it.Price)
	}
	if it.Stock < 0 {
		return fmt.Errorf("item %s: negative stock %d", it.ID, it.Stock)
	}
	return nil
}
