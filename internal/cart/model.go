package cart

import (
	"github.com/shopspring/decimal"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/catalog"
)

// Line is one cart entry. Item is the catalog record as it was when the
// line was created.
type Line struct {
	ItemID   string       `json:"coin_id"`
	Quantity int          `json:"quantity"`
	Item     catalog.Item `json:"coin"`
}

func (l Line) Subtotal() decimal.Decimal {
	return l.Item.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type Totals struct {
	ItemCount  int             `json:"item_count"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

// Summarize computes totals over lines.
func Summarize(lines []Line) Totals {
	t := Totals{TotalPrice: decimal.Zero}
	for _, l := range lines {
		t.ItemCount += l.Quantity
		t.TotalPrice = t.TotalPrice.Add(l.Subtotal())
	}
	return t
}
