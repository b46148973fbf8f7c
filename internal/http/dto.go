package httpapi

import (
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/checkout"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/clients"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/storefront"
)

type filterResponse struct {
	Field string `json:"field"`
	Value string `json:"value,omitempty"`
}

type catalogResponse struct {
	Filter filterResponse `json:"filter"`
	Count  int            `json:"count"`
	Items  []catalog.Item `json:"items"`
}

type cartResponse struct {
	Lines  []cart.Line `json:"lines"`
	Totals cart.Totals `json:"totals"`
}

// actionResponse answers every intent. Applied is false when the intent was
// ignored in the current state.
type actionResponse struct {
	Applied  bool               `json:"applied"`
	Message  string             `json:"message,omitempty"`
	Cart     *cartResponse      `json:"cart,omitempty"`
	Checkout *checkout.Snapshot `json:"checkout,omitempty"`
}

type submitRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type meResponse struct {
	User *clients.User `json:"user"`
}

func toCatalog(v storefront.View) catalogResponse {
	field := string(v.Filter.Field)
	if field == "" {
		field = "all"
	}
	items := v.Items
	if items == nil {
		items = []catalog.Item{}
	}
	return catalogResponse{
		Filter: filterResponse{Field: field, Value: v.Filter.Value},
		Count:  len(items),
		Items:  items,
	}
}

func toCart(v storefront.View) *cartResponse {
	lines := v.Lines
	if lines == nil {
		lines = []cart.Line{}
	}
	return &cartResponse{Lines: lines, Totals: v.Totals}
}
