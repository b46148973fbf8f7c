package checkout

import (
	"github.com/shopspring/decimal"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/catalog"
)

const PaymentMethodTwint = "twint"

type Customer struct {
	Name  string `json:"customer_name"`
	Email string `json:"customer_email"`
}

type OrderLine struct {
	ItemID   string `json:"coin_id"`
	Quantity int    `json:"quantity"`
}

// OrderRequest is the POST /orders body.
type OrderRequest struct {
	Customer
	Items         []OrderLine `json:"items"`
	PaymentMethod string      `json:"payment_method"`
}

// CreatedOrder is the part of the server's order the client keeps.
type CreatedOrder struct {
	ID            string           `json:"_id"`
	Total         *decimal.Decimal `json:"total,omitempty"`
	Status        string           `json:"status,omitempty"`
	PaymentStatus string           `json:"payment_status,omitempty"`
}

// Order is a past order as listed by GET /orders.
type Order struct {
	ID string `json:"_id"`
	Customer
	Items         []OrderItem     `json:"items"`
	PaymentMethod string          `json:"payment_method"`
	Total         decimal.Decimal `json:"total"`
	Status        string          `json:"status"`
	PaymentStatus string          `json:"payment_status"`
}

// OrderItem is one order line. Item is nil when the coin no longer exists.
type OrderItem struct {
	ItemID   string        `json:"coin_id"`
	Quantity int           `json:"quantity"`
	Item     *catalog.Item `json:"coin,omitempty"`
}

// Snapshot is a read-only view of the session.
type Snapshot struct {
	State    State           `json:"state"`
	OrderID  string          `json:"order_id,omitempty"`
	Customer Customer        `json:"customer"`
	Lines    []OrderLine     `json:"lines,omitempty"`
	Amount   decimal.Decimal `json:"amount"`
	Message  string          `json:"message,omitempty"`
}

// Transition is published on every applied state change.
type Transition struct {
	From    State           `json:"from"`
	To      State           `json:"to"`
	OrderID string          `json:"order_id,omitempty"`
	Amount  decimal.Decimal `json:"amount"`
	Message string          `json:"message,omitempty"`

	// CorrelationID is the id of the request that caused the change, if any.
	CorrelationID string `json:"correlation_id,omitempty"`
}

func orderLines(lines []cart.Line) []OrderLine {
	out := make([]OrderLine, 0, len(lines))
	for _, l := range lines {
		out = append(out, OrderLine{ItemID: l.ItemID, Quantity: l.Quantity})
	}
	return out
}
