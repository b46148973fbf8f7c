package clients

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/checkout"
)

type OrderClient struct{ c *Client }

func NewOrderClient(c *Client) *OrderClient { return &OrderClient{c: c} }

func (oc *OrderClient) CreateOrder(ctx context.Context, req checkout.OrderRequest) (checkout.CreatedOrder, error) {
	var created checkout.CreatedOrder
	if err := oc.c.call(ctx, "create order", http.MethodPost, "/orders", req, &created); err != nil {
		return checkout.CreatedOrder{}, err
	}
	return created, nil
}

func (oc *OrderClient) ConfirmPayment(ctx context.Context, orderID string) error {
	if orderID == "" {
		return errors.New("confirm payment: empty order id")
	}
	return oc.c.call(ctx, "confirm payment", http.MethodPost, "/orders/"+url.PathEscape(orderID)+"/confirm-payment", nil, nil)
}

// ListOrders returns the logged-in user's orders, or every order for an
// admin. Anonymous callers get a 401 APIError.
func (oc *OrderClient) ListOrders(ctx context.Context) ([]checkout.Order, error) {
	var orders []checkout.Order
	if err := oc.c.call(ctx, "list orders", http.MethodGet, "/orders", nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}
