package storefront

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/checkout"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/clients"
)

// fakeAPI stands in for every storefront API client.
type fakeAPI struct {
	mu sync.Mutex

	items    []catalog.Item
	listErr  error
	orders   []checkout.Order
	user     *clients.User
	meErr    error
	orderID  string
	orderErr error

	// confirmErrs are returned by successive ConfirmPayment calls; nil after.
	confirmErrs []error

	listCalls    atomic.Int32
	createCalls  atomic.Int32
	confirmCalls atomic.Int32
	logoutCalls  atomic.Int32

	created []checkout.OrderRequest
}

func (f *fakeAPI) setItems(items ...catalog.Item) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = items
}

func (f *fakeAPI) ListCoins(context.Context) ([]catalog.Item, error) {
	f.listCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]catalog.Item(nil), f.items...), nil
}

func (f *fakeAPI) GetCoin(_ context.Context, id string) (catalog.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, it := range f.items {
		if it.ID == id {
			return it, nil
		}
	}
	return catalog.Item{}, catalog.ErrNotFound
}

func (f *fakeAPI) CreateOrder(_ context.Context, req checkout.OrderRequest) (checkout.CreatedOrder, error) {
	f.createCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, req)
	if f.orderErr != nil {
		return checkout.CreatedOrder{}, f.orderErr
	}
	id := f.orderID
	if id == "" {
		id = "order-1"
	}
	return checkout.CreatedOrder{ID: id}, nil
}

// ConfirmPayment succeeds by taking the ordered quantities out of stock, the
// way the API does.
func (f *fakeAPI) ConfirmPayment(context.Context, string) error {
	f.confirmCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.confirmErrs) > 0 {
		err := f.confirmErrs[0]
		f.confirmErrs = f.confirmErrs[1:]
		if err != nil {
			return err
		}
	}
	if len(f.created) > 0 {
		last := f.created[len(f.created)-1]
		for _, l := range last.Items {
			for i := range f.items {
				if f.items[i].ID == l.ItemID {
					f.items[i].Stock -= l.Quantity
				}
			}
		}
	}
	return nil
}

func (f *fakeAPI) ListOrders(context.Context) ([]checkout.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.orders, nil
}

func (f *fakeAPI) Me(context.Context) (*clients.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.user, f.meErr
}

func (f *fakeAPI) Logout(context.Context) error {
	f.logoutCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.user = nil
	return nil
}
