package storefront

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/apierr"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/checkout"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/clients"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/events"
)

var (
	vreneli = catalog.Item{ID: "c1", Name: "Vreneli", Metal: "gold", Country: "Switzerland", Year: 1935, Price: decimal.NewFromInt(100), Stock: 2}
	maple   = catalog.Item{ID: "c2", Name: "Maple Leaf", Metal: "silver", Country: "Canada", Year: 2020, Price: decimal.NewFromInt(50), Stock: 5}
)

func newStartedSession(t *testing.T, api *fakeAPI) *Session {
	t.Helper()
	s := New(Deps{Catalog: api, Orders: api, Auth: api})
	require.NoError(t, s.Start(context.Background()))
	return s
}

func dispatch(t *testing.T, s *Session, intent Intent) View {
	t.Helper()
	v, err := s.Dispatch(context.Background(), intent)
	require.NoError(t, err)
	return v
}

func TestStartLoadsCatalogAndUser(t *testing.T) {
	api := &fakeAPI{items: []catalog.Item{vreneli, maple}, user: &clients.User{Username: "ada"}}
	s := newStartedSession(t, api)

	v := s.View()
	assert.Len(t, v.Items, 2)
	require.NotNil(t, v.User)
	assert.Equal(t, "ada", v.User.Username)
	assert.Equal(t, checkout.StateNone, v.Checkout.State)
}

func TestStartSurvivesAuthFailure(t *testing.T) {
	api := &fakeAPI{items: []catalog.Item{vreneli}, meErr: apierr.Network("current user", errors.New("refused"))}
	s := newStartedSession(t, api)

	assert.Nil(t, s.User())
	assert.Len(t, s.View().Items, 1)
}

func TestFilterBy(t *testing.T) {
	s := newStartedSession(t, &fakeAPI{items: []catalog.Item{vreneli, maple}})

	v := dispatch(t, s, FilterBy{Criterion: catalog.ByMetal("silver")})
	require.Len(t, v.Items, 1)
	assert.Equal(t, "c2", v.Items[0].ID)
	assert.Equal(t, catalog.ByMetal("silver"), v.Filter)

	v = dispatch(t, s, FilterBy{Criterion: catalog.All()})
	assert.Len(t, v.Items, 2)
}

func TestAddAndRemoveThroughIntents(t *testing.T) {
	s := newStartedSession(t, &fakeAPI{items: []catalog.Item{vreneli, maple}})

	dispatch(t, s, AddItem{ID: "c1"})
	dispatch(t, s, AddItem{ID: "c1"})
	v := dispatch(t, s, AddItem{ID: "c1"}) // at stock ceiling
	assert.Equal(t, 2, v.Totals.ItemCount)
	assert.True(t, v.Totals.TotalPrice.Equal(decimal.NewFromInt(200)))

	v = dispatch(t, s, RemoveItem{ID: "c1"})
	assert.Equal(t, 1, v.Totals.ItemCount)

	_, err := s.Dispatch(context.Background(), AddItem{ID: "nope"})
	assert.ErrorIs(t, err, catalog.ErrNotFound)

	v = dispatch(t, s, ClearCart{})
	assert.Empty(t, v.Lines)
}

func TestCheckoutHappyPath(t *testing.T) {
	api := &fakeAPI{items: []catalog.Item{vreneli, maple}}
	s := newStartedSession(t, api)

	dispatch(t, s, AddItem{ID: "c1"})
	dispatch(t, s, AddItem{ID: "c2"})
	dispatch(t, s, OpenCheckout{})

	v := dispatch(t, s, SubmitCheckout{Name: " Ada ", Email: "ada@example.com"})
	assert.Equal(t, checkout.StateAwaitingPayment, v.Checkout.State)
	assert.True(t, v.Checkout.Amount.Equal(decimal.NewFromInt(150)))
	assert.Equal(t, "Ada", api.created[0].Name)

	loads := api.listCalls.Load()
	v = dispatch(t, s, ConfirmPayment{})
	assert.Equal(t, checkout.StateConfirmed, v.Checkout.State)
	assert.Empty(t, v.Lines)
	assert.Empty(t, v.Checkout.OrderID)
	assert.Equal(t, loads+1, api.listCalls.Load(), "catalog reloads after payment")

	it, err := s.Item(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, 1, it.Stock)

	v = dispatch(t, s, CloseCheckout{})
	assert.Equal(t, checkout.StateNone, v.Checkout.State)
}

func TestSubmitValidatesCustomer(t *testing.T) {
	api := &fakeAPI{items: []catalog.Item{vreneli}}
	s := newStartedSession(t, api)
	dispatch(t, s, AddItem{ID: "c1"})

	for _, in := range []SubmitCheckout{
		{Name: "", Email: "ada@example.com"},
		{Name: "Ada", Email: "not-an-email"},
	} {
		_, err := s.Dispatch(context.Background(), in)
		assert.ErrorIs(t, err, ErrInvalidInput)
	}
	assert.Zero(t, api.createCalls.Load())
}

func TestConfirmFailureDoesNotReload(t *testing.T) {
	api := &fakeAPI{
		items:       []catalog.Item{vreneli},
		confirmErrs: []error{&apierr.APIError{StatusCode: http.StatusBadRequest, Detail: "card declined"}},
	}
	s := newStartedSession(t, api)
	dispatch(t, s, AddItem{ID: "c1"})
	dispatch(t, s, SubmitCheckout{Name: "Ada", Email: "ada@example.com"})

	loads := api.listCalls.Load()
	v, err := s.Dispatch(context.Background(), ConfirmPayment{})
	require.Error(t, err)
	assert.False(t, IsNoop(err))
	assert.Equal(t, checkout.StateFailed, v.Checkout.State)
	assert.Equal(t, "card declined", v.Checkout.Message)
	assert.Equal(t, loads, api.listCalls.Load())

	v = dispatch(t, s, CancelPayment{})
	assert.Equal(t, checkout.StateCancelled, v.Checkout.State)
	assert.Len(t, v.Lines, 1)
}

func TestRefreshReconcilesCart(t *testing.T) {
	api := &fakeAPI{items: []catalog.Item{vreneli, maple}}
	s := newStartedSession(t, api)
	dispatch(t, s, AddItem{ID: "c1"})
	dispatch(t, s, AddItem{ID: "c1"})
	dispatch(t, s, AddItem{ID: "c2"})

	low := vreneli
	low.Stock = 1
	api.setItems(low)

	v := dispatch(t, s, Refresh{})
	require.Len(t, v.Lines, 1)
	assert.Equal(t, "c1", v.Lines[0].ItemID)
	assert.Equal(t, 1, v.Lines[0].Quantity)
}

func TestRefreshFailureKeepsState(t *testing.T) {
	api := &fakeAPI{items: []catalog.Item{vreneli}}
	s := newStartedSession(t, api)
	dispatch(t, s, AddItem{ID: "c1"})

	api.mu.Lock()
	api.listErr = apierr.Network("list coins", errors.New("timeout"))
	api.mu.Unlock()

	v, err := s.Dispatch(context.Background(), Refresh{})
	var netErr *apierr.NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Len(t, v.Items, 1)
	assert.Len(t, v.Lines, 1)
}

func TestItemFallsBackToAPI(t *testing.T) {
	api := &fakeAPI{items: []catalog.Item{vreneli}}
	s := newStartedSession(t, api)

	api.setItems(vreneli, maple)
	it, err := s.Item(context.Background(), "c2")
	require.NoError(t, err)
	assert.Equal(t, "Maple Leaf", it.Name)

	_, err = s.Item(context.Background(), "missing")
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestAuthSignals(t *testing.T) {
	api := &fakeAPI{user: &clients.User{Username: "ada"}}
	bus := events.NewBus()
	var seen []*clients.User
	bus.Subscribe(events.AuthChanged, func(p any) { seen = append(seen, p.(*clients.User)) })

	s := New(Deps{Catalog: api, Orders: api, Auth: api, Bus: bus})
	dispatch(t, s, CheckAuth{})
	v := dispatch(t, s, Logout{})

	assert.Nil(t, v.User)
	assert.Equal(t, int32(1), api.logoutCalls.Load())
	require.Len(t, seen, 2)
	assert.Equal(t, "ada", seen[0].Username)
	assert.Nil(t, seen[1])
}

func TestOrders(t *testing.T) {
	api := &fakeAPI{orders: []checkout.Order{{ID: "o1"}}}
	s := New(Deps{Catalog: api, Orders: api, Auth: api})

	orders, err := s.Orders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []checkout.Order{{ID: "o1"}}, orders)
}

func TestNoopIntents(t *testing.T) {
	s := newStartedSession(t, &fakeAPI{items: []catalog.Item{vreneli}})

	for _, intent := range []Intent{OpenCheckout{}, SubmitCheckout{Name: "Ada", Email: "ada@example.com"}, ConfirmPayment{}, CancelPayment{}} {
		_, err := s.Dispatch(context.Background(), intent)
		assert.True(t, IsNoop(err), "%T: %v", intent, err)
	}
}
