// Package storefront owns one shopper's catalog, cart and checkout and turns
// View Layer intents into calls on them.
package storefront

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/checkout"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/clients"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/events"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/logging"
)

// ErrInvalidInput is a rejected intent argument; nothing happened.
var ErrInvalidInput = errors.New("invalid input")

type CatalogAPI interface {
	catalog.Source
	GetCoin(ctx context.Context, id string) (catalog.Item, error)
}

type OrderAPI interface {
	checkout.Gateway
	ListOrders(ctx context.Context) ([]checkout.Order, error)
}

type AuthAPI interface {
	Me(ctx context.Context) (*clients.User, error)
	Logout(ctx context.Context) error
}

type Deps struct {
	Catalog CatalogAPI
	Orders  OrderAPI
	Auth    AuthAPI

	// Bus carries the signals; a private bus is created when nil.
	Bus    *events.Bus
	Logger *zap.Logger
}

// Session is the explicit state of one storefront: catalog, cart, checkout
// attempt, filter and current user.
type Session struct {
	store    *catalog.Store
	cart     *cart.Cart
	checkout *checkout.Session

	catalogAPI CatalogAPI
	orders     OrderAPI
	auth       AuthAPI
	bus        *events.Bus
	logger     *zap.Logger

	mu     sync.Mutex
	filter catalog.Criterion
	user   *clients.User
}

func New(d Deps) *Session {
	bus := d.Bus
	if bus == nil {
		bus = events.NewBus()
	}
	logger := logging.OrNop(d.Logger)

	store := catalog.NewStore(d.Catalog, bus, logger.Named("catalog"))
	c := cart.New(store, bus)
	return &Session{
		store:      store,
		cart:       c,
		checkout:   checkout.NewSession(d.Orders, c, bus, logger.Named("checkout")),
		catalogAPI: d.Catalog,
		orders:     d.Orders,
		auth:       d.Auth,
		bus:        bus,
		logger:     logger,
		filter:     catalog.All(),
	}
}

// Start runs the page-load sequence: auth check, then catalog fetch. A
// failed fetch leaves an empty catalog and is returned for logging.
func (s *Session) Start(ctx context.Context) error {
	if err := (CheckAuth{}).apply(ctx, s); err != nil {
		s.logger.Warn("auth check failed", zap.Error(err))
	}
	return (Refresh{}).apply(ctx, s)
}

// Dispatch applies intent and returns the resulting view. A non-nil error
// either means nothing happened (see IsNoop) or carries the failure the
// shopper should see.
func (s *Session) Dispatch(ctx context.Context, intent Intent) (View, error) {
	err := intent.apply(ctx, s)
	if err != nil && !IsNoop(err) {
		s.logger.Debug("intent failed", zap.String("intent", fmt.Sprintf("%T", intent)), zap.Error(err))
	}
	return s.View(), err
}

// IsNoop reports whether err only says the intent was ignored.
func IsNoop(err error) bool {
	return checkout.IsNoop(err)
}

func (s *Session) Bus() *events.Bus { return s.bus }

// View is what the View Layer renders.
type View struct {
	Filter   catalog.Criterion
	Items    []catalog.Item
	Lines    []cart.Line
	Totals   cart.Totals
	Checkout checkout.Snapshot
	User     *clients.User
}

func (s *Session) View() View {
	s.mu.Lock()
	filter := s.filter
	user := s.user
	s.mu.Unlock()

	lines := s.cart.Lines()
	return View{
		Filter:   filter,
		Items:    slices.Collect(s.store.Filter(filter)),
		Lines:    lines,
		Totals:   cart.Summarize(lines),
		Checkout: s.checkout.Snapshot(),
		User:     user,
	}
}

// Item returns the catalog record for id, asking the API when the loaded
// catalog does not have it.
func (s *Session) Item(ctx context.Context, id string) (catalog.Item, error) {
	if it, err := s.store.Lookup(id); err == nil {
		return it, nil
	}
	it, err := s.catalogAPI.GetCoin(ctx, id)
	if err != nil {
		return catalog.Item{}, err
	}
	if err := it.Validate(); err != nil {
		return catalog.Item{}, fmt.Errorf("get coin %s: %w", id, err)
	}
	return it, nil
}

// Orders lists the current user's past orders.
func (s *Session) Orders(ctx context.Context) ([]checkout.Order, error) {
	return s.orders.ListOrders(ctx)
}

func (s *Session) User() *clients.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

func (s *Session) setUser(u *clients.User) {
	s.mu.Lock()
	s.user = u
	s.mu.Unlock()
	s.bus.Notify(events.AuthChanged, u)
}
