package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/apierr"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/events"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/logging"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/middleware"
)

var (
	// ErrInvalidState means the transition is not allowed right now; nothing happened.
	ErrInvalidState = errors.New("invalid checkout state")
	// ErrEmptyCart means there is nothing to order; nothing happened.
	ErrEmptyCart = errors.New("cart is empty")
)

const (
	msgOrderFailed   = "Error placing order"
	msgPaymentFailed = "Payment failed"
)

// IsNoop reports whether err only says the call was ignored.
func IsNoop(err error) bool {
	return errors.Is(err, ErrInvalidState) || errors.Is(err, ErrEmptyCart)
}

// Gateway is the order half of the storefront API.
type Gateway interface {
	CreateOrder(ctx context.Context, req OrderRequest) (CreatedOrder, error)
	ConfirmPayment(ctx context.Context, orderID string) error
}

// Cart is what checkout needs from the shopper's cart.
type Cart interface {
	Lines() []cart.Line
	IsEmpty() bool
	Clear()
}

// Session tracks one checkout attempt at a time. The mutex covers only the
// in-memory state; network calls run unlocked while the state sits in
// StateSubmitting or StateConfirming, which makes repeated calls no-ops.
type Session struct {
	gw     Gateway
	cart   Cart
	notify events.Notifier
	logger *zap.Logger

	mu       sync.Mutex
	state    State
	orderID  string
	customer Customer
	lines    []OrderLine
	amount   decimal.Decimal
	message  string
}

func NewSession(gw Gateway, c Cart, notify events.Notifier, logger *zap.Logger) *Session {
	if notify == nil {
		notify = events.Discard{}
	}
	return &Session{
		gw:     gw,
		cart:   c,
		notify: notify,
		logger: logging.OrNop(logger),
		state:  StateNone,
		amount: decimal.Zero,
	}
}

// Open checks that a checkout form may be shown.
func (s *Session) Open() error {
	if s.cart.IsEmpty() {
		return ErrEmptyCart
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.idle() {
		return fmt.Errorf("open checkout in %s: %w", s.state, ErrInvalidState)
	}
	return nil
}

// Submit creates the server-side order from a copy of the cart. On success
// the session waits for payment; on failure it moves to StateFailed with a
// display message and the cart is left as it was.
func (s *Session) Submit(ctx context.Context, customer Customer) (Snapshot, error) {
	lines := s.cart.Lines()

	s.mu.Lock()
	if len(lines) == 0 {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap, ErrEmptyCart
	}
	if !s.state.idle() {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap, fmt.Errorf("submit in %s: %w", snap.State, ErrInvalidState)
	}

	req := OrderRequest{
		Customer:      customer,
		Items:         orderLines(lines),
		PaymentMethod: PaymentMethodTwint,
	}
	amount := cart.Summarize(lines).TotalPrice

	if s.orderID != "" {
		s.logger.Info("order abandoned by resubmission without server cancellation", zap.String("order_id", s.orderID))
	}
	cid := middleware.GetCorrelationID(ctx)
	s.customer = customer
	s.lines = req.Items
	s.orderID = ""
	s.amount = decimal.Zero
	s.message = ""
	started := s.moveLocked(StateSubmitting)
	started.CorrelationID = cid
	s.mu.Unlock()
	s.emit(started)

	created, err := s.gw.CreateOrder(ctx, req)
	if err == nil && created.ID == "" {
		err = apierr.Network("create order", errors.New("response has no order id"))
	}

	s.mu.Lock()
	var done Transition
	if err != nil {
		s.message = apierr.DisplayMessage(err, msgOrderFailed)
		done = s.moveLocked(StateFailed)
	} else {
		s.orderID = created.ID
		s.amount = amount
		done = s.moveLocked(StateAwaitingPayment)
		if created.Total != nil && !created.Total.Equal(amount) {
			s.logger.Warn("server order total differs from cart",
				zap.String("order_id", created.ID),
				zap.String("cart_total", amount.String()),
				zap.String("server_total", created.Total.String()))
		}
	}
	done.CorrelationID = cid
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.emit(done)

	if err != nil {
		s.logger.Warn("order submission failed", zap.Error(err))
		return snap, fmt.Errorf("submit order: %w", err)
	}
	s.logger.Info("order submitted", zap.String("order_id", snap.OrderID), zap.String("amount", snap.Amount.String()))
	return snap, nil
}

// Confirm confirms payment for the pending order. It runs from
// StateAwaitingPayment, or from StateFailed when the failed step was the
// confirmation itself and the order id is still held. Anything else is a
// no-op.
func (s *Session) Confirm(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	if !s.canConfirmLocked() {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap, fmt.Errorf("confirm in %s: %w", snap.State, ErrInvalidState)
	}
	orderID := s.orderID
	cid := middleware.GetCorrelationID(ctx)
	s.message = ""
	started := s.moveLocked(StateConfirming)
	started.CorrelationID = cid
	s.mu.Unlock()
	s.emit(started)

	err := s.gw.ConfirmPayment(ctx, orderID)

	if err != nil {
		s.mu.Lock()
		s.message = apierr.DisplayMessage(err, msgPaymentFailed)
		failed := s.moveLocked(StateFailed)
		failed.CorrelationID = cid
		snap := s.snapshotLocked()
		s.mu.Unlock()
		s.emit(failed)

		s.logger.Warn("payment confirmation failed", zap.String("order_id", orderID), zap.Error(err))
		return snap, fmt.Errorf("confirm payment: %w", err)
	}

	s.cart.Clear()

	s.mu.Lock()
	confirmed := s.moveLocked(StateConfirmed)
	confirmed.OrderID = orderID
	confirmed.CorrelationID = cid
	s.orderID = ""
	s.lines = nil
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.emit(confirmed)

	s.logger.Info("payment confirmed", zap.String("order_id", orderID), zap.String("amount", snap.Amount.String()))
	return snap, nil
}

func (s *Session) canConfirmLocked() bool {
	if s.orderID == "" {
		return false
	}
	return s.state == StateAwaitingPayment || s.state == StateFailed
}

// Cancel abandons the pending order locally. The server is not told; the
// order stays open there.
func (s *Session) Cancel() (Snapshot, error) {
	s.mu.Lock()
	if s.state != StateAwaitingPayment && s.state != StateFailed {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap, fmt.Errorf("cancel in %s: %w", snap.State, ErrInvalidState)
	}
	if s.orderID != "" {
		s.logger.Info("order abandoned without server cancellation", zap.String("order_id", s.orderID))
	}
	s.orderID = ""
	s.lines = nil
	s.message = ""
	t := s.moveLocked(StateCancelled)
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.emit(t)
	return snap, nil
}

// Reset drops whatever attempt is held and returns to StateNone. It refuses
// while a call is in flight.
func (s *Session) Reset() error {
	s.mu.Lock()
	if s.state.InFlight() {
		st := s.state
		s.mu.Unlock()
		return fmt.Errorf("reset in %s: %w", st, ErrInvalidState)
	}
	if s.state == StateNone {
		s.mu.Unlock()
		return nil
	}
	s.orderID = ""
	s.customer = Customer{}
	s.lines = nil
	s.amount = decimal.Zero
	s.message = ""
	t := s.moveLocked(StateNone)
	s.mu.Unlock()
	s.emit(t)
	return nil
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) OrderID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orderID
}

func (s *Session) moveLocked(to State) Transition {
	from := s.state
	s.state = to
	return Transition{From: from, To: to, OrderID: s.orderID, Amount: s.amount, Message: s.message}
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		State:    s.state,
		OrderID:  s.orderID,
		Customer: s.customer,
		Lines:    append([]OrderLine(nil), s.lines...),
		Amount:   s.amount,
		Message:  s.message,
	}
}

func (s *Session) emit(t Transition) {
	s.logger.Debug("checkout transition", zap.String("from", string(t.From)), zap.String("to", string(t.To)))
	s.notify.Notify(events.OrderStateChanged, t)
}
