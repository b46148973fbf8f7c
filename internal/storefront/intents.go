package storefront

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"go.uber.org/zap"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/checkout"
)

// Intent is one View Layer command.
type Intent interface {
	apply(ctx context.Context, s *Session) error
}

type FilterBy struct{ Criterion catalog.Criterion }

func (i FilterBy) apply(_ context.Context, s *Session) error {
	s.mu.Lock()
	s.filter = i.Criterion
	s.mu.Unlock()
	return nil
}

type AddItem struct{ ID string }

func (i AddItem) apply(_ context.Context, s *Session) error {
	if err := s.cart.Add(i.ID); err != nil {
		s.logger.Debug("add to cart refused", zap.String("item_id", i.ID), zap.Error(err))
		return err
	}
	return nil
}

type RemoveItem struct{ ID string }

func (i RemoveItem) apply(_ context.Context, s *Session) error {
	s.cart.Remove(i.ID)
	return nil
}

type ClearCart struct{}

func (ClearCart) apply(_ context.Context, s *Session) error {
	s.cart.Clear()
	return nil
}

type OpenCheckout struct{}

func (OpenCheckout) apply(_ context.Context, s *Session) error {
	return s.checkout.Open()
}

type SubmitCheckout struct {
	Name  string
	Email string
}

func (i SubmitCheckout) apply(ctx context.Context, s *Session) error {
	customer := checkout.Customer{Name: strings.TrimSpace(i.Name), Email: strings.TrimSpace(i.Email)}
	if customer.Name == "" {
		return fmt.Errorf("name is required: %w", ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(customer.Email); err != nil {
		return fmt.Errorf("email %q: %w", customer.Email, ErrInvalidInput)
	}
	_, err := s.checkout.Submit(ctx, customer)
	return err
}

// ConfirmPayment confirms the pending order. After a confirmed payment the
// catalog is reloaded so stock reflects the purchase.
type ConfirmPayment struct{}

func (ConfirmPayment) apply(ctx context.Context, s *Session) error {
	if _, err := s.checkout.Confirm(ctx); err != nil {
		return err
	}
	if err := (Refresh{}).apply(ctx, s); err != nil {
		s.logger.Warn("catalog refresh after payment failed", zap.Error(err))
	}
	return nil
}

type CancelPayment struct{}

func (CancelPayment) apply(_ context.Context, s *Session) error {
	_, err := s.checkout.Cancel()
	return err
}

// CloseCheckout dismisses a finished or abandoned attempt.
type CloseCheckout struct{}

func (CloseCheckout) apply(_ context.Context, s *Session) error {
	return s.checkout.Reset()
}

// Refresh reloads the catalog and brings the cart in line with it.
type Refresh struct{}

func (Refresh) apply(ctx context.Context, s *Session) error {
	if err := s.store.Load(ctx); err != nil {
		return err
	}
	s.cart.Reconcile()
	return nil
}

// CheckAuth asks the API who is logged in. A failed check counts as
// anonymous.
type CheckAuth struct{}

func (CheckAuth) apply(ctx context.Context, s *Session) error {
	u, err := s.auth.Me(ctx)
	if err != nil {
		s.setUser(nil)
		return fmt.Errorf("check auth: %w", err)
	}
	s.setUser(u)
	return nil
}

type Logout struct{}

func (Logout) apply(ctx context.Context, s *Session) error {
	if err := s.auth.Logout(ctx); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	s.setUser(nil)
	return nil
}
