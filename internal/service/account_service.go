package service

import (
	"context"
	"errors"
	"fmt"

	"ecfresh/internal/auth"
	"ecfresh/internal/db"
	"ecfresh/internal/repository"

	"go.uber.org/zap"
)

// AccountService maps signed-in customers to their store accounts.
type AccountService struct {
	accounts repository.AccountDirectory
	orders   repository.OrderStore
	log      *zap.Logger
}

func NewAccountService(accounts repository.AccountDirectory, orders repository.OrderStore, log *zap.Logger) *AccountService {
	return &AccountService{accounts: accounts, orders: orders, log: log}
}

// Resolve returns the account of a signed-in customer. An account created
// at guest checkout with the same email is taken over by the customer's
// identity, together with its addresses and orders. ErrNotFound means the
// customer has never ordered.
func (s *AccountService) Resolve(ctx context.Context, c auth.Customer) (*db.User, error) {
	u, err := s.accounts.GetUser(ctx, c.ID)
	if err == nil || !errors.Is(err, repository.ErrNotFound) || c.Email == "" {
		return u, err
	}

	guest, err := s.accounts.GetUserByEmail(ctx, c.Email)
	if err != nil {
		return nil, err
	}
	if err := s.accounts.RekeyUser(ctx, guest.ID, c.ID); err != nil {
		return nil, fmt.Errorf("linking guest account %s: %w", guest.ID, err)
	}
	if err := s.orders.ReassignOrders(ctx, guest.ID, c.ID); err != nil {
		return nil, fmt.Errorf("moving guest orders to %s: %w", c.ID, err)
	}
	s.log.Info("linked guest account", zap.String("guest_id", guest.ID), zap.String("user_id", c.ID))
	guest.ID = c.ID
	return guest, nil
}
