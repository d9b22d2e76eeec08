package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"ecfresh/internal/catalogcsv"
	"ecfresh/internal/db"
	apperrors "ecfresh/internal/errors"
	"ecfresh/internal/repository"

	"go.uber.org/zap"
)

type OrderService struct {
	orders   repository.OrderStore
	accounts repository.AccountDirectory
	payments Payments
	notifier Notifier
	loc      *time.Location
	log      *zap.Logger
}

func NewOrderService(orders repository.OrderStore, accounts repository.AccountDirectory, payments Payments,
	notifier Notifier, loc *time.Location, log *zap.Logger) *OrderService {
	return &OrderService{orders: orders, accounts: accounts, payments: payments, notifier: notifier, loc: loc, log: log}
}

// History lists a customer's orders, newest first.
func (s *OrderService) History(ctx context.Context, userID string) ([]db.Order, error) {
	orders, err := s.orders.ListOrders(ctx, repository.OrderFilter{UserID: userID})
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []db.Order{}
	}
	return orders, nil
}

// Get returns one of the customer's own orders.
func (s *OrderService) Get(ctx context.Context, userID, orderID string) (*db.Order, error) {
	o, err := s.orders.GetOrder(ctx, orderID)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && o.UserID != userID) {
		return nil, apperrors.ErrNotFound("Order not found")
	}
	return o, err
}

// Cancel is the customer-initiated cancellation.
func (s *OrderService) Cancel(ctx context.Context, userID, orderID string) (*db.Order, error) {
	o, err := s.Get(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status.Final() {
		return nil, apperrors.ErrConflict(fmt.Sprintf("Order is already %s and cannot be cancelled", o.Status))
	}
	if err := s.cancel(ctx, o); err != nil {
		return nil, staleConflict(err)
	}
	s.notify(ctx, *o)
	return o, nil
}

// List is the admin order list, optionally filtered by status.
func (s *OrderService) List(ctx context.Context, status string) ([]db.Order, error) {
	f := repository.OrderFilter{}
	if status != "" && status != "all" {
		st, err := db.ParseOrderStatus(status)
		if err != nil {
			return nil, apperrors.ErrBadRequest(err.Error())
		}
		f.Status = st
	}
	orders, err := s.orders.ListOrders(ctx, f)
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []db.Order{}
	}
	return orders, nil
}

// UpdateStatus moves an order along pending, confirmed, packed, delivered;
// any non-final order may be cancelled.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID, status string) (*db.Order, error) {
	next, err := db.ParseOrderStatus(status)
	if err != nil {
		return nil, apperrors.ErrBadRequest(err.Error())
	}
	o, err := s.orders.GetOrder(ctx, orderID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.ErrNotFound("Order not found")
	}
	if err != nil {
		return nil, err
	}
	if !o.Status.CanTransition(next) {
		return nil, apperrors.ErrConflict(fmt.Sprintf("cannot change order from %s to %s", o.Status, next))
	}

	if next == db.OrderStatusCancelled {
		err = s.cancel(ctx, o)
	} else {
		prev := repository.StateOf(o)
		o.Status = next
		if next == db.OrderStatusDelivered && o.PaymentMethod == db.PaymentCashOnDelivery {
			o.PaymentStatus = db.PaymentStatusPaid
		}
		err = s.advance(ctx, o, prev)
	}
	if err != nil {
		return nil, staleConflict(err)
	}
	s.notify(ctx, *o)
	return o, nil
}

// maxStaleRetries bounds how often a webhook re-reads an order that changed under it.
const maxStaleRetries = 3

// ConfirmPayment handles a completed checkout session. Repeated deliveries
// of the same event are no-ops. A payment that lands after the order was
// cancelled is refunded.
func (s *OrderService) ConfirmPayment(ctx context.Context, sessionID string) (*db.Order, error) {
	var err error
	for attempt := 0; attempt < maxStaleRetries; attempt++ {
		var o *db.Order
		o, err = s.orders.GetOrderByStripeSession(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		switch {
		case o.Status == db.OrderStatusPending:
			prev := repository.StateOf(o)
			o.Status = db.OrderStatusConfirmed
			o.PaymentStatus = db.PaymentStatusPaid
			if err = s.advance(ctx, o, prev); err == nil {
				s.notify(ctx, *o)
				return o, nil
			}
		case o.Status == db.OrderStatusCancelled && o.PaymentMethod == db.PaymentOnline &&
			o.PaymentStatus != db.PaymentStatusRefunded:
			if err = s.refundLatePayment(ctx, o); err == nil {
				return o, nil
			}
		default:
			s.log.Info("payment already processed", zap.String("order_id", o.ID), zap.String("status", string(o.Status)))
			return o, nil
		}
		if !errors.Is(err, repository.ErrStale) {
			return nil, err
		}
	}
	return nil, err
}

// ExpireSession cancels the order behind an abandoned checkout session.
func (s *OrderService) ExpireSession(ctx context.Context, sessionID string) (*db.Order, error) {
	var err error
	for attempt := 0; attempt < maxStaleRetries; attempt++ {
		var o *db.Order
		o, err = s.orders.GetOrderByStripeSession(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		if o.Status != db.OrderStatusPending {
			return o, nil
		}
		prev := repository.StateOf(o)
		o.Status = db.OrderStatusCancelled
		o.PaymentStatus = db.PaymentStatusFailed
		if err = s.orders.UpdateOrder(ctx, o, prev); err == nil {
			return o, nil
		}
		if !errors.Is(err, repository.ErrStale) {
			return nil, err
		}
	}
	return nil, err
}

// CancelStalePending cancels online orders still unpaid at before and
// closes their checkout sessions.
func (s *OrderService) CancelStalePending(ctx context.Context, before time.Time) (int, error) {
	stale, err := s.orders.ListStalePending(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("listing stale orders: %w", err)
	}
	n := 0
	for i := range stale {
		o := &stale[i]
		prev := repository.StateOf(o)
		o.Status = db.OrderStatusCancelled
		o.PaymentStatus = db.PaymentStatusFailed
		if err := s.orders.UpdateOrder(ctx, o, prev); err != nil {
			if errors.Is(err, repository.ErrStale) {
				s.log.Info("stale order changed before cancellation", zap.String("order_id", o.ID))
			} else {
				s.log.Error("cancelling stale order", zap.String("order_id", o.ID), zap.Error(err))
			}
			continue
		}
		s.expireSession(o)
		n++
	}
	return n, nil
}

func (s *OrderService) Export(ctx context.Context, w io.Writer, status string) error {
	orders, err := s.List(ctx, status)
	if err != nil {
		return err
	}
	return catalogcsv.WriteOrders(w, orders, s.loc)
}

// advance persists o, then books its loyalty points and purchase total if
// this update is the one that moved it past pending.
func (s *OrderService) advance(ctx context.Context, o *db.Order, prev repository.OrderState) error {
	return advance(ctx, s.accounts, s.orders, o, prev)
}

// cancel claims the cancellation first, so concurrent callers cannot both
// refund or reverse loyalty, then undoes payment and loyalty bookkeeping.
func (s *OrderService) cancel(ctx context.Context, o *db.Order) error {
	prev := repository.StateOf(o)
	refund := o.PaymentMethod == db.PaymentOnline && o.PaymentStatus == db.PaymentStatusPaid
	openSession := o.PaymentStatus == db.PaymentStatusPending && o.StripeSessionID != ""
	reverse := o.LoyaltyApplied

	o.Status = db.OrderStatusCancelled
	o.LoyaltyApplied = false
	if refund {
		o.PaymentStatus = db.PaymentStatusRefunded
	} else if o.PaymentStatus == db.PaymentStatusPending {
		o.PaymentStatus = db.PaymentStatusFailed
	}
	if err := s.orders.UpdateOrder(ctx, o, prev); err != nil {
		prev.Restore(o)
		return err
	}

	loyalty, purchases := o.LoyaltyUsed.Sub(o.LoyaltyEarned), o.Subtotal.Neg()
	if reverse {
		if err := s.accounts.AdjustBalances(ctx, o.UserID, loyalty, purchases); err != nil {
			s.release(ctx, o, prev)
			return fmt.Errorf("reverting loyalty for order %s: %w", o.ID, err)
		}
	}
	if refund {
		if err := s.payments.RefundPaymentBySessionID(o.StripeSessionID); err != nil {
			s.log.Error("refund failed", zap.String("order_id", o.ID), zap.Error(err))
			if reverse {
				if aerr := s.accounts.AdjustBalances(ctx, o.UserID, loyalty.Neg(), purchases.Neg()); aerr != nil {
					s.log.Error("restoring loyalty after failed refund", zap.String("order_id", o.ID), zap.Error(aerr))
				}
			}
			s.release(ctx, o, prev)
			return apperrors.NewHTTPError(http.StatusBadGateway, "Refund could not be issued, please try again")
		}
	}
	if openSession {
		s.expireSession(o)
	}
	return nil
}

// refundLatePayment refunds a session paid after its order was cancelled.
func (s *OrderService) refundLatePayment(ctx context.Context, o *db.Order) error {
	prev := repository.StateOf(o)
	o.PaymentStatus = db.PaymentStatusRefunded
	if err := s.orders.UpdateOrder(ctx, o, prev); err != nil {
		return err
	}
	if err := s.payments.RefundPaymentBySessionID(o.StripeSessionID); err != nil {
		s.release(ctx, o, prev)
		return fmt.Errorf("refunding late payment for order %s: %w", o.ID, err)
	}
	s.log.Warn("refunded payment for cancelled order", zap.String("order_id", o.ID), zap.String("session_id", o.StripeSessionID))
	return nil
}

// release puts a claimed order back to prev after a failed side effect.
func (s *OrderService) release(ctx context.Context, o *db.Order, prev repository.OrderState) {
	claimed := repository.StateOf(o)
	prev.Restore(o)
	if err := s.orders.UpdateOrder(ctx, o, claimed); err != nil {
		s.log.Error("releasing order", zap.String("order_id", o.ID), zap.Error(err))
	}
}

// expireSession closes the checkout session of an order that will not be paid.
// A session that still gets paid is refunded by ConfirmPayment.
func (s *OrderService) expireSession(o *db.Order) {
	if o.StripeSessionID == "" {
		return
	}
	if err := s.payments.ExpireCheckoutSession(o.StripeSessionID); err != nil {
		s.log.Warn("expiring checkout session", zap.String("order_id", o.ID), zap.String("session_id", o.StripeSessionID), zap.Error(err))
	}
}

func (s *OrderService) notify(ctx context.Context, o db.Order) {
	u, err := s.accounts.GetUser(ctx, o.UserID)
	if err != nil {
		s.log.Warn("no account for order notification", zap.String("order_id", o.ID), zap.Error(err))
		return
	}
	s.notifier.OrderUpdate(o, u.Email)
}

// advance writes o over prev. When the write moves the order past pending
// for the first time it also books loyalty and purchases; a failed booking
// puts the order back to prev so a retry books it again.
func advance(ctx context.Context, accounts repository.AccountDirectory, orders repository.OrderStore, o *db.Order, prev repository.OrderState) error {
	book := o.Status != db.OrderStatusPending && o.Status != db.OrderStatusCancelled && !o.LoyaltyApplied
	if book {
		o.LoyaltyApplied = true
	}
	if err := orders.UpdateOrder(ctx, o, prev); err != nil {
		return err
	}
	if !book {
		return nil
	}
	if err := accounts.AdjustBalances(ctx, o.UserID, o.LoyaltyEarned.Sub(o.LoyaltyUsed), o.Subtotal); err != nil {
		claimed := repository.StateOf(o)
		prev.Restore(o)
		if rerr := orders.UpdateOrder(ctx, o, claimed); rerr != nil {
			return fmt.Errorf("applying loyalty for order %s: %w (releasing order: %v)", o.ID, err, rerr)
		}
		return fmt.Errorf("applying loyalty for order %s: %w", o.ID, err)
	}
	return nil
}

// staleConflict maps a lost compare-and-set to a conflict the caller can retry.
func staleConflict(err error) error {
	if errors.Is(err, repository.ErrStale) {
		return apperrors.ErrConflict("Order was updated by someone else, please reload and try again")
	}
	return err
}
