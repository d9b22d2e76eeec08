package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"ecfresh/internal/auth"
	"ecfresh/internal/db"
	"ecfresh/internal/delivery"
	"ecfresh/internal/entities"
	apperrors "ecfresh/internal/errors"
	"ecfresh/internal/pricing"
	"ecfresh/internal/repository"
	"ecfresh/internal/utils"

	"go.uber.org/zap"
)

type CheckoutService struct {
	carts    *CartService
	accounts repository.AccountDirectory
	linker   *AccountService
	orders   repository.OrderStore
	payments Payments
	notifier Notifier
	loc      *time.Location
	log      *zap.Logger

	// Now is the clock used for slot cutoffs.
	Now func() time.Time
}

func NewCheckoutService(carts *CartService, accounts repository.AccountDirectory, orders repository.OrderStore,
	payments Payments, notifier Notifier, loc *time.Location, log *zap.Logger) *CheckoutService {
	return &CheckoutService{
		carts:    carts,
		accounts: accounts,
		linker:   NewAccountService(accounts, orders, log),
		orders:   orders,
		payments: payments,
		notifier: notifier,
		loc:      loc,
		log:      log,
		Now:      time.Now,
	}
}

// Slots lists the delivery windows of the next days as seen from the store's timezone.
func (s *CheckoutService) Slots() []entities.SlotView {
	slots := delivery.AvailableSlots(s.Now().In(s.loc))
	out := make([]entities.SlotView, 0, len(slots))
	for _, sl := range slots {
		out = append(out, entities.SlotView{
			Date:      sl.DateString(),
			Window:    string(sl.Window),
			Label:     delivery.Label(sl.Window),
			Available: sl.Available,
		})
	}
	return out
}

// Quote prices the cart for the caller. Loyalty points can only be redeemed
// by signed-in customers; guests see the first-order bonus.
func (s *CheckoutService) Quote(ctx context.Context, customer *auth.Customer, req entities.QuoteRequest) (*entities.QuoteResponse, error) {
	cart, err := s.carts.View(ctx, req.CartID)
	if err != nil {
		return nil, err
	}

	user := &db.User{}
	if customer != nil {
		u, err := s.linker.Resolve(ctx, *customer)
		switch {
		case err == nil:
			user = u
		case !errors.Is(err, repository.ErrNotFound):
			return nil, err
		}
	}

	result := pricing.Compute(cart.Subtotal, user.LoyaltyPoints, req.UseLoyalty && customer != nil, user.IsFirstOrder())
	return &entities.QuoteResponse{
		Cart:                  *cart,
		Pricing:               result,
		LoyaltyBalance:        user.LoyaltyPoints,
		LoyaltyEligible:       customer != nil && pricing.LoyaltyEligible(user.LoyaltyPoints),
		IsFirstOrder:          user.IsFirstOrder(),
		FreeDeliveryShortfall: cart.FreeDeliveryShortfall,
	}, nil
}

// PlaceOrder turns the cart into an order. Cash orders are confirmed at once;
// online orders stay pending until the payment webhook arrives.
func (s *CheckoutService) PlaceOrder(ctx context.Context, customer *auth.Customer, req entities.PlaceOrderRequest) (*entities.PlaceOrderResponse, error) {
	req.Details.Email = strings.TrimSpace(strings.ToLower(req.Details.Email))
	req.Details.Phone = utils.NormalizePhone(req.Details.Phone)
	if err := utils.Struct(req); err != nil {
		return nil, apperrors.ErrBadRequest(err.Error())
	}

	window, err := delivery.ParseWindow(req.TimeSlot)
	if err != nil {
		return nil, apperrors.ErrBadRequest(err.Error())
	}
	slot, ok := delivery.Find(delivery.AvailableSlots(s.Now().In(s.loc)), req.DeliveryDate, window)
	if !ok || !slot.Available {
		return nil, apperrors.ErrConflict("Selected delivery slot is no longer available, please choose another")
	}

	cart, err := s.carts.View(ctx, req.CartID)
	if err != nil {
		return nil, err
	}
	if len(cart.Items) == 0 {
		return nil, apperrors.ErrBadRequest("Your cart is empty")
	}

	user, err := s.resolveAccount(ctx, customer, req.Details)
	if err != nil {
		return nil, err
	}

	result := pricing.Compute(cart.Subtotal, user.LoyaltyPoints, req.UseLoyalty && customer != nil, user.IsFirstOrder())
	order := &db.Order{
		UserID:        user.ID,
		Subtotal:      result.Subtotal,
		DeliveryFee:   result.DeliveryFee,
		LoyaltyUsed:   result.LoyaltyDiscount,
		LoyaltyEarned: result.LoyaltyEarned,
		Total:         result.Total,
		DeliveryDate:  slot.DateString(),
		TimeSlot:      string(slot.Window),
		Address: db.Address{
			Name:          req.Details.Name,
			Phone:         req.Details.Phone,
			Address:       req.Details.Address,
			PinCode:       req.Details.PinCode,
			Landmark:      req.Details.Landmark,
			OptionalPhone: req.Details.OptionalPhone,
		},
		PaymentMethod: req.PaymentMethod,
	}
	for _, l := range cart.Items {
		order.Items = append(order.Items, db.OrderItem{
			ProductID: l.ProductID,
			Name:      l.Name,
			Image:     l.Image,
			Weight:    l.Weight,
			Price:     l.UnitPrice,
			Quantity:  l.Quantity,
		})
	}
	if req.PaymentMethod == db.PaymentOnline {
		order.Status = db.OrderStatusPending
		order.PaymentStatus = db.PaymentStatusPending
	} else {
		order.Status = db.OrderStatusConfirmed
		order.PaymentStatus = db.PaymentStatusNone
	}

	if err := s.orders.CreateOrder(ctx, order); err != nil {
		return nil, err
	}
	created := repository.StateOf(order)

	resp := &entities.PlaceOrderResponse{Order: order}
	if order.PaymentMethod == db.PaymentOnline {
		url, sessionID, err := s.payments.CreateCheckoutSession(order, user.Email)
		if err != nil {
			s.log.Error("creating checkout session", zap.String("order_id", order.ID), zap.Error(err))
			order.Status = db.OrderStatusCancelled
			order.PaymentStatus = db.PaymentStatusFailed
			if uerr := s.orders.UpdateOrder(ctx, order, created); uerr != nil {
				s.log.Error("cancelling unpaid order", zap.String("order_id", order.ID), zap.Error(uerr))
			}
			return nil, apperrors.NewHTTPError(http.StatusBadGateway, "Payment could not be started, please try again")
		}
		order.StripeSessionID = sessionID
		resp.CheckoutURL = url
	}
	if err := advance(ctx, s.accounts, s.orders, order, created); err != nil {
		return nil, err
	}

	s.saveProfile(ctx, user, req.Details)
	if err := s.carts.Clear(ctx, req.CartID); err != nil {
		s.log.Warn("clearing cart", zap.String("cart_id", req.CartID), zap.Error(err))
	}
	if order.Status == db.OrderStatusConfirmed {
		s.notifier.OrderUpdate(*order, user.Email)
	}

	s.log.Info("order placed",
		zap.String("order_id", order.ID),
		zap.String("user_id", user.ID),
		zap.String("payment_method", string(order.PaymentMethod)),
		zap.String("total", order.Total.String()))
	return resp, nil
}

// resolveAccount finds the buyer's account, creating it on first purchase.
// Guests are matched by email; signed-in customers take over the guest
// account of their email.
func (s *CheckoutService) resolveAccount(ctx context.Context, customer *auth.Customer, d entities.DeliveryDetails) (*db.User, error) {
	var (
		u   *db.User
		err error
	)
	if customer != nil {
		u, err = s.linker.Resolve(ctx, *customer)
	} else {
		u, err = s.accounts.GetUserByEmail(ctx, d.Email)
	}
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("resolving account: %w", err)
	}

	u = &db.User{Email: d.Email, Name: d.Name, Phone: d.Phone, PinCode: d.PinCode}
	if customer != nil {
		u.ID = customer.ID
		if customer.Email != "" {
			u.Email = strings.ToLower(customer.Email)
		}
	}
	if err := s.accounts.CreateUser(ctx, u); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, apperrors.ErrConflict("An account with this email already exists, please sign in")
		}
		return nil, fmt.Errorf("creating account: %w", err)
	}
	return u, nil
}

func (s *CheckoutService) saveProfile(ctx context.Context, u *db.User, d entities.DeliveryDetails) {
	u.Name, u.Phone, u.PinCode = d.Name, d.Phone, d.PinCode
	if err := s.accounts.UpdateProfile(ctx, u); err != nil {
		s.log.Warn("updating profile", zap.String("user_id", u.ID), zap.Error(err))
	}
	addr := &db.Address{
		UserID:        u.ID,
		Name:          d.Name,
		Phone:         d.Phone,
		Address:       d.Address,
		PinCode:       d.PinCode,
		Landmark:      d.Landmark,
		OptionalPhone: d.OptionalPhone,
	}
	if err := s.accounts.UpsertDefaultAddress(ctx, addr); err != nil {
		s.log.Warn("saving default address", zap.String("user_id", u.ID), zap.Error(err))
	}
}
