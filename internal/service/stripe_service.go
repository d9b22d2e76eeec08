package service

import (
	"fmt"
	"time"

	"ecfresh/internal/db"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/refund"
)

// Payments is the hosted card payment provider.
type Payments interface {
	CreateCheckoutSession(order *db.Order, customerEmail string) (url, sessionID string, err error)
	RefundPaymentBySessionID(sessionID string) error
	// ExpireCheckoutSession closes an unpaid session so it can no longer be paid.
	ExpireCheckoutSession(sessionID string) error
}

type StripeService struct {
	frontendURL string
}

func NewStripeService(secretKey, frontendURL string) *StripeService {
	stripe.Key = secretKey
	return &StripeService{frontendURL: frontendURL}
}

func (s *StripeService) RefundPaymentBySessionID(sessionID string) error {
	sess, err := session.Get(sessionID, nil)
	if err != nil {
		return err
	}
	if sess.PaymentIntent == nil || sess.PaymentIntent.ID == "" {
		return fmt.Errorf("no payment intent found for session %s", sessionID)
	}
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(sess.PaymentIntent.ID),
	}
	_, err = refund.New(params)
	return err
}

func (s *StripeService) ExpireCheckoutSession(sessionID string) error {
	_, err := session.Expire(sessionID, nil)
	return err
}

// CreateCheckoutSession charges the order total as one line, in paise.
func (s *StripeService) CreateCheckoutSession(order *db.Order, customerEmail string) (string, string, error) {
	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(string(stripe.CurrencyINR)),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String("EC Fresh order #" + shortID(order.ID)),
					},
					UnitAmount: stripe.Int64(MinorUnits(order.Total)),
				},
				Quantity: stripe.Int64(1),
			},
		},
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(s.frontendURL + "/order-success?order_id=" + order.ID + "&session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:         stripe.String(s.frontendURL + "/checkout?cancelled=" + order.ID),
		CustomerEmail:     stripe.String(customerEmail),
		ClientReferenceID: stripe.String(order.ID),
		// Stripe accepts no less than 30 minutes; the stale order job has
		// cancelled the order by then.
		ExpiresAt: stripe.Int64(time.Now().Add(PaymentTimeout + time.Minute).Unix()),
	}
	params.AddMetadata("order_id", order.ID)

	sess, err := session.New(params)
	if err != nil {
		return "", "", err
	}
	return sess.URL, sess.ID, nil
}

// MinorUnits converts rupees to paise, rounding half away from zero.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}
