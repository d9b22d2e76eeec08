package entities

import (
	"ecfresh/internal/db"
	"ecfresh/internal/pricing"

	"github.com/shopspring/decimal"
)

type SlotView struct {
	Date      string `json:"date"`
	Window    string `json:"time_slot"`
	Label     string `json:"label"`
	Available bool   `json:"available"`
}

type QuoteRequest struct {
	CartID     string `json:"cart_id" validate:"required"`
	UseLoyalty bool   `json:"use_loyalty"`
}

type QuoteResponse struct {
	Cart                  CartView        `json:"cart"`
	Pricing               pricing.Result  `json:"pricing"`
	LoyaltyBalance        decimal.Decimal `json:"loyalty_balance"`
	LoyaltyEligible       bool            `json:"loyalty_eligible"`
	IsFirstOrder          bool            `json:"is_first_order"`
	FreeDeliveryShortfall decimal.Decimal `json:"free_delivery_shortfall"`
}

// DeliveryDetails is the checkout form.
type DeliveryDetails struct {
	Name          string `json:"name" validate:"required"`
	Phone         string `json:"phone" validate:"required,phone"`
	Email         string `json:"email" validate:"required,email"`
	Address       string `json:"address" validate:"required"`
	PinCode       string `json:"pin_code" validate:"required,pincode"`
	Landmark      string `json:"landmark" validate:"required"`
	OptionalPhone string `json:"optional_phone" validate:"omitempty,phone"`
}

type PlaceOrderRequest struct {
	CartID        string           `json:"cart_id" validate:"required"`
	Details       DeliveryDetails  `json:"details"`
	DeliveryDate  string           `json:"delivery_date" validate:"required"`
	TimeSlot      string           `json:"time_slot" validate:"required,oneof=morning afternoon evening"`
	PaymentMethod db.PaymentMethod `json:"payment_method" validate:"required,oneof=cod online"`
	UseLoyalty    bool             `json:"use_loyalty"`
}

type PlaceOrderResponse struct {
	Order       *db.Order `json:"order"`
	CheckoutURL string    `json:"checkout_url,omitempty"`
}
