package db

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID             string          `json:"id"`
	Email          string          `json:"email"`
	Name           string          `json:"name"`
	Phone          string          `json:"phone"`
	PinCode        string          `json:"pin_code"`
	LoyaltyPoints  decimal.Decimal `json:"loyalty_points"`
	TotalPurchases decimal.Decimal `json:"total_purchases"`
	IsAdmin        bool            `json:"is_admin"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// IsFirstOrder reports whether the account has never completed a purchase.
func (u *User) IsFirstOrder() bool {
	return u.TotalPurchases.IsZero()
}

type Address struct {
	ID            string    `json:"id,omitempty"`
	UserID        string    `json:"user_id,omitempty"`
	Name          string    `json:"name"`
	Phone         string    `json:"phone"`
	Address       string    `json:"address"`
	PinCode       string    `json:"pin_code"`
	Landmark      string    `json:"landmark"`
	OptionalPhone string    `json:"optional_phone,omitempty"`
	IsDefault     bool      `json:"is_default,omitempty"`
	CreatedAt     time.Time `json:"created_at,omitempty"`
	UpdatedAt     time.Time `json:"updated_at,omitempty"`
}

// Value stores the address snapshot of an order as JSON.
func (a Address) Value() (driver.Value, error) {
	return json.Marshal(a)
}

func (a *Address) Scan(src any) error {
	return scanJSON(src, a)
}

type Banner struct {
	ID        string    `json:"id"`
	Title     string    `json:"title" validate:"required"`
	Image     string    `json:"image" validate:"required,url"`
	Order     int       `json:"order"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Category struct {
	ID        string    `json:"id"`
	Name      string    `json:"name" validate:"required"`
	Image     string    `json:"image" validate:"required,url"`
	Order     int       `json:"order"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Weight is a product weight tier.
type Weight string

const (
	Weight300g Weight = "300g"
	Weight500g Weight = "500g"
	Weight1kg  Weight = "1kg"
)

type Variant struct {
	Weight        Weight           `json:"weight" validate:"required,oneof=300g 500g 1kg"`
	Price         decimal.Decimal  `json:"price"`
	OriginalPrice *decimal.Decimal `json:"original_price,omitempty"`
}

type Variants []Variant

func (v Variants) Value() (driver.Value, error) {
	if v == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(v)
}

func (v *Variants) Scan(src any) error {
	return scanJSON(src, v)
}

// Find returns the variant for weight w.
func (v Variants) Find(w Weight) (Variant, bool) {
	for _, variant := range v {
		if variant.Weight == w {
			return variant, true
		}
	}
	return Variant{}, false
}

type Product struct {
	ID              string    `json:"id"`
	Name            string    `json:"name" validate:"required"`
	CategoryID      string    `json:"category_id" validate:"required"`
	Image           string    `json:"image" validate:"required"`
	Description     string    `json:"description"`
	NutritionalInfo string    `json:"nutritional_info,omitempty"`
	RecipeIdea      string    `json:"recipe_idea,omitempty"`
	Variants        Variants  `json:"variants" validate:"required,min=1,dive"`
	IsAvailable     bool      `json:"is_available"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusPacked    OrderStatus = "packed"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:   {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed: {OrderStatusPacked, OrderStatusCancelled},
	OrderStatusPacked:    {OrderStatusDelivered, OrderStatusCancelled},
}

// CanTransition reports whether an order may move from s to next.
func (s OrderStatus) CanTransition(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Final reports whether no further status change is possible.
func (s OrderStatus) Final() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

func ParseOrderStatus(s string) (OrderStatus, error) {
	switch st := OrderStatus(s); st {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusPacked, OrderStatusDelivered, OrderStatusCancelled:
		return st, nil
	}
	return "", errors.New("unknown order status " + s)
}

type PaymentMethod string

const (
	PaymentCashOnDelivery PaymentMethod = "cod"
	PaymentOnline         PaymentMethod = "online"
)

const (
	PaymentStatusPending  = "pending"
	PaymentStatusPaid     = "paid"
	PaymentStatusRefunded = "refunded"
	PaymentStatusFailed   = "failed"
	PaymentStatusNone     = "none"
)

type OrderItem struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Image     string          `json:"image"`
	Weight    Weight          `json:"weight"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

type OrderItems []OrderItem

func (o OrderItems) Value() (driver.Value, error) {
	if o == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(o)
}

func (o *OrderItems) Scan(src any) error {
	return scanJSON(src, o)
}

type Order struct {
	ID              string          `json:"id"`
	UserID          string          `json:"user_id"`
	Items           OrderItems      `json:"items"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	DeliveryFee     decimal.Decimal `json:"delivery_fee"`
	LoyaltyUsed     decimal.Decimal `json:"loyalty_used"`
	LoyaltyEarned   decimal.Decimal `json:"loyalty_earned"`
	Total           decimal.Decimal `json:"total"`
	DeliveryDate    string          `json:"delivery_date"`
	TimeSlot        string          `json:"time_slot"`
	Address         Address         `json:"address"`
	PaymentMethod   PaymentMethod   `json:"payment_method"`
	PaymentStatus   string          `json:"payment_status"`
	StripeSessionID string          `json:"-"`
	LoyaltyApplied  bool            `json:"-"`
	Status          OrderStatus     `json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func scanJSON(src any, dst any) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	}
	return errors.New("unsupported JSON column type")
}
