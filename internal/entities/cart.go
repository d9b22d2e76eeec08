package entities

import (
	"ecfresh/internal/db"

	"github.com/shopspring/decimal"
)

type CartItemRequest struct {
	ProductID string    `json:"product_id" validate:"required"`
	Weight    db.Weight `json:"weight" validate:"required,oneof=300g 500g 1kg"`
	Quantity  int       `json:"quantity" validate:"gte=0,lte=50"`
}

type CartLine struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Image     string          `json:"image"`
	Weight    db.Weight       `json:"weight"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
}

type CartView struct {
	ID                    string          `json:"id"`
	Items                 []CartLine      `json:"items"`
	ItemCount             int             `json:"item_count"`
	Subtotal              decimal.Decimal `json:"subtotal"`
	FreeDeliveryShortfall decimal.Decimal `json:"free_delivery_shortfall"`
}
