package cache

import (
	"context"
	"errors"
	"time"

	"ecfresh/internal/db"
)

var ErrCartNotFound = errors.New("cart not found")

// CartTTL is how long an untouched cart survives.
const CartTTL = 7 * 24 * time.Hour

type CartItem struct {
	ProductID string    `json:"product_id"`
	Weight    db.Weight `json:"weight"`
	Quantity  int       `json:"quantity"`
}

type Cart struct {
	ID        string     `json:"id"`
	Items     []CartItem `json:"items"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Find returns the index of the line for product and weight, or -1.
func (c *Cart) Find(productID string, weight db.Weight) int {
	for i, it := range c.Items {
		if it.ProductID == productID && it.Weight == weight {
			return i
		}
	}
	return -1
}

type CartStore interface {
	Get(ctx context.Context, cartID string) (*Cart, error)
	Save(ctx context.Context, cart *Cart) error
	Delete(ctx context.Context, cartID string) error
}

func cacheKey(cartID string) string {
	return "cart:" + cartID
}
