package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ecfresh/internal/db"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflicts with existing data")
	// ErrStale is returned when an order no longer holds the state an update was based on.
	ErrStale = fmt.Errorf("order changed concurrently: %w", ErrConflict)
)

// OrderState is the part of an order that UpdateOrder compares before writing.
type OrderState struct {
	Status         db.OrderStatus
	PaymentStatus  string
	LoyaltyApplied bool
}

func StateOf(o *db.Order) OrderState {
	return OrderState{Status: o.Status, PaymentStatus: o.PaymentStatus, LoyaltyApplied: o.LoyaltyApplied}
}

// Restore puts the compared fields of o back to s.
func (s OrderState) Restore(o *db.Order) {
	o.Status, o.PaymentStatus, o.LoyaltyApplied = s.Status, s.PaymentStatus, s.LoyaltyApplied
}

// AccountDirectory stores customer accounts and their delivery addresses.
type AccountDirectory interface {
	GetUser(ctx context.Context, id string) (*db.User, error)
	GetUserByEmail(ctx context.Context, email string) (*db.User, error)
	CreateUser(ctx context.Context, u *db.User) error
	UpdateProfile(ctx context.Context, u *db.User) error
	// AdjustBalances adds the deltas to the user's loyalty points and total purchases.
	AdjustBalances(ctx context.Context, userID string, loyaltyDelta, purchasesDelta decimal.Decimal) error
	UpsertDefaultAddress(ctx context.Context, a *db.Address) error
	ListAddresses(ctx context.Context, userID string) ([]db.Address, error)
	// RekeyUser changes a user's id, carrying addresses along.
	RekeyUser(ctx context.Context, oldID, newID string) error
}

type ProductFilter struct {
	CategoryID    string
	Query         string
	AvailableOnly bool
}

type CatalogStore interface {
	ListBanners(ctx context.Context, activeOnly bool) ([]db.Banner, error)
	GetBanner(ctx context.Context, id string) (*db.Banner, error)
	CreateBanner(ctx context.Context, b *db.Banner) error
	UpdateBanner(ctx context.Context, b *db.Banner) error
	DeleteBanner(ctx context.Context, id string) error

	ListCategories(ctx context.Context, activeOnly bool) ([]db.Category, error)
	GetCategory(ctx context.Context, id string) (*db.Category, error)
	CreateCategory(ctx context.Context, c *db.Category) error
	UpdateCategory(ctx context.Context, c *db.Category) error
	DeleteCategory(ctx context.Context, id string) error

	ListProducts(ctx context.Context, f ProductFilter) ([]db.Product, error)
	GetProduct(ctx context.Context, id string) (*db.Product, error)
	// CreateProducts inserts all products or none.
	CreateProducts(ctx context.Context, products []*db.Product) error
	UpdateProduct(ctx context.Context, p *db.Product) error
	DeleteProduct(ctx context.Context, id string) error
}

type OrderFilter struct {
	UserID string
	Status db.OrderStatus
}

type OrderStore interface {
	CreateOrder(ctx context.Context, o *db.Order) error
	GetOrder(ctx context.Context, id string) (*db.Order, error)
	GetOrderByStripeSession(ctx context.Context, sessionID string) (*db.Order, error)
	ListOrders(ctx context.Context, f OrderFilter) ([]db.Order, error)
	// UpdateOrder persists status, payment and loyalty bookkeeping fields.
	// The write only happens while the stored order still matches prev;
	// otherwise it fails with ErrStale.
	UpdateOrder(ctx context.Context, o *db.Order, prev OrderState) error
	// ReassignOrders moves every order of one customer to another.
	ReassignOrders(ctx context.Context, fromUserID, toUserID string) error
	// ListStalePending returns online orders still awaiting payment that were
	// created before the given time.
	ListStalePending(ctx context.Context, before time.Time) ([]db.Order, error)
}

// Store is the product and order backend used by the storefront.
type Store interface {
	CatalogStore
	OrderStore
}
