package service

import (
	"context"
	"errors"
	"fmt"

	"ecfresh/internal/cache"
	"ecfresh/internal/db"
	"ecfresh/internal/entities"
	apperrors "ecfresh/internal/errors"
	"ecfresh/internal/pricing"
	"ecfresh/internal/repository"
	"ecfresh/internal/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MaxLineQuantity bounds a single cart line.
const MaxLineQuantity = 50

type CartService struct {
	carts   cache.CartStore
	catalog repository.CatalogStore
}

func NewCartService(carts cache.CartStore, catalog repository.CatalogStore) *CartService {
	return &CartService{carts: carts, catalog: catalog}
}

// NewCartID issues an id for a fresh cart.
func (s *CartService) NewCartID() string {
	return uuid.NewString()
}

// View prices the cart against the current catalog. Lines whose product was
// removed, made unavailable or lost the chosen weight are dropped.
func (s *CartService) View(ctx context.Context, cartID string) (*entities.CartView, error) {
	cart, err := s.load(ctx, cartID)
	if err != nil {
		return nil, err
	}
	return s.price(ctx, cart)
}

func (s *CartService) AddItem(ctx context.Context, cartID string, req entities.CartItemRequest) (*entities.CartView, error) {
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	if err := utils.Struct(req); err != nil {
		return nil, apperrors.ErrBadRequest(err.Error())
	}
	if _, err := s.orderable(ctx, req.ProductID, req.Weight); err != nil {
		return nil, err
	}

	cart, err := s.load(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if i := cart.Find(req.ProductID, req.Weight); i >= 0 {
		cart.Items[i].Quantity = min(cart.Items[i].Quantity+req.Quantity, MaxLineQuantity)
	} else {
		cart.Items = append(cart.Items, cache.CartItem{ProductID: req.ProductID, Weight: req.Weight, Quantity: req.Quantity})
	}
	if err := s.carts.Save(ctx, cart); err != nil {
		return nil, err
	}
	return s.price(ctx, cart)
}

// SetQuantity overwrites a line's quantity; zero removes the line.
func (s *CartService) SetQuantity(ctx context.Context, cartID string, req entities.CartItemRequest) (*entities.CartView, error) {
	if err := utils.Struct(req); err != nil {
		return nil, apperrors.ErrBadRequest(err.Error())
	}
	cart, err := s.load(ctx, cartID)
	if err != nil {
		return nil, err
	}
	i := cart.Find(req.ProductID, req.Weight)
	switch {
	case i < 0 && req.Quantity == 0:
		return s.price(ctx, cart)
	case i < 0:
		if _, err := s.orderable(ctx, req.ProductID, req.Weight); err != nil {
			return nil, err
		}
		cart.Items = append(cart.Items, cache.CartItem{ProductID: req.ProductID, Weight: req.Weight, Quantity: req.Quantity})
	case req.Quantity == 0:
		cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
	default:
		cart.Items[i].Quantity = req.Quantity
	}
	if err := s.carts.Save(ctx, cart); err != nil {
		return nil, err
	}
	return s.price(ctx, cart)
}

func (s *CartService) RemoveItem(ctx context.Context, cartID, productID string, weight db.Weight) (*entities.CartView, error) {
	return s.SetQuantity(ctx, cartID, entities.CartItemRequest{ProductID: productID, Weight: weight, Quantity: 0})
}

func (s *CartService) Clear(ctx context.Context, cartID string) error {
	if err := validCartID(cartID); err != nil {
		return err
	}
	return s.carts.Delete(ctx, cartID)
}

func (s *CartService) load(ctx context.Context, cartID string) (*cache.Cart, error) {
	if err := validCartID(cartID); err != nil {
		return nil, err
	}
	cart, err := s.carts.Get(ctx, cartID)
	if errors.Is(err, cache.ErrCartNotFound) {
		return &cache.Cart{ID: cartID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading cart %s: %w", cartID, err)
	}
	return cart, nil
}

func (s *CartService) orderable(ctx context.Context, productID string, weight db.Weight) (db.Variant, error) {
	p, err := s.catalog.GetProduct(ctx, productID)
	if errors.Is(err, repository.ErrNotFound) {
		return db.Variant{}, apperrors.ErrNotFound("Product not found")
	}
	if err != nil {
		return db.Variant{}, err
	}
	if !p.IsAvailable {
		return db.Variant{}, apperrors.ErrConflict(p.Name + " is currently unavailable")
	}
	v, ok := p.Variants.Find(weight)
	if !ok {
		return db.Variant{}, apperrors.ErrBadRequest(fmt.Sprintf("%s is not sold in %s", p.Name, weight))
	}
	return v, nil
}

func (s *CartService) price(ctx context.Context, cart *cache.Cart) (*entities.CartView, error) {
	view := &entities.CartView{ID: cart.ID, Items: []entities.CartLine{}}
	var lines []pricing.Line
	for _, it := range cart.Items {
		p, err := s.catalog.GetProduct(ctx, it.ProductID)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		v, ok := p.Variants.Find(it.Weight)
		if !p.IsAvailable || !ok || it.Quantity <= 0 {
			continue
		}
		view.Items = append(view.Items, entities.CartLine{
			ProductID: p.ID,
			Name:      p.Name,
			Image:     p.Image,
			Weight:    it.Weight,
			UnitPrice: v.Price,
			Quantity:  it.Quantity,
			LineTotal: v.Price.Mul(decimalInt(it.Quantity)),
		})
		view.ItemCount += it.Quantity
		lines = append(lines, pricing.Line{UnitPrice: v.Price, Quantity: it.Quantity})
	}
	view.Subtotal = pricing.Subtotal(lines)
	view.FreeDeliveryShortfall = pricing.FreeDeliveryShortfall(view.Subtotal)
	return view, nil
}

func validCartID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperrors.ErrBadRequest("invalid cart id")
	}
	return nil
}

func decimalInt(n int) decimal.Decimal {
	return decimal.NewFromInt(int64(n))
}
