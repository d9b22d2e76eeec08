package service

import (
	"context"

	"ecfresh/internal/db"
	"ecfresh/internal/repository"
)

// CatalogService is the storefront's read-only view of the catalog.
type CatalogService struct {
	catalog repository.CatalogStore
}

func NewCatalogService(catalog repository.CatalogStore) *CatalogService {
	return &CatalogService{catalog: catalog}
}

func (s *CatalogService) Banners(ctx context.Context) ([]db.Banner, error) {
	return nonNil(s.catalog.ListBanners(ctx, true))
}

func (s *CatalogService) Categories(ctx context.Context) ([]db.Category, error) {
	return nonNil(s.catalog.ListCategories(ctx, true))
}

// Products lists products; unavailable ones are included so the storefront
// can show them as out of stock.
func (s *CatalogService) Products(ctx context.Context, f repository.ProductFilter) ([]db.Product, error) {
	return nonNil(s.catalog.ListProducts(ctx, f))
}

func (s *CatalogService) Product(ctx context.Context, id string) (*db.Product, error) {
	p, err := s.catalog.GetProduct(ctx, id)
	if err != nil {
		return nil, mapStoreErr(err, "Product")
	}
	return p, nil
}

func nonNil[T any](list []T, err error) ([]T, error) {
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []T{}
	}
	return list, nil
}
