package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"ecfresh/internal/catalogcsv"
	"ecfresh/internal/db"
	"ecfresh/internal/entities"
	apperrors "ecfresh/internal/errors"
	"ecfresh/internal/repository"
	"ecfresh/internal/utils"

	"go.uber.org/zap"
)

// AdminService manages the catalog for the dashboard. Updates are JSON merge
// patches: fields absent from the body keep their stored value.
type AdminService struct {
	catalog repository.CatalogStore
	log     *zap.Logger
}

func NewAdminService(catalog repository.CatalogStore, log *zap.Logger) *AdminService {
	return &AdminService{catalog: catalog, log: log}
}

func (s *AdminService) ListBanners(ctx context.Context) ([]db.Banner, error) {
	return s.catalog.ListBanners(ctx, false)
}

func (s *AdminService) CreateBanner(ctx context.Context, b *db.Banner) error {
	if err := utils.Struct(b); err != nil {
		return apperrors.ErrBadRequest(err.Error())
	}
	return s.catalog.CreateBanner(ctx, b)
}

func (s *AdminService) UpdateBanner(ctx context.Context, id string, patch []byte) (*db.Banner, error) {
	b, err := s.catalog.GetBanner(ctx, id)
	if err != nil {
		return nil, mapStoreErr(err, "Banner")
	}
	if err := mergePatch(b, patch, &b.ID, &b.CreatedAt); err != nil {
		return nil, err
	}
	if err := s.catalog.UpdateBanner(ctx, b); err != nil {
		return nil, mapStoreErr(err, "Banner")
	}
	return b, nil
}

func (s *AdminService) DeleteBanner(ctx context.Context, id string) error {
	return mapStoreErr(s.catalog.DeleteBanner(ctx, id), "Banner")
}

func (s *AdminService) ListCategories(ctx context.Context) ([]db.Category, error) {
	return s.catalog.ListCategories(ctx, false)
}

func (s *AdminService) CreateCategory(ctx context.Context, c *db.Category) error {
	if err := utils.Struct(c); err != nil {
		return apperrors.ErrBadRequest(err.Error())
	}
	return s.catalog.CreateCategory(ctx, c)
}

func (s *AdminService) UpdateCategory(ctx context.Context, id string, patch []byte) (*db.Category, error) {
	c, err := s.catalog.GetCategory(ctx, id)
	if err != nil {
		return nil, mapStoreErr(err, "Category")
	}
	if err := mergePatch(c, patch, &c.ID, &c.CreatedAt); err != nil {
		return nil, err
	}
	if err := s.catalog.UpdateCategory(ctx, c); err != nil {
		return nil, mapStoreErr(err, "Category")
	}
	return c, nil
}

func (s *AdminService) DeleteCategory(ctx context.Context, id string) error {
	err := s.catalog.DeleteCategory(ctx, id)
	if errors.Is(err, repository.ErrConflict) {
		return apperrors.ErrConflict("Category still has products")
	}
	return mapStoreErr(err, "Category")
}

func (s *AdminService) ListProducts(ctx context.Context, f repository.ProductFilter) ([]db.Product, error) {
	return s.catalog.ListProducts(ctx, f)
}

func (s *AdminService) CreateProduct(ctx context.Context, p *db.Product) error {
	if err := s.checkProduct(ctx, p); err != nil {
		return err
	}
	return s.catalog.CreateProducts(ctx, []*db.Product{p})
}

func (s *AdminService) UpdateProduct(ctx context.Context, id string, patch []byte) (*db.Product, error) {
	p, err := s.catalog.GetProduct(ctx, id)
	if err != nil {
		return nil, mapStoreErr(err, "Product")
	}
	before := p.CategoryID
	if err := mergePatch(p, patch, &p.ID, &p.CreatedAt); err != nil {
		return nil, err
	}
	if p.CategoryID != before {
		if err := s.checkProduct(ctx, p); err != nil {
			return nil, err
		}
	}
	if err := s.catalog.UpdateProduct(ctx, p); err != nil {
		return nil, mapStoreErr(err, "Product")
	}
	return p, nil
}

func (s *AdminService) DeleteProduct(ctx context.Context, id string) error {
	return mapStoreErr(s.catalog.DeleteProduct(ctx, id), "Product")
}

// ImportProducts creates every valid row of a product sheet in one batch and
// reports the rest. An unreadable file yields zero successes and one error.
func (s *AdminService) ImportProducts(ctx context.Context, r io.Reader) (*entities.ImportResult, error) {
	resolve, err := s.categoryResolver(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := catalogcsv.Parse(r, resolve)
	if err != nil {
		return &entities.ImportResult{Errors: []string{"Failed to parse CSV file: " + err.Error()}}, nil
	}

	result := &entities.ImportResult{Errors: []string{}}
	var products []*db.Product
	for _, row := range rows {
		if row.Err != nil {
			result.Errors = append(result.Errors, row.Err.Error())
			continue
		}
		if err := utils.Struct(row.Product); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", row.Line, err))
			continue
		}
		products = append(products, row.Product)
	}
	if len(products) > 0 {
		if err := s.catalog.CreateProducts(ctx, products); err != nil {
			return nil, fmt.Errorf("importing products: %w", err)
		}
	}
	result.Success = len(products)
	s.log.Info("product import", zap.Int("created", result.Success), zap.Int("rejected", len(result.Errors)))
	return result, nil
}

func (s *AdminService) ExportProducts(ctx context.Context, w io.Writer) error {
	products, err := s.catalog.ListProducts(ctx, repository.ProductFilter{})
	if err != nil {
		return err
	}
	return catalogcsv.Write(w, products)
}

func (s *AdminService) ProductTemplate() []byte {
	return catalogcsv.Template()
}

func (s *AdminService) checkProduct(ctx context.Context, p *db.Product) error {
	if err := utils.Struct(p); err != nil {
		return apperrors.ErrBadRequest(err.Error())
	}
	if _, err := s.catalog.GetCategory(ctx, p.CategoryID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.ErrBadRequest("Category not found")
		}
		return err
	}
	return nil
}

// categoryResolver matches a sheet's category column by id, then by name.
func (s *AdminService) categoryResolver(ctx context.Context) (catalogcsv.CategoryResolver, error) {
	categories, err := s.catalog.ListCategories(ctx, false)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]bool, len(categories))
	byName := make(map[string]string, len(categories))
	for _, c := range categories {
		byID[c.ID] = true
		byName[strings.ToLower(c.Name)] = c.ID
	}
	return func(ref string) (string, bool) {
		if byID[ref] {
			return ref, true
		}
		id, ok := byName[strings.ToLower(ref)]
		return id, ok
	}, nil
}

// mergePatch applies a JSON merge patch to dst, keeping its identity fields,
// and validates the result.
func mergePatch[T any, ID any, TS any](dst *T, patch []byte, id *ID, created *TS) error {
	keepID, keepCreated := *id, *created
	if err := json.Unmarshal(patch, dst); err != nil {
		return apperrors.ErrBadRequest("Invalid request body")
	}
	*id, *created = keepID, keepCreated
	if err := utils.Struct(dst); err != nil {
		return apperrors.ErrBadRequest(err.Error())
	}
	return nil
}

func mapStoreErr(err error, kind string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.ErrNotFound(kind + " not found")
	}
	return err
}
