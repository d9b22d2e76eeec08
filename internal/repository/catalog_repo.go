package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"ecfresh/internal/db"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// CatalogRepository is the PostgreSQL CatalogStore.
type CatalogRepository struct {
	DB *sql.DB
}

func NewCatalogRepository(conn *sql.DB) *CatalogRepository {
	return &CatalogRepository{DB: conn}
}

func (r *CatalogRepository) ListBanners(ctx context.Context, activeOnly bool) ([]db.Banner, error) {
	query := `SELECT id, title, image, "order", is_active, created_at, updated_at FROM banners`
	if activeOnly {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY "order", created_at`

	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error querying banners: %w", err)
	}
	defer rows.Close()

	var banners []db.Banner
	for rows.Next() {
		var b db.Banner
		if err := rows.Scan(&b.ID, &b.Title, &b.Image, &b.Order, &b.IsActive, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("error scanning banner: %w", err)
		}
		banners = append(banners, b)
	}
	return banners, rows.Err()
}

func (r *CatalogRepository) GetBanner(ctx context.Context, id string) (*db.Banner, error) {
	var b db.Banner
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, title, image, "order", is_active, created_at, updated_at FROM banners WHERE id = $1`, id).
		Scan(&b.ID, &b.Title, &b.Image, &b.Order, &b.IsActive, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, notFound(err, "banner", id)
	}
	return &b, nil
}

func (r *CatalogRepository) CreateBanner(ctx context.Context, b *db.Banner) error {
	stamp(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO banners (id, title, image, "order", is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		b.ID, b.Title, b.Image, b.Order, b.IsActive, b.CreatedAt, b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error creating banner: %w", err)
	}
	return nil
}

func (r *CatalogRepository) UpdateBanner(ctx context.Context, b *db.Banner) error {
	b.UpdatedAt = time.Now().UTC()
	res, err := r.DB.ExecContext(ctx, `
		UPDATE banners SET title = $2, image = $3, "order" = $4, is_active = $5, updated_at = $6
		WHERE id = $1`,
		b.ID, b.Title, b.Image, b.Order, b.IsActive, b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error updating banner %s: %w", b.ID, err)
	}
	return requireRow(res)
}

func (r *CatalogRepository) DeleteBanner(ctx context.Context, id string) error {
	return r.deleteByID(ctx, "banners", id)
}

func (r *CatalogRepository) ListCategories(ctx context.Context, activeOnly bool) ([]db.Category, error) {
	query := `SELECT id, name, image, "order", is_active, created_at, updated_at FROM categories`
	if activeOnly {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY "order", name`

	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error querying categories: %w", err)
	}
	defer rows.Close()

	var categories []db.Category
	for rows.Next() {
		var c db.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Image, &c.Order, &c.IsActive, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("error scanning category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (r *CatalogRepository) GetCategory(ctx context.Context, id string) (*db.Category, error) {
	var c db.Category
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, name, image, "order", is_active, created_at, updated_at FROM categories WHERE id = $1`, id).
		Scan(&c.ID, &c.Name, &c.Image, &c.Order, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, notFound(err, "category", id)
	}
	return &c, nil
}

func (r *CatalogRepository) CreateCategory(ctx context.Context, c *db.Category) error {
	stamp(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO categories (id, name, image, "order", is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.ID, c.Name, c.Image, c.Order, c.IsActive, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error creating category: %w", err)
	}
	return nil
}

func (r *CatalogRepository) UpdateCategory(ctx context.Context, c *db.Category) error {
	c.UpdatedAt = time.Now().UTC()
	res, err := r.DB.ExecContext(ctx, `
		UPDATE categories SET name = $2, image = $3, "order" = $4, is_active = $5, updated_at = $6
		WHERE id = $1`,
		c.ID, c.Name, c.Image, c.Order, c.IsActive, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error updating category %s: %w", c.ID, err)
	}
	return requireRow(res)
}

func (r *CatalogRepository) DeleteCategory(ctx context.Context, id string) error {
	return r.deleteByID(ctx, "categories", id)
}

const productColumns = `id, name, category_id, image, description, nutritional_info, recipe_idea, variants, is_available, created_at, updated_at`

func scanProduct(row interface{ Scan(...any) error }) (*db.Product, error) {
	var p db.Product
	err := row.Scan(&p.ID, &p.Name, &p.CategoryID, &p.Image, &p.Description, &p.NutritionalInfo,
		&p.RecipeIdea, &p.Variants, &p.IsAvailable, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *CatalogRepository) ListProducts(ctx context.Context, f ProductFilter) ([]db.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE 1=1`
	args := []interface{}{}
	idx := 1

	if f.CategoryID != "" {
		query += " AND category_id = $" + strconv.Itoa(idx)
		args = append(args, f.CategoryID)
		idx++
	}
	if f.Query != "" {
		query += " AND name ILIKE $" + strconv.Itoa(idx)
		args = append(args, "%"+f.Query+"%")
		idx++
	}
	if f.AvailableOnly {
		query += " AND is_available"
	}
	query += " ORDER BY name"

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying products: %w", err)
	}
	defer rows.Close()

	var products []db.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning product: %w", err)
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

func (r *CatalogRepository) GetProduct(ctx context.Context, id string) (*db.Product, error) {
	p, err := scanProduct(r.DB.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "product", id)
	}
	return p, nil
}

func (r *CatalogRepository) CreateProducts(ctx context.Context, products []*db.Product) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO products (`+productColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`)
	if err != nil {
		return fmt.Errorf("error preparing product insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range products {
		stamp(&p.ID, &p.CreatedAt, &p.UpdatedAt)
		if _, err := stmt.ExecContext(ctx, p.ID, p.Name, p.CategoryID, p.Image, p.Description,
			p.NutritionalInfo, p.RecipeIdea, p.Variants, p.IsAvailable, p.CreatedAt, p.UpdatedAt); err != nil {
			return fmt.Errorf("error inserting product %q: %w", p.Name, err)
		}
	}
	return tx.Commit()
}

func (r *CatalogRepository) UpdateProduct(ctx context.Context, p *db.Product) error {
	p.UpdatedAt = time.Now().UTC()
	res, err := r.DB.ExecContext(ctx, `
		UPDATE products SET name = $2, category_id = $3, image = $4, description = $5,
			nutritional_info = $6, recipe_idea = $7, variants = $8, is_available = $9, updated_at = $10
		WHERE id = $1`,
		p.ID, p.Name, p.CategoryID, p.Image, p.Description, p.NutritionalInfo, p.RecipeIdea,
		p.Variants, p.IsAvailable, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error updating product %s: %w", p.ID, err)
	}
	return requireRow(res)
}

func (r *CatalogRepository) DeleteProduct(ctx context.Context, id string) error {
	return r.deleteByID(ctx, "products", id)
}

// table is always one of the package's own constants.
func (r *CatalogRepository) deleteByID(ctx context.Context, table, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = $1`, id)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23503" {
			return ErrConflict
		}
		return fmt.Errorf("error deleting from %s: %w", table, err)
	}
	return requireRow(res)
}

func stamp(id *string, created, updated *time.Time) {
	if *id == "" {
		*id = uuid.NewString()
	}
	now := time.Now().UTC()
	*created, *updated = now, now
}

func notFound(err error, kind, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return fmt.Errorf("error loading %s %s: %w", kind, id, err)
}
