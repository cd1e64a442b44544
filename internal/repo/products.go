package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noah-isme/backend-bakehouse/internal/pricing"
)

// Product is a catalog product with its variant list stored as JSONB.
type Product struct {
	ID          string
	Name        string
	Slug        string
	Description string
	Category    string
	ImageURL    string
	Variants    []pricing.Variant
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CreateProductParams captures the fields needed to insert a product.
type CreateProductParams struct {
	Name        string
	Slug        string
	Description string
	Category    string
	ImageURL    string
	Variants    []pricing.Variant
	IsActive    bool
}

// UpdateProductParams captures the fields needed to update a product.
type UpdateProductParams struct {
	ID          string
	Name        string
	Slug        string
	Description string
	Category    string
	ImageURL    string
	Variants    []pricing.Variant
	IsActive    bool
}

// ListProductsParams filters and paginates the product listing.
type ListProductsParams struct {
	Category string
	Search   string
	Limit    int32
	Offset   int32
}

const productColumns = `id, name, slug, description, category, image_url, variants, is_active, created_at, updated_at`

// CreateProduct inserts a product and returns the stored row.
func (q *Queries) CreateProduct(ctx context.Context, arg CreateProductParams) (Product, error) {
	variants, err := marshalVariants(arg.Variants)
	if err != nil {
		return Product{}, err
	}
	row := q.db.QueryRow(ctx, `
		INSERT INTO products (name, slug, description, category, image_url, variants, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+productColumns,
		arg.Name, arg.Slug, toText(arg.Description), toText(arg.Category), toText(arg.ImageURL), variants, arg.IsActive,
	)
	return scanProduct(row)
}

// UpdateProduct replaces the mutable fields of a product.
func (q *Queries) UpdateProduct(ctx context.Context, arg UpdateProductParams) (Product, error) {
	id, err := toUUID(arg.ID)
	if err != nil {
		return Product{}, pgx.ErrNoRows
	}
	variants, err := marshalVariants(arg.Variants)
	if err != nil {
		return Product{}, err
	}
	row := q.db.QueryRow(ctx, `
		UPDATE products
		SET name = $2, slug = $3, description = $4, category = $5, image_url = $6, variants = $7, is_active = $8, updated_at = now()
		WHERE id = $1
		RETURNING `+productColumns,
		id, arg.Name, arg.Slug, toText(arg.Description), toText(arg.Category), toText(arg.ImageURL), variants, arg.IsActive,
	)
	return scanProduct(row)
}

// GetProduct fetches one product by id.
func (q *Queries) GetProduct(ctx context.Context, productID string) (Product, error) {
	id, err := toUUID(productID)
	if err != nil {
		return Product{}, pgx.ErrNoRows
	}
	row := q.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	return scanProduct(row)
}

// GetProductBySlug fetches one active product by slug.
func (q *Queries) GetProductBySlug(ctx context.Context, slug string) (Product, error) {
	row := q.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE slug = $1 AND is_active = true`, slug)
	return scanProduct(row)
}

// ListProducts returns active products, optionally filtered by category or a
// name search, newest first.
func (q *Queries) ListProducts(ctx context.Context, arg ListProductsParams) ([]Product, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE is_active = true
		  AND ($1 = '' OR category = $1)
		  AND ($2 = '' OR name ILIKE '%' || $2 || '%')
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`,
		arg.Category, arg.Search, arg.Limit, arg.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// CountProducts counts active products matching the same filters as ListProducts.
func (q *Queries) CountProducts(ctx context.Context, category, search string) (int64, error) {
	var total int64
	err := q.db.QueryRow(ctx, `
		SELECT count(*) FROM products
		WHERE is_active = true
		  AND ($1 = '' OR category = $1)
		  AND ($2 = '' OR name ILIKE '%' || $2 || '%')`,
		category, search,
	).Scan(&total)
	return total, err
}

// DeactivateProduct soft-deletes a product.
func (q *Queries) DeactivateProduct(ctx context.Context, productID string) error {
	id, err := toUUID(productID)
	if err != nil {
		return pgx.ErrNoRows
	}
	tag, err := q.db.Exec(ctx, `UPDATE products SET is_active = false, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func marshalVariants(variants []pricing.Variant) ([]byte, error) {
	if variants == nil {
		variants = []pricing.Variant{}
	}
	data, err := json.Marshal(variants)
	if err != nil {
		return nil, fmt.Errorf("marshal variants: %w", err)
	}
	return data, nil
}

func scanProduct(row pgx.Row) (Product, error) {
	var (
		p           Product
		id          pgtype.UUID
		description pgtype.Text
		category    pgtype.Text
		imageURL    pgtype.Text
		variants    []byte
		createdAt   pgtype.Timestamptz
		updatedAt   pgtype.Timestamptz
	)
	if err := row.Scan(&id, &p.Name, &p.Slug, &description, &category, &imageURL, &variants, &p.IsActive, &createdAt, &updatedAt); err != nil {
		return Product{}, err
	}
	p.ID = uuidString(id)
	p.Description = textToString(description)
	p.Category = textToString(category)
	p.ImageURL = textToString(imageURL)
	p.CreatedAt = timeFromPG(createdAt)
	p.UpdatedAt = timeFromPG(updatedAt)
	if len(variants) > 0 {
		if err := json.Unmarshal(variants, &p.Variants); err != nil {
			return Product{}, fmt.Errorf("unmarshal variants: %w", err)
		}
	}
	return p, nil
}
