package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/noah-isme/backend-bakehouse/internal/common"
	"github.com/noah-isme/backend-bakehouse/internal/obs"
	"github.com/noah-isme/backend-bakehouse/internal/pricing"
	"github.com/noah-isme/backend-bakehouse/internal/repo"
)

type queryProvider interface {
	ListProducts(ctx context.Context, arg repo.ListProductsParams) ([]repo.Product, error)
	CountProducts(ctx context.Context, category, search string) (int64, error)
	GetProduct(ctx context.Context, productID string) (repo.Product, error)
	GetProductBySlug(ctx context.Context, slug string) (repo.Product, error)
	CreateProduct(ctx context.Context, arg repo.CreateProductParams) (repo.Product, error)
	UpdateProduct(ctx context.Context, arg repo.UpdateProductParams) (repo.Product, error)
	DeactivateProduct(ctx context.Context, productID string) error
}

// Service orchestrates catalog queries, price derivation, and caching.
type Service struct {
	queries      queryProvider
	cache        *Cache
	defaultLimit int
	maxLimit     int
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Queries      queryProvider
	Cache        *Cache
	DefaultLimit int
	MaxLimit     int
}

// NewService constructs a catalog service.
func NewService(cfg ServiceConfig) *Service {
	limit := cfg.DefaultLimit
	if limit <= 0 {
		limit = 20
	}
	max := cfg.MaxLimit
	if max <= 0 {
		max = 100
	}
	return &Service{queries: cfg.Queries, cache: cfg.Cache, defaultLimit: limit, maxLimit: max}
}

// ListParams captures filters for product listing.
type ListParams struct {
	Category string
	Search   string
	Page     int
	Limit    int
}

// VariantView is a variant with its derived selling price attached.
type VariantView struct {
	Label          string `json:"label"`
	Price          int64  `json:"price"`
	MRP            int64  `json:"mrp"`
	DiscountPct    int    `json:"discountPercentage"`
	DiscountAmount int64  `json:"discountAmount"`
	Stock          int    `json:"stock"`
	StockActive    bool   `json:"isStockActive"`
	PriceLabel     string `json:"priceLabel"`
}

// ProductListItem represents an entry in list responses. Price fields come
// from the product's first variant.
type ProductListItem struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Slug         string `json:"slug"`
	Category     string `json:"category,omitempty"`
	ImageURL     string `json:"imageUrl,omitempty"`
	Price        int64  `json:"price"`
	MRP          int64  `json:"mrp"`
	DiscountPct  int    `json:"discountPercentage"`
	VariantCount int    `json:"variantCount"`
}

// ProductDetail aggregates the full detail payload with per-variant pricing.
type ProductDetail struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Slug        string        `json:"slug"`
	Description string        `json:"description,omitempty"`
	Category    string        `json:"category,omitempty"`
	ImageURL    string        `json:"imageUrl,omitempty"`
	Variants    []VariantView `json:"variants"`
	CreatedAt   time.Time     `json:"createdAt"`
}

// ProductListResult bundles items with pagination metadata.
type ProductListResult struct {
	Items []ProductListItem
	Total int64
	Page  int
	Limit int
}

type cachedList struct {
	Items []ProductListItem `json:"items"`
	Total int64             `json:"total"`
}

// ParseListParams normalises query string filters.
func (s *Service) ParseListParams(values url.Values) ListParams {
	params := ListParams{
		Category: strings.TrimSpace(values.Get("category")),
		Search:   strings.TrimSpace(values.Get("q")),
		Page:     common.AtoiDefault(values.Get("page"), 1),
		Limit:    common.AtoiDefault(values.Get("limit"), s.defaultLimit),
	}
	if params.Page < 1 {
		params.Page = 1
	}
	if params.Limit < 1 {
		params.Limit = s.defaultLimit
	}
	if params.Limit > s.maxLimit {
		params.Limit = s.maxLimit
	}
	return params
}

// ListProducts returns the filtered product list with pagination metadata.
func (s *Service) ListProducts(ctx context.Context, params ListParams) (ProductListResult, error) {
	if s == nil || s.queries == nil {
		return ProductListResult{}, errors.New("catalog service not configured")
	}
	key := s.listCacheKey(params)
	if s.cache != nil {
		var cached cachedList
		ok, err := s.cache.GetJSON(ctx, key, &cached)
		if err == nil && ok {
			return ProductListResult{Items: cached.Items, Total: cached.Total, Page: params.Page, Limit: params.Limit}, nil
		}
	}

	total, err := s.queries.CountProducts(ctx, params.Category, params.Search)
	if err != nil {
		return ProductListResult{}, fmt.Errorf("count products: %w", err)
	}
	offset := int32((params.Page - 1) * params.Limit)
	if offset < 0 {
		offset = 0
	}
	rows, err := s.queries.ListProducts(ctx, repo.ListProductsParams{
		Category: params.Category,
		Search:   params.Search,
		Limit:    int32(params.Limit),
		Offset:   offset,
	})
	if err != nil {
		return ProductListResult{}, fmt.Errorf("list products: %w", err)
	}
	items := make([]ProductListItem, 0, len(rows))
	for _, row := range rows {
		item := ProductListItem{
			ID:           row.ID,
			Name:         row.Name,
			Slug:         row.Slug,
			Category:     row.Category,
			ImageURL:     row.ImageURL,
			VariantCount: len(row.Variants),
		}
		if len(row.Variants) > 0 {
			quote := s.quote(&row.Variants[0], "catalog_list")
			item.Price = quote.FinalPrice
			item.MRP = quote.MRP
			item.DiscountPct = quote.DiscountPct
		}
		items = append(items, item)
	}
	result := ProductListResult{Items: items, Total: total, Page: params.Page, Limit: params.Limit}
	if s.cache != nil {
		_ = s.cache.SetJSON(ctx, key, cachedList{Items: items, Total: total})
	}
	return result, nil
}

// GetProductDetail returns the product with all variants priced.
func (s *Service) GetProductDetail(ctx context.Context, slug string) (ProductDetail, error) {
	if s == nil || s.queries == nil {
		return ProductDetail{}, errors.New("catalog service not configured")
	}
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return ProductDetail{}, common.NewAppError("VALIDATION_ERROR", "slug is required", http.StatusBadRequest, nil)
	}
	cacheKey := detailCacheKey(slug)
	if s.cache != nil {
		var cached ProductDetail
		ok, err := s.cache.GetJSON(ctx, cacheKey, &cached)
		if err == nil && ok {
			return cached, nil
		}
	}
	product, err := s.queries.GetProductBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ProductDetail{}, common.NewAppError("NOT_FOUND", "product not found", http.StatusNotFound, err)
		}
		return ProductDetail{}, fmt.Errorf("get product by slug: %w", err)
	}
	detail := s.buildDetail(product)
	if s.cache != nil {
		_ = s.cache.SetJSON(ctx, cacheKey, detail)
	}
	return detail, nil
}

// CreateProduct inserts a new product for the admin surface.
func (s *Service) CreateProduct(ctx context.Context, arg repo.CreateProductParams) (ProductDetail, error) {
	if s == nil || s.queries == nil {
		return ProductDetail{}, errors.New("catalog service not configured")
	}
	product, err := s.queries.CreateProduct(ctx, arg)
	if err != nil {
		return ProductDetail{}, fmt.Errorf("create product: %w", err)
	}
	return s.buildDetail(product), nil
}

// UpdateProduct replaces a product and drops its cached detail.
func (s *Service) UpdateProduct(ctx context.Context, arg repo.UpdateProductParams) (ProductDetail, error) {
	if s == nil || s.queries == nil {
		return ProductDetail{}, errors.New("catalog service not configured")
	}
	product, err := s.queries.UpdateProduct(ctx, arg)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ProductDetail{}, common.NewAppError("NOT_FOUND", "product not found", http.StatusNotFound, err)
		}
		return ProductDetail{}, fmt.Errorf("update product: %w", err)
	}
	_ = s.cache.Delete(ctx, detailCacheKey(product.Slug))
	return s.buildDetail(product), nil
}

// DeactivateProduct soft-deletes a product and drops its cached detail.
func (s *Service) DeactivateProduct(ctx context.Context, productID string) error {
	if s == nil || s.queries == nil {
		return errors.New("catalog service not configured")
	}
	product, err := s.queries.GetProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return common.NewAppError("NOT_FOUND", "product not found", http.StatusNotFound, err)
		}
		return err
	}
	if err := s.queries.DeactivateProduct(ctx, productID); err != nil {
		return fmt.Errorf("deactivate product: %w", err)
	}
	_ = s.cache.Delete(ctx, detailCacheKey(product.Slug))
	return nil
}

func (s *Service) buildDetail(product repo.Product) ProductDetail {
	detail := ProductDetail{
		ID:          product.ID,
		Name:        product.Name,
		Slug:        product.Slug,
		Description: product.Description,
		Category:    product.Category,
		ImageURL:    product.ImageURL,
		CreatedAt:   product.CreatedAt,
		Variants:    make([]VariantView, 0, len(product.Variants)),
	}
	for i := range product.Variants {
		v := &product.Variants[i]
		quote := s.quote(v, "catalog_detail")
		detail.Variants = append(detail.Variants, VariantView{
			Label:          v.Label,
			Price:          quote.FinalPrice,
			MRP:            quote.MRP,
			DiscountPct:    quote.DiscountPct,
			DiscountAmount: quote.DiscountAmount,
			Stock:          v.Stock,
			StockActive:    v.StockActive,
			PriceLabel:     pricing.FormatCurrency(float64(quote.FinalPrice), false),
		})
	}
	return detail
}

func (s *Service) quote(v *pricing.Variant, surface string) pricing.Quote {
	quote := pricing.Calculate(v)
	if obs.QuotesComputedTotal != nil {
		obs.QuotesComputedTotal.WithLabelValues(surface).Inc()
	}
	if quote.DiscountDiscarded && obs.DiscountCorrectionsTotal != nil {
		obs.DiscountCorrectionsTotal.Inc()
	}
	return quote
}

func (s *Service) listCacheKey(params ListParams) string {
	return fmt.Sprintf("catalog:list:%s:%s:%d:%d", params.Category, params.Search, params.Page, params.Limit)
}

func detailCacheKey(slug string) string {
	return "catalog:detail:" + slug
}
