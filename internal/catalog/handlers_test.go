package catalog_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-bakehouse/internal/catalog"
	"github.com/noah-isme/backend-bakehouse/internal/pricing"
	"github.com/noah-isme/backend-bakehouse/internal/repo"
)

type productsResponse struct {
	Data       []catalog.ProductListItem `json:"data"`
	Pagination struct {
		Page       int `json:"page"`
		PerPage    int `json:"per_page"`
		TotalItems int `json:"total_items"`
	} `json:"pagination"`
}

type productDetailResponse struct {
	Data catalog.ProductDetail `json:"data"`
}

type fakeCatalogQueries struct {
	products []repo.Product
}

func (f *fakeCatalogQueries) ListProducts(_ context.Context, arg repo.ListProductsParams) ([]repo.Product, error) {
	var out []repo.Product
	for _, p := range f.products {
		if arg.Category != "" && p.Category != arg.Category {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeCatalogQueries) CountProducts(_ context.Context, category, _ string) (int64, error) {
	var total int64
	for _, p := range f.products {
		if category != "" && p.Category != category {
			continue
		}
		total++
	}
	return total, nil
}

func (f *fakeCatalogQueries) GetProduct(_ context.Context, productID string) (repo.Product, error) {
	for _, p := range f.products {
		if p.ID == productID {
			return p, nil
		}
	}
	return repo.Product{}, pgx.ErrNoRows
}

func (f *fakeCatalogQueries) GetProductBySlug(_ context.Context, slug string) (repo.Product, error) {
	for _, p := range f.products {
		if p.Slug == slug {
			return p, nil
		}
	}
	return repo.Product{}, pgx.ErrNoRows
}

func (f *fakeCatalogQueries) CreateProduct(_ context.Context, arg repo.CreateProductParams) (repo.Product, error) {
	p := repo.Product{
		ID:       "11111111-1111-1111-1111-111111111111",
		Name:     arg.Name,
		Slug:     arg.Slug,
		Category: arg.Category,
		Variants: arg.Variants,
		IsActive: arg.IsActive,
	}
	f.products = append(f.products, p)
	return p, nil
}

func (f *fakeCatalogQueries) UpdateProduct(_ context.Context, arg repo.UpdateProductParams) (repo.Product, error) {
	for i, p := range f.products {
		if p.ID == arg.ID {
			f.products[i].Name = arg.Name
			f.products[i].Variants = arg.Variants
			return f.products[i], nil
		}
	}
	return repo.Product{}, pgx.ErrNoRows
}

func (f *fakeCatalogQueries) DeactivateProduct(_ context.Context, productID string) error {
	for i, p := range f.products {
		if p.ID == productID {
			f.products[i].IsActive = false
			return nil
		}
	}
	return pgx.ErrNoRows
}

func seedQueries() *fakeCatalogQueries {
	return &fakeCatalogQueries{products: []repo.Product{
		{
			ID:       "22222222-2222-2222-2222-222222222222",
			Name:     "Chocolate Truffle Cake",
			Slug:     "chocolate-truffle-cake",
			Category: "cakes",
			Variants: []pricing.Variant{
				{Label: "500g", CostPrice: 250, ProfitWanted: 100, FreeCashExpected: 20, Discount: &pricing.Discount{Kind: pricing.DiscountPercentage, Value: 25}, Stock: 5, StockActive: true},
				{Label: "1kg", CostPrice: 450, ProfitWanted: 180, FreeCashExpected: 40, Stock: 3, StockActive: true},
			},
			IsActive: true,
		},
		{
			ID:       "33333333-3333-3333-3333-333333333333",
			Name:     "Garlic Bread",
			Slug:     "garlic-bread",
			Category: "breads",
			Variants: []pricing.Variant{
				{Label: "Regular", Price: 99, Stock: 20, StockActive: true},
			},
			IsActive: true,
		},
	}}
}

func newHandler(queries *fakeCatalogQueries) *catalog.Handler {
	svc := catalog.NewService(catalog.ServiceConfig{Queries: queries, DefaultLimit: 20, MaxLimit: 100})
	return catalog.NewHandler(catalog.HandlerConfig{Service: svc})
}

func TestProductsList(t *testing.T) {
	handler := newHandler(seedQueries())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products?category=cakes", nil)
	rec := httptest.NewRecorder()
	handler.Products(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp productsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	require.Equal(t, 1, resp.Pagination.TotalItems)

	item := resp.Data[0]
	require.Equal(t, "Chocolate Truffle Cake", item.Name)
	require.Equal(t, int64(370), item.Price)
	require.Equal(t, int64(493), item.MRP)
	require.Equal(t, 25, item.DiscountPct)
	require.Equal(t, 2, item.VariantCount)
}

func TestProductDetail(t *testing.T) {
	handler := newHandler(seedQueries())

	router := chi.NewRouter()
	router.Get("/api/v1/products/{slug}", handler.ProductDetail)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products/chocolate-truffle-cake", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp productDetailResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data.Variants, 2)

	first := resp.Data.Variants[0]
	require.Equal(t, int64(370), first.Price)
	require.Equal(t, int64(493), first.MRP)
	require.Equal(t, 25, first.DiscountPct)
	require.Equal(t, "₹370", first.PriceLabel)

	second := resp.Data.Variants[1]
	require.Equal(t, int64(670), second.Price)
	require.Equal(t, int64(670), second.MRP)
	require.Equal(t, 0, second.DiscountPct)
}

func TestProductDetailNotFound(t *testing.T) {
	handler := newHandler(seedQueries())

	router := chi.NewRouter()
	router.Get("/api/v1/products/{slug}", handler.ProductDetail)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products/unknown", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateProductValidation(t *testing.T) {
	handler := newHandler(seedQueries())

	body := strings.NewReader(`{"name":"x","slug":"","variants":[]}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/products", body)
	rec := httptest.NewRecorder()
	handler.CreateProduct(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateProduct(t *testing.T) {
	queries := seedQueries()
	handler := newHandler(queries)

	body := strings.NewReader(`{
		"name": "Red Velvet Jar",
		"slug": "red-velvet-jar",
		"category": "jars",
		"isActive": true,
		"variants": [{"label": "200g", "price": 149, "stock": 10, "isStockActive": true}]
	}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/products", body)
	rec := httptest.NewRecorder()
	handler.CreateProduct(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp productDetailResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "red-velvet-jar", resp.Data.Slug)
	require.Len(t, resp.Data.Variants, 1)
	require.Equal(t, int64(149), resp.Data.Variants[0].Price)
}
