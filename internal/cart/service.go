package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/noah-isme/backend-bakehouse/internal/obs"
	"github.com/noah-isme/backend-bakehouse/internal/pricing"
	"github.com/noah-isme/backend-bakehouse/internal/repo"
)

// ErrNotFound indicates the requested cart or line could not be located.
var ErrNotFound = errors.New("cart not found")

// ErrInvalidInput is returned when the provided payload is invalid.
var ErrInvalidInput = errors.New("invalid input")

// ErrOutOfStock is returned when the requested variant cannot be sold.
var ErrOutOfStock = errors.New("variant out of stock")

type cartQueries interface {
	GetOrCreateCartByUser(ctx context.Context, userID string) (repo.Cart, error)
	GetOrCreateCartBySession(ctx context.Context, sessionID string) (repo.Cart, error)
	GetCart(ctx context.Context, cartID string) (repo.Cart, error)
	ListCartItems(ctx context.Context, cartID string) ([]repo.CartItem, error)
	UpsertCartItem(ctx context.Context, arg repo.UpsertCartItemParams) (repo.CartItem, error)
	SetCartItemQuantity(ctx context.Context, itemID string, quantity int32) (repo.CartItem, error)
	DeleteCartItem(ctx context.Context, itemID string) error
	ClearCart(ctx context.Context, cartID string) error
	MergeCarts(ctx context.Context, fromCartID, intoCartID string) error
	GetProduct(ctx context.Context, productID string) (repo.Product, error)
	GetLocation(ctx context.Context, locationID string) (repo.Location, error)
	GetUser(ctx context.Context, userID string) (repo.User, error)
}

// Service encapsulates cart domain operations.
type Service struct {
	Q       cartQueries
	Pricing pricing.OrderPricing
	Now     func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Line is one cart item joined with its product and priced variant.
type Line struct {
	ItemID       string `json:"id"`
	ProductID    string `json:"productId"`
	ProductName  string `json:"productName"`
	VariantIndex int    `json:"variantIndex"`
	VariantLabel string `json:"variantLabel,omitempty"`
	Quantity     int    `json:"quantity"`
	IsFree       bool   `json:"isFreeProduct"`
	UnitPrice    int64  `json:"unitPrice"`
	UnitMRP      int64  `json:"unitMrp"`
	DiscountPct  int    `json:"discountPercentage"`
	LineTotal    int64  `json:"lineTotal"`
}

// View is the full cart payload with derived totals.
type View struct {
	CartID            string `json:"id"`
	Lines             []Line `json:"items"`
	Subtotal          int64  `json:"subtotal"`
	OriginalTotal     int64  `json:"originalTotal"`
	Savings           int64  `json:"savings"`
	AverageDiscount   int    `json:"averageDiscountPercentage"`
	DeliveryCharge    int64  `json:"deliveryCharge"`
	FreeCashAvailable int64  `json:"freeCashAvailable"`
	GrandTotal        int64  `json:"grandTotal"`
	SubtotalLabel     string `json:"subtotalLabel"`
	GrandTotalLabel   string `json:"grandTotalLabel"`
}

// EnsureCart loads or creates a cart for the provided identifiers. A user id
// wins over an anonymous session key.
func (s *Service) EnsureCart(ctx context.Context, userID, sessionID *string) (repo.Cart, error) {
	if s == nil || s.Q == nil {
		return repo.Cart{}, errors.New("cart service not configured")
	}
	if userID != nil && *userID != "" {
		return s.Q.GetOrCreateCartByUser(ctx, *userID)
	}
	if sessionID != nil && *sessionID != "" {
		return s.Q.GetOrCreateCartBySession(ctx, *sessionID)
	}
	return repo.Cart{}, ErrInvalidInput
}

// AddItem inserts or increments a cart line after checking the variant exists
// and can be sold.
func (s *Service) AddItem(ctx context.Context, cartID, productID string, variantIndex, qty int, isFree bool) error {
	if s == nil || s.Q == nil {
		return errors.New("cart service not configured")
	}
	if qty <= 0 {
		return fmt.Errorf("quantity must be positive: %w", ErrInvalidInput)
	}
	if variantIndex < 0 {
		variantIndex = 0
	}
	product, err := s.Q.GetProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("product %s: %w", productID, ErrNotFound)
		}
		return err
	}
	if !product.IsActive || len(product.Variants) == 0 {
		return fmt.Errorf("product %s: %w", productID, ErrNotFound)
	}
	if variantIndex >= len(product.Variants) {
		variantIndex = 0
	}
	variant := product.Variants[variantIndex]
	if variant.StockActive && variant.Stock < qty {
		return ErrOutOfStock
	}
	_, err = s.Q.UpsertCartItem(ctx, repo.UpsertCartItemParams{
		CartID:       cartID,
		ProductID:    productID,
		VariantIndex: int32(variantIndex),
		Quantity:     int32(qty),
		IsFree:       isFree,
	})
	return err
}

// UpdateQty replaces a line's quantity.
func (s *Service) UpdateQty(ctx context.Context, itemID string, qty int) error {
	if s == nil || s.Q == nil {
		return errors.New("cart service not configured")
	}
	if qty <= 0 {
		return fmt.Errorf("quantity must be positive: %w", ErrInvalidInput)
	}
	_, err := s.Q.SetCartItemQuantity(ctx, itemID, int32(qty))
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// RemoveItem deletes one line.
func (s *Service) RemoveItem(ctx context.Context, itemID string) error {
	if s == nil || s.Q == nil {
		return errors.New("cart service not configured")
	}
	err := s.Q.DeleteCartItem(ctx, itemID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// Clear removes all lines from a cart.
func (s *Service) Clear(ctx context.Context, cartID string) error {
	if s == nil || s.Q == nil {
		return errors.New("cart service not configured")
	}
	return s.Q.ClearCart(ctx, cartID)
}

// Merge folds an anonymous session cart into the user's cart after login.
func (s *Service) Merge(ctx context.Context, sessionID, userID string) (repo.Cart, error) {
	if s == nil || s.Q == nil {
		return repo.Cart{}, errors.New("cart service not configured")
	}
	if sessionID == "" || userID == "" {
		return repo.Cart{}, ErrInvalidInput
	}
	anon, err := s.Q.GetOrCreateCartBySession(ctx, sessionID)
	if err != nil {
		return repo.Cart{}, err
	}
	target, err := s.Q.GetOrCreateCartByUser(ctx, userID)
	if err != nil {
		return repo.Cart{}, err
	}
	if anon.ID == target.ID {
		return target, nil
	}
	if err := s.Q.MergeCarts(ctx, anon.ID, target.ID); err != nil {
		return repo.Cart{}, err
	}
	return target, nil
}

// BuildView loads a cart and derives all of its totals. A location id, when
// present, overrides the default delivery charge. When useFreeCash is set the
// available pool is applied to the grand total, capped by the user's balance
// for logged-in carts.
func (s *Service) BuildView(ctx context.Context, cartID string, locationID *string, useFreeCash bool) (View, error) {
	if s == nil || s.Q == nil {
		return View{}, errors.New("cart service not configured")
	}
	cart, err := s.Q.GetCart(ctx, cartID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return View{}, ErrNotFound
		}
		return View{}, err
	}
	lines, rawItems, err := s.assembleLines(ctx, cart.ID)
	if err != nil {
		return View{}, err
	}

	totals := pricing.CartTotals(rawItems)
	if totals.SkippedItems > 0 && obs.CartItemsSkippedTotal != nil {
		obs.CartItemsSkippedTotal.WithLabelValues("cart").Add(float64(totals.SkippedItems))
	}
	if totals.CorrectedDiscounts > 0 && obs.DiscountCorrectionsTotal != nil {
		obs.DiscountCorrectionsTotal.Add(float64(totals.CorrectedDiscounts))
	}

	var locationCharge *int64
	if locationID != nil && *locationID != "" {
		loc, err := s.Q.GetLocation(ctx, *locationID)
		if err == nil && loc.IsActive {
			charge := loc.DeliveryCharge
			locationCharge = &charge
		}
	}
	delivery := s.Pricing.Delivery(totals.FinalTotal, locationCharge)

	freeCash := pricing.FreeCashAvailable(rawItems)
	if cart.UserID != "" {
		if user, err := s.Q.GetUser(ctx, cart.UserID); err == nil && user.FreeCash < freeCash {
			freeCash = user.FreeCash
		}
	}
	var freeCashUsed int64
	if useFreeCash {
		freeCashUsed = freeCash
	}
	grandTotal := pricing.GrandTotal(totals.FinalTotal, delivery, freeCashUsed)

	return View{
		CartID:            cart.ID,
		Lines:             lines,
		Subtotal:          totals.FinalTotal,
		OriginalTotal:     totals.OriginalTotal,
		Savings:           totals.TotalSavings,
		AverageDiscount:   totals.AverageDiscountPct,
		DeliveryCharge:    delivery,
		FreeCashAvailable: freeCash,
		GrandTotal:        grandTotal,
		SubtotalLabel:     pricing.FormatCurrency(float64(totals.FinalTotal), false),
		GrandTotalLabel:   pricing.FormatCurrency(float64(grandTotal), false),
	}, nil
}

// RawItems exposes the normalized cart lines for checkout.
func (s *Service) RawItems(ctx context.Context, cartID string) ([]Line, []pricing.RawItem, error) {
	if s == nil || s.Q == nil {
		return nil, nil, errors.New("cart service not configured")
	}
	return s.assembleLines(ctx, cartID)
}

func (s *Service) assembleLines(ctx context.Context, cartID string) ([]Line, []pricing.RawItem, error) {
	items, err := s.Q.ListCartItems(ctx, cartID)
	if err != nil {
		return nil, nil, err
	}
	lines := make([]Line, 0, len(items))
	rawItems := make([]pricing.RawItem, 0, len(items))
	for _, item := range items {
		product, err := s.Q.GetProduct(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				// Product deleted after it was carted, drop the line.
				if obs.CartItemsSkippedTotal != nil {
					obs.CartItemsSkippedTotal.WithLabelValues("cart").Inc()
				}
				continue
			}
			return nil, nil, err
		}
		idx := int(item.VariantIndex)
		if idx < 0 || idx >= len(product.Variants) {
			idx = 0
		}
		var variant *pricing.Variant
		if len(product.Variants) > 0 {
			v := product.Variants[idx]
			variant = &v
		}
		raw := pricing.RawItem{
			ProductID:     item.ProductID,
			VariantIndex:  &idx,
			Quantity:      int(item.Quantity),
			IsFreeProduct: item.IsFree,
			Variant:       variant,
		}
		quote := pricing.Calculate(variant)
		line := Line{
			ItemID:       item.ID,
			ProductID:    item.ProductID,
			ProductName:  product.Name,
			VariantIndex: idx,
			Quantity:     int(item.Quantity),
			IsFree:       item.IsFree,
			UnitPrice:    quote.FinalPrice,
			UnitMRP:      quote.MRP,
			DiscountPct:  quote.DiscountPct,
		}
		if variant != nil {
			line.VariantLabel = variant.Label
		}
		if !item.IsFree {
			line.LineTotal = quote.FinalPrice * int64(item.Quantity)
		}
		lines = append(lines, line)
		rawItems = append(rawItems, raw)
	}
	return lines, rawItems, nil
}
