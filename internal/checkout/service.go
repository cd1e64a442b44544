package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/backend-bakehouse/internal/obs"
	"github.com/noah-isme/backend-bakehouse/internal/pricing"
	"github.com/noah-isme/backend-bakehouse/internal/repo"
)

// ErrEmptyCart is returned when checkout is attempted on a cart with no
// payable lines.
var ErrEmptyCart = errors.New("cart is empty")

// ErrCartOwnership is returned when the cart belongs to a different user.
var ErrCartOwnership = errors.New("cart does not belong to user")

// Input is the checkout payload.
type Input struct {
	CartID        string `json:"cartId" validate:"required"`
	LocationID    string `json:"locationId"`
	DeliveryName  string `json:"deliveryName" validate:"required,min=2"`
	DeliveryPhone string `json:"deliveryPhone" validate:"required,min=7"`
	Notes         string `json:"notes"`
	UseFreeCash   bool   `json:"useFreeCash"`
}

// Output is the created order summary returned to the client.
type Output struct {
	OrderID        string `json:"orderId"`
	Status         string `json:"status"`
	Subtotal       int64  `json:"subtotal"`
	Savings        int64  `json:"savings"`
	DeliveryCharge int64  `json:"deliveryCharge"`
	FreeCashUsed   int64  `json:"freeCashUsed"`
	GrandTotal     int64  `json:"grandTotal"`
}

// Service turns a cart into an order inside one transaction.
type Service struct {
	Q       *repo.Queries
	Pool    *pgxpool.Pool
	Pricing pricing.OrderPricing
}

// Create prices the cart, snapshots every line, writes the order, and clears
// the cart. Prices are always derived fresh from the catalog at this moment,
// never trusted from the client.
func (s *Service) Create(ctx context.Context, userID string, in Input) (Output, error) {
	out, err := s.create(ctx, userID, in)
	if obs.CheckoutsTotal != nil {
		result := "success"
		if err != nil {
			result = "failure"
		}
		obs.CheckoutsTotal.WithLabelValues(result).Inc()
	}
	return out, err
}

func (s *Service) create(ctx context.Context, userID string, in Input) (Output, error) {
	if s == nil || s.Q == nil || s.Pool == nil {
		return Output{}, errors.New("checkout service not configured")
	}
	if userID == "" {
		return Output{}, errors.New("user is required for checkout")
	}
	if in.CartID == "" {
		return Output{}, errors.New("cartId is required")
	}

	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Output{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	qtx := s.Q.WithTx(tx)

	cartRow, err := qtx.GetCart(ctx, in.CartID)
	if err != nil {
		return Output{}, err
	}
	if cartRow.UserID != "" && cartRow.UserID != userID {
		return Output{}, ErrCartOwnership
	}

	items, err := qtx.ListCartItems(ctx, cartRow.ID)
	if err != nil {
		return Output{}, err
	}
	lines, rawItems, err := assembleLines(ctx, qtx, items)
	if err != nil {
		return Output{}, err
	}
	if len(lines) == 0 {
		return Output{}, ErrEmptyCart
	}

	totals := pricing.CartTotals(rawItems)
	if totals.FinalTotal <= 0 {
		return Output{}, ErrEmptyCart
	}
	if totals.CorrectedDiscounts > 0 && obs.DiscountCorrectionsTotal != nil {
		obs.DiscountCorrectionsTotal.Add(float64(totals.CorrectedDiscounts))
	}
	if totals.SkippedItems > 0 && obs.CartItemsSkippedTotal != nil {
		obs.CartItemsSkippedTotal.WithLabelValues("checkout").Add(float64(totals.SkippedItems))
	}

	var locationCharge *int64
	if in.LocationID != "" {
		loc, err := qtx.GetLocation(ctx, in.LocationID)
		if err != nil {
			return Output{}, fmt.Errorf("location %s: %w", in.LocationID, err)
		}
		if !loc.IsActive {
			return Output{}, fmt.Errorf("location %s is not serviceable", in.LocationID)
		}
		charge := loc.DeliveryCharge
		locationCharge = &charge
	}
	delivery := s.Pricing.Delivery(totals.FinalTotal, locationCharge)

	var freeCashUsed int64
	if in.UseFreeCash {
		freeCashUsed = pricing.FreeCashAvailable(rawItems)
		user, err := qtx.GetUser(ctx, userID)
		if err != nil {
			return Output{}, err
		}
		if user.FreeCash < freeCashUsed {
			freeCashUsed = user.FreeCash
		}
	}
	grandTotal := pricing.GrandTotal(totals.FinalTotal, delivery, freeCashUsed)

	order, err := qtx.InsertOrder(ctx, repo.InsertOrderParams{
		UserID:         userID,
		LocationID:     in.LocationID,
		DeliveryName:   in.DeliveryName,
		DeliveryPhone:  in.DeliveryPhone,
		DeliveryNotes:  in.Notes,
		Subtotal:       totals.FinalTotal,
		OriginalTotal:  totals.OriginalTotal,
		Savings:        totals.TotalSavings,
		DeliveryCharge: delivery,
		FreeCashUsed:   freeCashUsed,
		GrandTotal:     grandTotal,
	})
	if err != nil {
		return Output{}, err
	}
	for _, line := range lines {
		if err := qtx.InsertOrderItem(ctx, repo.InsertOrderItemParams{
			OrderID:      order.ID,
			ProductID:    line.ProductID,
			ProductName:  line.ProductName,
			VariantLabel: line.VariantLabel,
			VariantIndex: int32(line.VariantIndex),
			Quantity:     int32(line.Quantity),
			UnitPrice:    line.UnitPrice,
			UnitMRP:      line.UnitMRP,
			DiscountPct:  int32(line.DiscountPct),
			IsFree:       line.IsFree,
		}); err != nil {
			return Output{}, err
		}
	}
	if freeCashUsed > 0 {
		if _, err := qtx.AdjustUserFreeCash(ctx, userID, -freeCashUsed); err != nil {
			return Output{}, err
		}
	}
	if err := qtx.ClearCart(ctx, cartRow.ID); err != nil {
		return Output{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Output{}, err
	}

	if freeCashUsed > 0 && obs.FreeCashRedeemedTotal != nil {
		obs.FreeCashRedeemedTotal.Add(float64(freeCashUsed))
	}

	return Output{
		OrderID:        order.ID,
		Status:         order.Status,
		Subtotal:       totals.FinalTotal,
		Savings:        totals.TotalSavings,
		DeliveryCharge: delivery,
		FreeCashUsed:   freeCashUsed,
		GrandTotal:     grandTotal,
	}, nil
}

type line struct {
	ProductID    string
	ProductName  string
	VariantLabel string
	VariantIndex int
	Quantity     int
	UnitPrice    int64
	UnitMRP      int64
	DiscountPct  int
	IsFree       bool
}

func assembleLines(ctx context.Context, q *repo.Queries, items []repo.CartItem) ([]line, []pricing.RawItem, error) {
	lines := make([]line, 0, len(items))
	rawItems := make([]pricing.RawItem, 0, len(items))
	for _, item := range items {
		product, err := q.GetProduct(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				continue
			}
			return nil, nil, err
		}
		if len(product.Variants) == 0 {
			continue
		}
		idx := int(item.VariantIndex)
		if idx < 0 || idx >= len(product.Variants) {
			idx = 0
		}
		variant := product.Variants[idx]
		quote := pricing.Calculate(&variant)
		lines = append(lines, line{
			ProductID:    item.ProductID,
			ProductName:  product.Name,
			VariantLabel: variant.Label,
			VariantIndex: idx,
			Quantity:     int(item.Quantity),
			UnitPrice:    quote.FinalPrice,
			UnitMRP:      quote.MRP,
			DiscountPct:  quote.DiscountPct,
			IsFree:       item.IsFree,
		})
		rawItems = append(rawItems, pricing.RawItem{
			ProductID:     item.ProductID,
			VariantIndex:  &idx,
			Quantity:      int(item.Quantity),
			IsFreeProduct: item.IsFree,
			Variant:       &variant,
		})
	}
	return lines, rawItems, nil
}
