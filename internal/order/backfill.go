package order

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-bakehouse/internal/repo"
)

type backfillQueries interface {
	ListOrdersMissingSummary(ctx context.Context, limit int32) ([]repo.Order, error)
	ListOrderItems(ctx context.Context, orderID string) ([]repo.OrderItem, error)
	UpdateOrderSummary(ctx context.Context, orderID string, summary repo.OrderSummary) error
}

// Backfill recomputes missing order summaries from line snapshots.
type Backfill struct {
	Q         backfillQueries
	BatchSize int32
	Logger    *zerolog.Logger
}

// RunOnce repairs a single batch of orders and reports how many rows were
// updated. Per-order failures are logged and skipped so one bad row cannot
// stall the whole batch.
func (b Backfill) RunOnce(ctx context.Context) (int, error) {
	if b.Q == nil {
		return 0, errors.New("order: backfill queries not configured")
	}
	limit := b.BatchSize
	if limit <= 0 {
		limit = 50
	}

	orders, err := b.Q.ListOrdersMissingSummary(ctx, limit)
	if err != nil {
		return 0, err
	}

	repaired := 0
	for _, ord := range orders {
		if err := ctx.Err(); err != nil {
			return repaired, err
		}
		items, err := b.Q.ListOrderItems(ctx, ord.ID)
		if err != nil {
			b.logError(ord.ID, err)
			continue
		}
		if len(items) == 0 {
			continue
		}
		stored := storedSummary(ord)
		fresh := SummaryFromItems(items, stored)
		summary := ReconcileSummary(stored, fresh)
		if err := b.Q.UpdateOrderSummary(ctx, ord.ID, summary); err != nil {
			b.logError(ord.ID, err)
			continue
		}
		repaired++
	}
	return repaired, nil
}

func (b Backfill) logError(orderID string, err error) {
	if b.Logger != nil {
		b.Logger.Error().Err(err).Str("order_id", orderID).Msg("backfill order summary")
	}
}
