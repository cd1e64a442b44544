package order

import (
	"github.com/noah-isme/backend-bakehouse/internal/obs"
	"github.com/noah-isme/backend-bakehouse/internal/pricing"
	"github.com/noah-isme/backend-bakehouse/internal/repo"
)

// SummaryFromItems recomputes order totals from the priced line snapshots.
// Delivery charge and redeemed free cash cannot be re-derived from lines, so
// they are carried over from the stored order.
func SummaryFromItems(items []repo.OrderItem, stored repo.OrderSummary) repo.OrderSummary {
	var subtotal, original int64
	for _, item := range items {
		if item.IsFree {
			continue
		}
		qty := int64(item.Quantity)
		if qty < 1 {
			qty = 1
		}
		subtotal += item.UnitPrice * qty
		original += item.UnitMRP * qty
	}
	savings := original - subtotal
	if savings < 0 {
		savings = 0
	}
	return repo.OrderSummary{
		Subtotal:       subtotal,
		OriginalTotal:  original,
		Savings:        savings,
		DeliveryCharge: stored.DeliveryCharge,
		FreeCashUsed:   stored.FreeCashUsed,
		GrandTotal:     pricing.GrandTotal(subtotal, stored.DeliveryCharge, stored.FreeCashUsed),
	}
}

// ReconcileSummary merges a freshly recomputed summary with the stored one.
// A fresh nonzero value wins; a fresh zero falls back to the stored value so
// a failed recomputation never wipes known totals.
func ReconcileSummary(stored, fresh repo.OrderSummary) repo.OrderSummary {
	return repo.OrderSummary{
		Subtotal:       pick(stored.Subtotal, fresh.Subtotal, "subtotal"),
		OriginalTotal:  pick(stored.OriginalTotal, fresh.OriginalTotal, "original_total"),
		Savings:        pick(stored.Savings, fresh.Savings, "savings"),
		DeliveryCharge: pick(stored.DeliveryCharge, fresh.DeliveryCharge, "delivery_charge"),
		FreeCashUsed:   pick(stored.FreeCashUsed, fresh.FreeCashUsed, "free_cash_used"),
		GrandTotal:     pick(stored.GrandTotal, fresh.GrandTotal, "grand_total"),
	}
}

func pick(stored, fresh int64, field string) int64 {
	if fresh != 0 {
		return fresh
	}
	if stored != 0 {
		if obs.SummaryFallbacksTotal != nil {
			obs.SummaryFallbacksTotal.WithLabelValues(field).Inc()
		}
	}
	return stored
}
