package order

import (
	"testing"

	"github.com/noah-isme/backend-bakehouse/internal/repo"
)

func TestSummaryFromItems(t *testing.T) {
	stored := repo.OrderSummary{DeliveryCharge: 49, FreeCashUsed: 20}
	items := []repo.OrderItem{
		{Quantity: 2, UnitPrice: 370, UnitMRP: 493},
		{Quantity: 1, UnitPrice: 99, UnitMRP: 99},
		{Quantity: 1, UnitPrice: 99, UnitMRP: 99, IsFree: true},
	}
	fresh := SummaryFromItems(items, stored)
	if fresh.Subtotal != 839 {
		t.Fatalf("expected subtotal 839, got %d", fresh.Subtotal)
	}
	if fresh.OriginalTotal != 1085 {
		t.Fatalf("expected original total 1085, got %d", fresh.OriginalTotal)
	}
	if fresh.Savings != 246 {
		t.Fatalf("expected savings 246, got %d", fresh.Savings)
	}
	if fresh.DeliveryCharge != 49 || fresh.FreeCashUsed != 20 {
		t.Fatalf("expected carried delivery/free cash, got %d/%d", fresh.DeliveryCharge, fresh.FreeCashUsed)
	}
	if fresh.GrandTotal != 839+49-20 {
		t.Fatalf("expected grand total %d, got %d", 839+49-20, fresh.GrandTotal)
	}
}

func TestSummaryFromItemsNeverNegative(t *testing.T) {
	stored := repo.OrderSummary{FreeCashUsed: 500}
	items := []repo.OrderItem{{Quantity: 1, UnitPrice: 99, UnitMRP: 99}}
	fresh := SummaryFromItems(items, stored)
	if fresh.GrandTotal != 0 {
		t.Fatalf("expected floored grand total, got %d", fresh.GrandTotal)
	}
}

func TestReconcilePrefersFreshNonzero(t *testing.T) {
	stored := repo.OrderSummary{Subtotal: 100, OriginalTotal: 120, Savings: 20, DeliveryCharge: 49, GrandTotal: 149}
	fresh := repo.OrderSummary{Subtotal: 200, OriginalTotal: 240, Savings: 40, DeliveryCharge: 49, GrandTotal: 249}
	merged := ReconcileSummary(stored, fresh)
	if merged.Subtotal != 200 || merged.GrandTotal != 249 {
		t.Fatalf("expected fresh values to win, got %+v", merged)
	}
}

func TestReconcileFallsBackToStored(t *testing.T) {
	stored := repo.OrderSummary{Subtotal: 100, OriginalTotal: 120, Savings: 20, DeliveryCharge: 49, GrandTotal: 149}
	merged := ReconcileSummary(stored, repo.OrderSummary{})
	if merged != stored {
		t.Fatalf("expected stored summary, got %+v", merged)
	}
}

func TestTransitionAllowed(t *testing.T) {
	cases := []struct {
		current string
		target  string
		want    bool
	}{
		{repo.OrderStatusPlaced, repo.OrderStatusConfirmed, true},
		{repo.OrderStatusConfirmed, repo.OrderStatusBaking, true},
		{repo.OrderStatusBaking, repo.OrderStatusPlaced, false},
		{repo.OrderStatusBaking, repo.OrderStatusBaking, false},
		{repo.OrderStatusBaking, repo.OrderStatusCancelled, true},
		{repo.OrderStatusDispatched, repo.OrderStatusCancelled, false},
		{repo.OrderStatusDelivered, repo.OrderStatusCancelled, false},
		{repo.OrderStatusCancelled, repo.OrderStatusConfirmed, false},
	}
	for _, tc := range cases {
		if got := transitionAllowed(tc.current, tc.target); got != tc.want {
			t.Fatalf("transition %s -> %s: expected %v, got %v", tc.current, tc.target, tc.want, got)
		}
	}
}
