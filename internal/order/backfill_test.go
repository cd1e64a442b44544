package order

import (
	"context"
	"errors"
	"testing"

	"github.com/noah-isme/backend-bakehouse/internal/repo"
)

type fakeBackfillStore struct {
	orders    []repo.Order
	items     map[string][]repo.OrderItem
	itemsErr  map[string]error
	summaries map[string]repo.OrderSummary
}

func (f *fakeBackfillStore) ListOrdersMissingSummary(_ context.Context, limit int32) ([]repo.Order, error) {
	if int32(len(f.orders)) > limit {
		return f.orders[:limit], nil
	}
	return f.orders, nil
}

func (f *fakeBackfillStore) ListOrderItems(_ context.Context, orderID string) ([]repo.OrderItem, error) {
	if err := f.itemsErr[orderID]; err != nil {
		return nil, err
	}
	return f.items[orderID], nil
}

func (f *fakeBackfillStore) UpdateOrderSummary(_ context.Context, orderID string, summary repo.OrderSummary) error {
	if f.summaries == nil {
		f.summaries = map[string]repo.OrderSummary{}
	}
	f.summaries[orderID] = summary
	return nil
}

func TestBackfillRepairsMissingSummaries(t *testing.T) {
	store := &fakeBackfillStore{
		orders: []repo.Order{
			{ID: "ord-1", DeliveryCharge: 49},
			{ID: "ord-empty"},
		},
		items: map[string][]repo.OrderItem{
			"ord-1": {
				{OrderID: "ord-1", Quantity: 2, UnitPrice: 370, UnitMRP: 493},
				{OrderID: "ord-1", Quantity: 1, UnitPrice: 99, UnitMRP: 99},
			},
		},
	}

	repaired, err := Backfill{Q: store}.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("run once: %v", err)
	}
	if repaired != 1 {
		t.Fatalf("repaired = %d, want 1", repaired)
	}

	got, ok := store.summaries["ord-1"]
	if !ok {
		t.Fatal("expected summary written for ord-1")
	}
	if got.Subtotal != 839 {
		t.Fatalf("subtotal = %d, want 839", got.Subtotal)
	}
	if got.OriginalTotal != 1085 {
		t.Fatalf("original total = %d, want 1085", got.OriginalTotal)
	}
	if got.Savings != 246 {
		t.Fatalf("savings = %d, want 246", got.Savings)
	}
	if got.GrandTotal != 839+49 {
		t.Fatalf("grand total = %d, want %d", got.GrandTotal, 839+49)
	}

	if _, ok := store.summaries["ord-empty"]; ok {
		t.Fatal("order without items must be left alone")
	}
}

func TestBackfillSkipsFailingOrder(t *testing.T) {
	store := &fakeBackfillStore{
		orders: []repo.Order{
			{ID: "ord-bad"},
			{ID: "ord-good"},
		},
		items: map[string][]repo.OrderItem{
			"ord-good": {{OrderID: "ord-good", Quantity: 1, UnitPrice: 370, UnitMRP: 493}},
		},
		itemsErr: map[string]error{"ord-bad": errors.New("connection reset")},
	}

	repaired, err := Backfill{Q: store}.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("run once: %v", err)
	}
	if repaired != 1 {
		t.Fatalf("repaired = %d, want 1", repaired)
	}
	if _, ok := store.summaries["ord-good"]; !ok {
		t.Fatal("expected the healthy order to be repaired")
	}
}
