package pricing

import "testing"

func cartItem(cost, profit float64, d *Discount, qty int) RawItem {
	return RawItem{
		ProductID: "prod",
		Quantity:  qty,
		Variant:   &Variant{CostPrice: cost, ProfitWanted: profit, Discount: d},
	}
}

func TestCartTotalsEmpty(t *testing.T) {
	got := CartTotals(nil)
	if got != (Totals{}) {
		t.Fatalf("expected zero totals, got %+v", got)
	}
}

func TestCartTotalsSumsQuantities(t *testing.T) {
	items := []RawItem{
		cartItem(100, 50, &Discount{Kind: DiscountPercentage, Value: 25}, 2),
		cartItem(80, 20, nil, 1),
	}
	got := CartTotals(items)
	if got.FinalTotal != 2*150+100 {
		t.Fatalf("expected final total 400, got %d", got.FinalTotal)
	}
	if got.OriginalTotal != 2*200+100 {
		t.Fatalf("expected original total 500, got %d", got.OriginalTotal)
	}
	if got.TotalSavings != 100 {
		t.Fatalf("expected savings 100, got %d", got.TotalSavings)
	}
}

func TestCartTotalsUnweightedAverageDiscount(t *testing.T) {
	// 20% and 40% lines average to 30 regardless of quantity or value skew.
	items := []RawItem{
		cartItem(800, 200, &Discount{Kind: DiscountPercentage, Value: 20}, 5),
		cartItem(10, 5, &Discount{Kind: DiscountPercentage, Value: 40}, 1),
	}
	got := CartTotals(items)
	if got.AverageDiscountPct != 30 {
		t.Fatalf("expected unweighted mean 30, got %d", got.AverageDiscountPct)
	}
}

func TestCartTotalsSkipsFreeProducts(t *testing.T) {
	free := cartItem(100, 0, nil, 3)
	free.IsFreeProduct = true
	got := CartTotals([]RawItem{free})
	if got != (Totals{}) {
		t.Fatalf("free product must not contribute, got %+v", got)
	}
}

func TestCartTotalsSkipsUnresolvableItems(t *testing.T) {
	items := []RawItem{
		{ProductID: "ghost", Quantity: 2},
		cartItem(50, 0, nil, 1),
	}
	got := CartTotals(items)
	if got.SkippedItems != 1 {
		t.Fatalf("expected one skipped item, got %d", got.SkippedItems)
	}
	if got.FinalTotal != 50 {
		t.Fatalf("expected remaining item to total 50, got %d", got.FinalTotal)
	}
}

func TestCartTotalsUsesSnapshotPrices(t *testing.T) {
	items := []RawItem{{ProductID: "legacy", Quantity: 2, Price: 120, OriginalPrice: 150}}
	got := CartTotals(items)
	if got.FinalTotal != 240 || got.OriginalTotal != 300 {
		t.Fatalf("expected snapshot totals 240/300, got %d/%d", got.FinalTotal, got.OriginalTotal)
	}
	if got.AverageDiscountPct != 20 {
		t.Fatalf("expected snapshot discount 20%%, got %d", got.AverageDiscountPct)
	}
}

func TestDeliveryCharge(t *testing.T) {
	p := OrderPricing{}
	if got := p.Delivery(499, nil); got != 49 {
		t.Fatalf("expected default charge 49, got %d", got)
	}
	if got := p.Delivery(500, nil); got != 0 {
		t.Fatalf("expected free delivery at threshold, got %d", got)
	}
	charge := int64(30)
	if got := p.Delivery(100, &charge); got != 30 {
		t.Fatalf("expected location charge 30, got %d", got)
	}
	zero := int64(0)
	if got := p.Delivery(100, &zero); got != 0 {
		t.Fatalf("a location may legitimately charge zero, got %d", got)
	}
}

func TestDeliveryChargeConfigured(t *testing.T) {
	p := OrderPricing{DeliveryCharge: 60, FreeDeliveryThreshold: 1000}
	if got := p.Delivery(999, nil); got != 60 {
		t.Fatalf("expected configured charge 60, got %d", got)
	}
	if got := p.Delivery(1000, nil); got != 0 {
		t.Fatalf("expected configured threshold to waive delivery, got %d", got)
	}
}

func TestFreeCashAvailable(t *testing.T) {
	items := []RawItem{
		{ProductID: "a", Quantity: 2, Variant: &Variant{CostPrice: 100, FreeCashExpected: 10}},
		{ProductID: "b", Quantity: 1, Variant: &Variant{CostPrice: 50, FreeCashExpected: 5}, IsFreeProduct: true},
	}
	if got := FreeCashAvailable(items); got != 20 {
		t.Fatalf("expected pool 20 (free lines excluded), got %d", got)
	}
}

func TestGrandTotalFloorsAtZero(t *testing.T) {
	if got := GrandTotal(100, 49, 500); got != 0 {
		t.Fatalf("expected floor at zero, got %d", got)
	}
	if got := GrandTotal(451, 49, 100); got != 400 {
		t.Fatalf("expected 400, got %d", got)
	}
}
