package pricing

import (
	"math"
	"testing"
)

func TestCalculateCalculatorMode(t *testing.T) {
	v := &Variant{CostPrice: 100, ProfitWanted: 50}
	q := Calculate(v)
	if q.FinalPrice != 150 || q.MRP != 150 {
		t.Fatalf("expected 150/150, got %d/%d", q.FinalPrice, q.MRP)
	}
	if q.DiscountPct != 0 || q.DiscountAmount != 0 {
		t.Fatalf("expected no discount, got pct=%d amount=%d", q.DiscountPct, q.DiscountAmount)
	}
}

func TestCalculateManualMode(t *testing.T) {
	v := &Variant{Price: 249.4}
	q := Calculate(v)
	if q.FinalPrice != 249 {
		t.Fatalf("expected manual price 249, got %d", q.FinalPrice)
	}
	if q.MRP != 249 {
		t.Fatalf("expected mrp to match final price, got %d", q.MRP)
	}
}

func TestCalculateManualIgnoredWhenCalculatorSet(t *testing.T) {
	v := &Variant{CostPrice: 40, Price: 999}
	q := Calculate(v)
	if q.FinalPrice != 40 {
		t.Fatalf("manual price must be ignored when cost price is set, got %d", q.FinalPrice)
	}
}

func TestCalculatePercentageDiscount(t *testing.T) {
	v := &Variant{
		CostPrice:    100,
		ProfitWanted: 50,
		Discount:     &Discount{Kind: DiscountPercentage, Value: 25},
	}
	q := Calculate(v)
	if q.FinalPrice != 150 {
		t.Fatalf("expected final 150, got %d", q.FinalPrice)
	}
	if q.MRP != 200 {
		t.Fatalf("expected mrp 200, got %d", q.MRP)
	}
	if q.DiscountPct != 25 {
		t.Fatalf("expected 25%%, got %d", q.DiscountPct)
	}
	if q.DiscountAmount != 50 {
		t.Fatalf("expected discount amount 50, got %d", q.DiscountAmount)
	}
}

func TestCalculatePercentageRoundTrip(t *testing.T) {
	for pct := 0; pct <= 99; pct++ {
		v := &Variant{CostPrice: 380, ProfitWanted: 120, Discount: &Discount{Kind: DiscountPercentage, Value: float64(pct)}}
		q := Calculate(v)
		back := float64(q.MRP) * (1 - float64(pct)/100)
		if math.Abs(back-float64(q.FinalPrice)) > 1 {
			t.Fatalf("pct=%d: mrp %d does not round-trip to final %d (got %.2f)", pct, q.MRP, q.FinalPrice, back)
		}
	}
}

func TestCalculatePercentageClamped(t *testing.T) {
	v := &Variant{CostPrice: 10, Discount: &Discount{Kind: DiscountPercentage, Value: 150}}
	q := Calculate(v)
	if q.MRP < q.FinalPrice {
		t.Fatalf("clamped discount must keep mrp >= final, got %d < %d", q.MRP, q.FinalPrice)
	}
	if q.DiscountPct != 100 {
		// 99.99 rounds up to 100 on the badge.
		t.Fatalf("expected clamped badge 100, got %d", q.DiscountPct)
	}
}

func TestCalculateFlatDiscount(t *testing.T) {
	v := &Variant{CostPrice: 100, ProfitWanted: 50, Discount: &Discount{Kind: DiscountFlat, Value: 30}}
	q := Calculate(v)
	if q.FinalPrice != 150 || q.MRP != 180 {
		t.Fatalf("expected 150/180, got %d/%d", q.FinalPrice, q.MRP)
	}
	if q.DiscountPct != 17 {
		t.Fatalf("expected derived 17%%, got %d", q.DiscountPct)
	}
	if q.DiscountAmount != 30 {
		t.Fatalf("expected amount 30, got %d", q.DiscountAmount)
	}
}

func TestCalculateFlatNegativeClamped(t *testing.T) {
	v := &Variant{CostPrice: 100, Discount: &Discount{Kind: DiscountFlat, Value: -20}}
	q := Calculate(v)
	if q.MRP != 100 || q.DiscountPct != 0 {
		t.Fatalf("negative flat value must clamp to zero, got mrp=%d pct=%d", q.MRP, q.DiscountPct)
	}
}

func TestCalculateNilAndNegativeInputs(t *testing.T) {
	if q := Calculate(nil); q != (Quote{}) {
		t.Fatalf("nil variant must yield zero quote, got %+v", q)
	}
	if q := Calculate(&Variant{CostPrice: -1}); q != (Quote{}) {
		t.Fatalf("negative cost must yield zero quote, got %+v", q)
	}
	if q := Calculate(&Variant{FreeCashExpected: math.NaN(), CostPrice: 10}); q.FinalPrice != 10 {
		t.Fatalf("NaN free cash must default to zero, got %+v", q)
	}
}

func TestCalculateInvariantAlwaysHolds(t *testing.T) {
	variants := []*Variant{
		{CostPrice: 1, Discount: &Discount{Kind: DiscountPercentage, Value: 99.999}},
		{Price: 0.4},
		{CostPrice: 12.3, ProfitWanted: 4.5, FreeCashExpected: 0.2, Discount: &Discount{Kind: DiscountFlat, Value: 0.1}},
		{CostPrice: 500, Discount: &Discount{Kind: "unknown", Value: 50}},
	}
	for i, v := range variants {
		q := Calculate(v)
		if q.MRP < q.FinalPrice {
			t.Fatalf("case %d: invariant violated, mrp %d < final %d", i, q.MRP, q.FinalPrice)
		}
	}
}

func TestCalculateIdempotent(t *testing.T) {
	v := &Variant{CostPrice: 75, ProfitWanted: 25, Discount: &Discount{Kind: DiscountPercentage, Value: 10}}
	first := Calculate(v)
	second := Calculate(v)
	if first != second {
		t.Fatalf("expected pure computation, got %+v then %+v", first, second)
	}
}
