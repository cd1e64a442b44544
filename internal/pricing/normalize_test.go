package pricing

import "testing"

func intPtr(v int) *int { return &v }

func TestNormalizeNil(t *testing.T) {
	if got := Normalize(nil); got != nil {
		t.Fatalf("expected nil for nil input, got %+v", got)
	}
}

func TestNormalizeProductDetailsShape(t *testing.T) {
	item := &RawItem{
		Quantity: 2,
		ProductDetails: &RawProduct{
			ID:           "cake-1",
			Name:         "Chocolate Truffle",
			VariantIndex: intPtr(1),
			Variants: []Variant{
				{Label: "500g", CostPrice: 200},
				{Label: "1kg", CostPrice: 380},
			},
		},
	}
	li := Normalize(item)
	if li == nil {
		t.Fatal("expected normalized item")
	}
	if li.ProductID != "cake-1" {
		t.Fatalf("expected product id from nested payload, got %q", li.ProductID)
	}
	if li.VariantIndex != 1 || li.Variant == nil || li.Variant.Label != "1kg" {
		t.Fatalf("expected nested variant index to resolve 1kg, got idx=%d variant=%+v", li.VariantIndex, li.Variant)
	}
}

func TestNormalizeTopLevelIndexWins(t *testing.T) {
	item := &RawItem{
		VariantIndex: intPtr(0),
		Product: &RawProduct{
			ID:           "bread-3",
			VariantIndex: intPtr(1),
			Variants:     []Variant{{Label: "small"}, {Label: "large"}},
		},
	}
	li := Normalize(item)
	if li.VariantIndex != 0 || li.Variant.Label != "small" {
		t.Fatalf("top-level variant index must win, got idx=%d label=%q", li.VariantIndex, li.Variant.Label)
	}
}

func TestNormalizeInlineProductShape(t *testing.T) {
	item := &RawItem{
		ProductID: "cookie-7",
		Variants:  []Variant{{Label: "box", CostPrice: 150}},
	}
	li := Normalize(item)
	if li.Variant == nil || li.Variant.Label != "box" {
		t.Fatalf("expected inline variants to resolve, got %+v", li.Variant)
	}
}

func TestNormalizeDefaults(t *testing.T) {
	li := Normalize(&RawItem{ProductID: "x", Quantity: 0, VariantIndex: intPtr(-3)})
	if li.Quantity != 1 {
		t.Fatalf("quantity must default to 1, got %d", li.Quantity)
	}
	if li.VariantIndex != 0 {
		t.Fatalf("negative variant index must clamp to 0, got %d", li.VariantIndex)
	}
	if li.Variant != nil {
		t.Fatalf("no variant should resolve, got %+v", li.Variant)
	}
}

func TestNormalizeOutOfRangeIndexFallsBack(t *testing.T) {
	item := &RawItem{
		VariantIndex:   intPtr(5),
		ProductDetails: &RawProduct{ID: "p", Variants: []Variant{{Label: "only"}}},
	}
	li := Normalize(item)
	if li.Variant == nil || li.Variant.Label != "only" {
		t.Fatalf("out-of-range index must fall back to the first variant, got %+v", li.Variant)
	}
}
