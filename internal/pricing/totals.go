package pricing

import "math"

// Totals aggregates a cart or order item list. AverageDiscountPct is the
// unweighted arithmetic mean of the per-line discount percentages, matching
// what the storefront badge shows; it is deliberately not value weighted.
// SkippedItems counts lines dropped because no variant or price snapshot could
// be resolved, and CorrectedDiscounts counts lines whose discount was
// discarded by the MRP invariant; both exist so callers can log and meter the
// anomalies instead of aborting the computation.
type Totals struct {
	FinalTotal         int64 `json:"finalTotal"`
	OriginalTotal      int64 `json:"originalTotal"`
	TotalSavings       int64 `json:"totalSavings"`
	AverageDiscountPct int   `json:"averageDiscountPercentage"`
	SkippedItems       int   `json:"-"`
	CorrectedDiscounts int   `json:"-"`
}

// CartTotals sums a heterogeneous item list into cart-level totals. Free
// loyalty products are excluded from every figure; malformed lines are skipped
// and counted rather than failing the whole computation.
func CartTotals(items []RawItem) Totals {
	var t Totals
	pctSum := 0
	contributing := 0

	for i := range items {
		li := Normalize(&items[i])
		if li == nil || li.IsFree {
			continue
		}
		quote, ok := quoteLine(li)
		if !ok {
			t.SkippedItems++
			continue
		}
		if quote.DiscountDiscarded {
			t.CorrectedDiscounts++
		}
		qty := int64(li.Quantity)
		t.FinalTotal += quote.FinalPrice * qty
		t.OriginalTotal += quote.MRP * qty
		pctSum += quote.DiscountPct
		contributing++
	}

	t.TotalSavings = t.OriginalTotal - t.FinalTotal
	if t.TotalSavings < 0 {
		t.TotalSavings = 0
	}
	if contributing > 0 {
		t.AverageDiscountPct = int(math.Round(float64(pctSum) / float64(contributing)))
	}
	return t
}

// quoteLine prices a single normalized line, preferring the live variant and
// falling back to the persisted price snapshot for legacy order rows.
func quoteLine(li *LineItem) (Quote, bool) {
	if li.Variant != nil {
		return Calculate(li.Variant), true
	}
	if li.PriceSnapshot > 0 {
		final := roundMoney(li.PriceSnapshot)
		mrp := roundMoney(li.OriginalPriceSnapshot)
		if mrp < final {
			mrp = final
		}
		pct := 0
		if mrp > 0 && mrp > final {
			pct = int(math.Round(float64(mrp-final) / float64(mrp) * 100))
		}
		return Quote{FinalPrice: final, MRP: mrp, DiscountPct: pct, DiscountAmount: mrp - final}, true
	}
	return Quote{}, false
}

// OrderPricing holds the delivery pricing knobs applied on top of cart totals.
// Zero values fall back to the storefront defaults.
type OrderPricing struct {
	DeliveryCharge        int64
	FreeDeliveryThreshold int64
}

const (
	defaultDeliveryCharge        = 49
	defaultFreeDeliveryThreshold = 500
)

func (p OrderPricing) charge() int64 {
	if p.DeliveryCharge > 0 {
		return p.DeliveryCharge
	}
	return defaultDeliveryCharge
}

func (p OrderPricing) threshold() int64 {
	if p.FreeDeliveryThreshold > 0 {
		return p.FreeDeliveryThreshold
	}
	return defaultFreeDeliveryThreshold
}

// Delivery returns the delivery charge for the discounted subtotal. Delivery
// is waived entirely once the subtotal reaches the free-delivery threshold;
// otherwise the selected location's charge applies, falling back to the
// configured default when the location carries none.
func (p OrderPricing) Delivery(subtotal int64, locationCharge *int64) int64 {
	if subtotal >= p.threshold() {
		return 0
	}
	if locationCharge != nil && *locationCharge >= 0 {
		return *locationCharge
	}
	return p.charge()
}

// FreeCashAvailable totals the redeemable free-cash pool across non-free
// lines. The same freeCashExpected field that feeds the selling price doubles
// as the loyalty rebate pool at redemption time.
func FreeCashAvailable(items []RawItem) int64 {
	var total int64
	for i := range items {
		li := Normalize(&items[i])
		if li == nil || li.IsFree || li.Variant == nil {
			continue
		}
		total += roundMoney(li.Variant.FreeCashExpected) * int64(li.Quantity)
	}
	return total
}

// GrandTotal combines the discounted subtotal, delivery charge and redeemed
// free cash, floored at zero.
func GrandTotal(subtotal, delivery, freeCashUsed int64) int64 {
	total := subtotal + delivery - freeCashUsed
	if total < 0 {
		return 0
	}
	return total
}
