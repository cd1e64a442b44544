package pricing

import "math"

// Discount kinds supported by the storefront.
const (
	DiscountPercentage = "percentage"
	DiscountFlat       = "flat"
)

const (
	maxPercentDiscount = 99.99
	minMRPDivisor      = 0.0001
)

// Discount describes the reduction applied on top of a variant's selling price.
type Discount struct {
	Kind  string  `json:"type"`
	Value float64 `json:"value"`
}

// Variant is one purchasable configuration of a product carrying the
// admin-set pricing fields. CostPrice, ProfitWanted and FreeCashExpected are
// the calculator inputs; Price is a manual override used only when all three
// calculator fields are zero.
type Variant struct {
	Label            string    `json:"label,omitempty"`
	CostPrice        float64   `json:"costPrice"`
	ProfitWanted     float64   `json:"profitWanted"`
	FreeCashExpected float64   `json:"freeCashExpected"`
	Price            float64   `json:"price,omitempty"`
	Discount         *Discount `json:"discount,omitempty"`
	Stock            int       `json:"stock"`
	StockActive      bool      `json:"isStockActive"`
}

// Quote is the derived customer-facing price for a single variant. All
// monetary fields are whole currency units rounded to the nearest integer.
// DiscountDiscarded reports that the discount produced an MRP below the final
// price and was dropped to keep the MRP >= final price invariant; callers feed
// it into telemetry.
type Quote struct {
	FinalPrice        int64 `json:"finalPrice"`
	MRP               int64 `json:"mrp"`
	DiscountPct       int   `json:"discountPercentage"`
	DiscountAmount    int64 `json:"discountAmount"`
	DiscountDiscarded bool  `json:"-"`
}

// Calculate derives the final selling price and strike-through MRP for a
// variant. It never fails: nil input or negative admin pricing fields yield
// the zero Quote.
func Calculate(v *Variant) Quote {
	if v == nil {
		return Quote{}
	}
	cost := sanitize(v.CostPrice)
	profit := sanitize(v.ProfitWanted)
	freeCash := sanitize(v.FreeCashExpected)
	manual := sanitize(v.Price)
	if cost < 0 || profit < 0 || freeCash < 0 {
		return Quote{}
	}

	var final float64
	if cost == 0 && profit == 0 && freeCash == 0 && manual > 0 {
		// Manual pricing mode: admin typed the take-home price directly.
		final = manual
	} else {
		final = cost + profit + freeCash
	}
	if math.IsNaN(final) || final < 0 {
		return Quote{}
	}

	mrp := final
	pct := 0.0
	if v.Discount != nil {
		switch v.Discount.Kind {
		case DiscountPercentage:
			// The admin sets the take-home price; MRP is solved backwards so
			// the badge percentage holds against the price the customer pays.
			pct = clamp(sanitize(v.Discount.Value), 0, maxPercentDiscount)
			divisor := 1 - pct/100
			if divisor <= minMRPDivisor {
				pct = maxPercentDiscount
				divisor = 1 - pct/100
			}
			mrp = final / divisor
		case DiscountFlat:
			value := sanitize(v.Discount.Value)
			if value < 0 {
				value = 0
			}
			mrp = final + value
			if mrp > 0 {
				pct = math.Round(value / mrp * 100)
			}
		}
	}

	amount := mrp - final
	discarded := false
	if mrp < final {
		// Data anomaly: drop the discount rather than show a negative saving.
		mrp = final
		pct = 0
		amount = 0
		discarded = true
	}

	return Quote{
		FinalPrice:        roundMoney(final),
		MRP:               roundMoney(mrp),
		DiscountPct:       int(roundMoney(pct)),
		DiscountAmount:    roundMoney(amount),
		DiscountDiscarded: discarded,
	}
}

func sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func roundMoney(v float64) int64 {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	return int64(math.Round(v))
}
