package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// QuotesComputedTotal counts variant price quotes served by surface.
	QuotesComputedTotal *prometheus.CounterVec
	// DiscountCorrectionsTotal counts discounts discarded to keep MRP >= final price.
	DiscountCorrectionsTotal prometheus.Counter
	// CartItemsSkippedTotal counts cart/order lines dropped during aggregation.
	CartItemsSkippedTotal *prometheus.CounterVec
	// CheckoutsTotal counts checkout attempts by outcome.
	CheckoutsTotal *prometheus.CounterVec
	// FreeCashRedeemedTotal accumulates redeemed free-cash currency units.
	FreeCashRedeemedTotal prometheus.Counter
	// SummaryFallbacksTotal counts order summary fields served from the stored
	// record because the fresh recomputation produced nothing.
	SummaryFallbacksTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		QuotesComputedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pricing_quotes_total",
			Help:      "Count of variant price quotes computed, by serving surface.",
		}, []string{"surface"})
		DiscountCorrectionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pricing_discount_corrections_total",
			Help:      "Count of discounts discarded because they violated the MRP invariant.",
		})
		CartItemsSkippedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pricing_items_skipped_total",
			Help:      "Count of malformed cart/order lines skipped during aggregation.",
		}, []string{"surface"})
		CheckoutsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_total",
			Help:      "Count of checkout attempts by outcome.",
		}, []string{"result"})
		FreeCashRedeemedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "free_cash_redeemed_total",
			Help:      "Total free-cash currency units redeemed against orders.",
		})
		SummaryFallbacksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_summary_fallbacks_total",
			Help:      "Count of order summary fields taken from the stored record during reconciliation.",
		}, []string{"field"})

		registerCollector(reg, QuotesComputedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				QuotesComputedTotal = v
			}
		})
		registerCollector(reg, DiscountCorrectionsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				DiscountCorrectionsTotal = v
			}
		})
		registerCollector(reg, CartItemsSkippedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CartItemsSkippedTotal = v
			}
		})
		registerCollector(reg, CheckoutsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CheckoutsTotal = v
			}
		})
		registerCollector(reg, FreeCashRedeemedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				FreeCashRedeemedTotal = v
			}
		})
		registerCollector(reg, SummaryFallbacksTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				SummaryFallbacksTotal = v
			}
		})
	})
}

func registerCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
