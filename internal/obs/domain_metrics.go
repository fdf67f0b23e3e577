package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// PricingComputeTotal counts price computations by outcome code.
	PricingComputeTotal *prometheus.CounterVec
	// QuoteItemsAddedTotal counts quote line insertions by outcome code.
	QuoteItemsAddedTotal *prometheus.CounterVec
	// QuotesFinalizedTotal counts finalize operations by resulting status.
	QuotesFinalizedTotal *prometheus.CounterVec
	// QuotePDFRenderTotal counts rendered quote documents by outcome.
	QuotePDFRenderTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		PricingComputeTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pricing_compute_total",
			Help:      "Count of price computations by outcome.",
		}, []string{"result"})
		QuoteItemsAddedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quote_items_added_total",
			Help:      "Count of quote line insertions by outcome.",
		}, []string{"result"})
		QuotesFinalizedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quotes_finalized_total",
			Help:      "Count of quote finalizations by resulting status.",
		}, []string{"status"})
		QuotePDFRenderTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quote_pdf_render_total",
			Help:      "Count of rendered quote documents by outcome.",
		}, []string{"result"})

		mustRegisterCollector(reg, PricingComputeTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				PricingComputeTotal = v
			}
		})
		mustRegisterCollector(reg, QuoteItemsAddedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				QuoteItemsAddedTotal = v
			}
		})
		mustRegisterCollector(reg, QuotesFinalizedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				QuotesFinalizedTotal = v
			}
		})
		mustRegisterCollector(reg, QuotePDFRenderTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				QuotePDFRenderTotal = v
			}
		})
	})
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
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
