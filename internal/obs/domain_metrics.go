package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// DocumentValidationTotal counts CPF/CNPJ validation outcomes.
	DocumentValidationTotal *prometheus.CounterVec
	// StockCheckTotal counts stock availability check outcomes.
	StockCheckTotal *prometheus.CounterVec
	// SettlementReconcileTotal counts payment plan reconciliation outcomes.
	SettlementReconcileTotal *prometheus.CounterVec
	// OrderFinalizeTotal counts order finalization outcomes.
	OrderFinalizeTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		DocumentValidationTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "document_validation_total",
			Help:      "Count of fiscal document validations by kind and result.",
		}, []string{"kind", "result"})
		StockCheckTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stock_check_total",
			Help:      "Count of stock availability checks by outcome.",
		}, []string{"outcome"})
		SettlementReconcileTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settlement_reconcile_total",
			Help:      "Count of payment plan reconciliations by result.",
		}, []string{"result"})
		OrderFinalizeTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_finalize_total",
			Help:      "Count of order finalization attempts by result.",
		}, []string{"result"})

		mustRegisterCollector(reg, DocumentValidationTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				DocumentValidationTotal = v
			}
		})
		mustRegisterCollector(reg, StockCheckTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				StockCheckTotal = v
			}
		})
		mustRegisterCollector(reg, SettlementReconcileTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				SettlementReconcileTotal = v
			}
		})
		mustRegisterCollector(reg, OrderFinalizeTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				OrderFinalizeTotal = v
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
