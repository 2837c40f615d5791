// internal/pkg/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 事务与业务结果的核心指标，通过 /metrics 暴露给 Prometheus。
var (
	TxCommitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pedidos_uow_commits_total",
		Help: "Number of request-scoped transactions committed.",
	})

	TxRolledBack = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pedidos_uow_rollbacks_total",
		Help: "Number of request-scoped transactions rolled back.",
	})

	ConcurrencyConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pedidos_order_conflicts_total",
		Help: "Number of optimistic concurrency conflicts on orders.",
	})

	PaymentsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pedidos_payments_total",
		Help: "Number of processed payments by method and resulting status.",
	}, []string{"method", "status"})

	AuthzDenied = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pedidos_authz_denied_total",
		Help: "Number of requests denied by the ownership guard.",
	})
)
