package frontend

import (
	"mcprouter/internal/aggregator"
	"mcprouter/internal/approval"
	"mcprouter/internal/supervisor"

	"github.com/prometheus/client_golang/prometheus"
)

// registerMetrics wires the operator-facing gauges of spec.md's observability
// expansion onto a dedicated registry, scraped at /metrics: downstream server
// health per the supervisor, exposed tool count per the aggregator registry,
// and pending-approval depth. All are computed at scrape time via
// prometheus.NewGaugeFunc, so there is no instrumentation to keep in sync on
// the hot path.
func registerMetrics(reg *prometheus.Registry, sup *supervisor.Supervisor, registry *aggregator.ServerRegistry, approvals *approval.Queue) {
	reg.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: "mcprouter",
			Name:      "exposed_tools_total",
			Help:      "Number of namespaced tools currently exposed to clients.",
		},
		func() float64 { return float64(len(registry.GetAllTools())) },
	))

	reg.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: "mcprouter",
			Name:      "servers_healthy_total",
			Help:      "Number of supervised downstream servers currently healthy.",
		},
		func() float64 {
			n := 0
			for _, svc := range sup.All() {
				if svc.IsHealthy() {
					n++
				}
			}
			return float64(n)
		},
	))

	reg.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: "mcprouter",
			Name:      "servers_total",
			Help:      "Number of supervised downstream servers, healthy or not.",
		},
		func() float64 { return float64(len(sup.All())) },
	))

	reg.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: "mcprouter",
			Name:      "approvals_pending",
			Help:      "Number of approvals currently awaiting a response.",
		},
		func() float64 { return float64(approvals.PendingCount()) },
	))
}
