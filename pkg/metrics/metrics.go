package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 帳本服務的 Prometheus 指標
type Metrics struct {
	registry *prometheus.Registry

	transfers        *prometheus.CounterVec
	transferDuration prometheus.Histogram
	sweeps           *prometheus.CounterVec
	sweepAccounts    *prometheus.CounterVec
	sweepDuration    prometheus.Histogram
	rpcRequests      *prometheus.CounterVec
}

// New 建立指標並註冊到獨立的 registry (含 Go runtime 與 process collector)
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		transfers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ledger",
			Name:      "transfers_total",
			Help:      "Total number of transfer attempts by result.",
		}, []string{"result"}),
		transferDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ledger",
			Name:      "transfer_duration_seconds",
			Help:      "Duration of transfers including lock wait.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12), // 0.5ms to ~1s
		}),
		sweeps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ledger",
			Name:      "accrual_sweeps_total",
			Help:      "Total number of accrual sweeps by result.",
		}, []string{"result"}),
		sweepAccounts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ledger",
			Name:      "accrual_accounts_total",
			Help:      "Accounts visited by accrual sweeps by outcome.",
		}, []string{"outcome"}),
		sweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ledger",
			Name:      "accrual_sweep_duration_seconds",
			Help:      "Duration of accrual sweeps.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to ~16s
		}),
		rpcRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ledger",
			Name:      "grpc_requests_total",
			Help:      "Total number of gRPC requests by method and status code.",
		}, []string{"method", "code"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.transfers,
		m.transferDuration,
		m.sweeps,
		m.sweepAccounts,
		m.sweepDuration,
		m.rpcRequests,
	)
	return m
}

// ObserveTransfer 記錄一次轉帳
func (m *Metrics) ObserveTransfer(result string, elapsed time.Duration) {
	m.transfers.WithLabelValues(result).Inc()
	m.transferDuration.Observe(elapsed.Seconds())
}

// ObserveSweep 記錄一次 accrual sweep
func (m *Metrics) ObserveSweep(result string, updated, unchanged, failed int, elapsed time.Duration) {
	m.sweeps.WithLabelValues(result).Inc()
	m.sweepAccounts.WithLabelValues("updated").Add(float64(updated))
	m.sweepAccounts.WithLabelValues("unchanged").Add(float64(unchanged))
	m.sweepAccounts.WithLabelValues("failed").Add(float64(failed))
	m.sweepDuration.Observe(elapsed.Seconds())
}

// ObserveRPC 記錄一次 gRPC 呼叫
func (m *Metrics) ObserveRPC(method, code string) {
	m.rpcRequests.WithLabelValues(method, code).Inc()
}

// Registry 供測試讀取
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler /metrics
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
