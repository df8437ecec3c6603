package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRegistry 创建自定义 Prometheus Registry，并注册常用采集器
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler 返回 Prometheus 指标 HTTP 处理器
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// AppMetrics 设备交互与控制接口指标
type AppMetrics struct {
	TransactionsTotal   *prometheus.CounterVec   // labels: cmd, result
	TransactionDuration *prometheus.HistogramVec // labels: cmd
	ReadAttempts        prometheus.Histogram     // 每次交互实际读取次数
	AddressMismatches   prometheus.Counter
	LinkState           prometheus.Gauge       // 0=disconnected 1=connected 2=error
	HTTPRequests        *prometheus.CounterVec // labels: route, status
}

// NewAppMetrics 注册并返回业务指标
func NewAppMetrics(reg prometheus.Registerer) *AppMetrics {
	m := &AppMetrics{
		TransactionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lucid_transactions_total",
			Help: "Device transactions by command and result.",
		}, []string{"cmd", "result"}),
		TransactionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lucid_transaction_duration_seconds",
			Help:    "Write plus read-with-retry duration per command.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2, 4},
		}, []string{"cmd"}),
		ReadAttempts: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "lucid_read_attempts",
			Help:    "Read attempts needed per transaction.",
			Buckets: []float64{1, 2, 3, 4, 5},
		}),
		AddressMismatches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lucid_address_mismatch_total",
			Help: "Responses reporting an unexpected device address.",
		}),
		LinkState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lucid_link_state",
			Help: "Connection state: 0 disconnected, 1 connected, 2 error.",
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "glucid_http_requests_total",
			Help: "Control API requests by route and status.",
		}, []string{"route", "status"}),
	}
	reg.MustRegister(m.TransactionsTotal, m.TransactionDuration, m.ReadAttempts, m.AddressMismatches, m.LinkState, m.HTTPRequests)
	return m
}
