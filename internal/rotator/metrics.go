package rotator

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 聚合 /metrics 暴露的所有指标。
//
// Metrics:
//   - proxypool_rotations_total: 轮换次数（按客户端与来源）
//   - proxypool_auth_failures_total: 鉴权失败次数（按方案）
//   - proxypool_egress_checks_total: 出口探测结果计数
//   - proxypool_persist_failures_total: 落盘失败次数
//   - proxypool_clients / proxypool_proxies / proxypool_blocked_proxies: 即时规模
type Metrics struct {
	registry *prometheus.Registry

	rotationsTotal    *prometheus.CounterVec
	authFailuresTotal *prometheus.CounterVec
	egressChecksTotal *prometheus.CounterVec
	persistFailures   prometheus.Counter
}

// NewMetrics 创建并注册指标；clients/proxies/blocked 通过 GaugeFunc 即时采样。
func NewMetrics(reg *Registry, blockedCount func() int) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		rotationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "proxypool",
				Name:      "rotations_total",
				Help:      "Total number of cursor rotations",
			},
			[]string{"client", "source"},
		),
		authFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "proxypool",
				Name:      "auth_failures_total",
				Help:      "Total number of rejected authentication attempts",
			},
			[]string{"scheme"},
		),
		egressChecksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "proxypool",
				Name:      "egress_checks_total",
				Help:      "Total number of egress IP checks by result",
			},
			[]string{"result"},
		),
		persistFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "proxypool",
				Name:      "persist_failures_total",
				Help:      "Total number of failed snapshot writes",
			},
		),
	}

	m.registry.MustRegister(m.rotationsTotal, m.authFailuresTotal, m.egressChecksTotal, m.persistFailures)
	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{Namespace: "proxypool", Name: "clients", Help: "Registered clients"},
		func() float64 {
			clients, _ := reg.Totals()
			return float64(clients)
		},
	))
	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{Namespace: "proxypool", Name: "proxies", Help: "Registered proxy endpoints"},
		func() float64 {
			_, proxies := reg.Totals()
			return float64(proxies)
		},
	))
	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{Namespace: "proxypool", Name: "blocked_proxies", Help: "Proxies flagged by failed egress checks"},
		blockedGaugeFunc(blockedCount),
	))
	return m
}

func blockedGaugeFunc(count func() int) func() float64 {
	return func() float64 {
		if count == nil {
			return 0
		}
		return float64(count())
	}
}

// Handler 返回 /metrics 的 HTTP 处理器。
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) recordRotation(client, source string) {
	if m == nil {
		return
	}
	m.rotationsTotal.WithLabelValues(client, source).Inc()
}

func (m *Metrics) recordAuthFailure(scheme string) {
	if m == nil {
		return
	}
	m.authFailuresTotal.WithLabelValues(scheme).Inc()
}

func (m *Metrics) recordEgressCheck(result string) {
	if m == nil {
		return
	}
	m.egressChecksTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) recordPersistFailure() {
	if m == nil {
		return
	}
	m.persistFailures.Inc()
}
