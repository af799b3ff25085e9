package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 监控指标
type Metrics struct {
	// HTTP 请求指标
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// 同步指标
	SyncPassesTotal    *prometheus.CounterVec
	SyncPassDuration   *prometheus.HistogramVec
	SyncPagesFetched   prometheus.Counter
	RecordsFetched     prometheus.Counter
	RecordsPersisted   prometheus.Counter
	RecordsFailed      prometheus.Counter
	ReadinessProbes    prometheus.Counter
	ReadinessTimeouts  prometheus.Counter
	AccountsRegistered prometheus.Counter

	// 错误指标
	ErrorsTotal *prometheus.CounterVec
	PanicsTotal prometheus.Counter
}

// NewMetrics 创建监控指标
func NewMetrics() *Metrics {
	return &Metrics{
		// HTTP 请求指标
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mailsync_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mailsync_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		// 同步指标
		SyncPassesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mailsync_sync_passes_total",
				Help: "Total number of sync passes",
			},
			[]string{"kind", "outcome"},
		),

		SyncPassDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mailsync_sync_pass_duration_seconds",
				Help:    "Sync pass duration in seconds",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
			},
			[]string{"kind"},
		),

		SyncPagesFetched: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "mailsync_sync_pages_fetched_total",
				Help: "Total number of delta pages fetched",
			},
		),

		RecordsFetched: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "mailsync_records_fetched_total",
				Help: "Total number of message records fetched",
			},
		),

		RecordsPersisted: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "mailsync_records_persisted_total",
				Help: "Total number of message records persisted",
			},
		),

		RecordsFailed: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "mailsync_records_failed_total",
				Help: "Total number of message records that failed to persist",
			},
		),

		ReadinessProbes: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "mailsync_readiness_probes_total",
				Help: "Total number of mailbox readiness probes",
			},
		),

		ReadinessTimeouts: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "mailsync_readiness_timeouts_total",
				Help: "Total number of readiness polling timeouts",
			},
		),

		AccountsRegistered: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "mailsync_accounts_registered_total",
				Help: "Total number of accounts registered",
			},
		),

		// 错误指标
		ErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mailsync_errors_total",
				Help: "Total number of errors",
			},
			[]string{"type", "component"},
		),

		PanicsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "mailsync_panics_total",
				Help: "Total number of panics",
			},
		),
	}
}

// RecordHTTPRequest 记录 HTTP 请求指标
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordSyncPass 记录一轮同步的汇总指标
func (m *Metrics) RecordSyncPass(kind, outcome string, fetched, persisted, failed int, duration time.Duration) {
	m.SyncPassesTotal.WithLabelValues(kind, outcome).Inc()
	m.SyncPassDuration.WithLabelValues(kind).Observe(duration.Seconds())
	m.RecordsFetched.Add(float64(fetched))
	m.RecordsPersisted.Add(float64(persisted))
	m.RecordsFailed.Add(float64(failed))
}

// RecordPagesFetched 记录拉取的变更页数
func (m *Metrics) RecordPagesFetched(pages int) {
	m.SyncPagesFetched.Add(float64(pages))
}

// RecordReadinessProbe 记录一次就绪探测
func (m *Metrics) RecordReadinessProbe() {
	m.ReadinessProbes.Inc()
}

// RecordReadinessTimeout 记录一次就绪探测超时
func (m *Metrics) RecordReadinessTimeout() {
	m.ReadinessTimeouts.Inc()
}

// RecordAccountRegistered 记录账户注册
func (m *Metrics) RecordAccountRegistered() {
	m.AccountsRegistered.Inc()
}

// RecordError 记录错误
func (m *Metrics) RecordError(errorType, component string) {
	m.ErrorsTotal.WithLabelValues(errorType, component).Inc()
}

// RecordPanic 记录 panic
func (m *Metrics) RecordPanic() {
	m.PanicsTotal.Inc()
}

// HTTPHandler 返回 Prometheus HTTP 处理器
func (m *Metrics) HTTPHandler() http.Handler {
	return promhttp.Handler()
}
