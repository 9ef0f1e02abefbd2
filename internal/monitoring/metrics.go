package monitoring

import (
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 别名状态迁移类型
const (
	TransitionCreated     = "created"
	TransitionActivated   = "activated"
	TransitionDeactivated = "deactivated"
	TransitionDeleted     = "deleted"
	TransitionRestored    = "restored"
	TransitionPurged      = "purged"
)

// Metrics 监控指标。所有记录方法在 nil 接收者上是空操作，
// 便于在测试和工具命令中省略指标。
type Metrics struct {
	registry *prometheus.Registry
	started  time.Time

	// HTTP 请求指标
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPRequestSize     *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// 业务指标
	AliasTransitions *prometheus.CounterVec
	QuotaRejections  *prometheus.CounterVec
	UsersRegistered  prometheus.Counter
	LoginsTotal      *prometheus.CounterVec
	SessionsRevoked  prometheus.Counter
	SessionsExpired  prometheus.Counter
	SessionCache     *prometheus.CounterVec
	WebsocketClients prometheus.Gauge

	// 系统指标
	SystemUptime        prometheus.Gauge
	DatabaseConnections prometheus.Gauge
	RedisConnections    prometheus.Gauge
	MemoryUsage         prometheus.Gauge

	// 错误指标
	ErrorsTotal *prometheus.CounterVec
	PanicsTotal prometheus.Counter

	// 限流指标
	RateLimitBlocks *prometheus.CounterVec
}

// NewMetrics 创建监控指标，指标注册到独立的 Registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		started:  time.Now(),

		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "k9aliases_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "k9aliases_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		HTTPRequestSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "k9aliases_http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 8),
			},
			[]string{"method", "endpoint"},
		),

		HTTPResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "k9aliases_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 8),
			},
			[]string{"method", "endpoint"},
		),

		AliasTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "k9aliases_alias_transitions_total",
				Help: "Total number of alias lifecycle transitions",
			},
			[]string{"transition"},
		),

		QuotaRejections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "k9aliases_quota_rejections_total",
				Help: "Total number of operations rejected by a quota",
			},
			[]string{"resource"},
		),

		UsersRegistered: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "k9aliases_users_registered_total",
				Help: "Total number of users registered",
			},
		),

		LoginsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "k9aliases_logins_total",
				Help: "Total number of login attempts",
			},
			[]string{"result"},
		),

		SessionsRevoked: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "k9aliases_sessions_revoked_total",
				Help: "Total number of sessions revoked by logout",
			},
		),

		SessionsExpired: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "k9aliases_sessions_expired_total",
				Help: "Total number of expired sessions purged",
			},
		),

		SessionCache: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "k9aliases_session_cache_lookups_total",
				Help: "Session cache lookups by result",
			},
			[]string{"result"},
		),

		WebsocketClients: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "k9aliases_websocket_clients",
				Help: "Number of connected websocket clients",
			},
		),

		SystemUptime: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "k9aliases_system_uptime_seconds",
				Help: "System uptime in seconds",
			},
		),

		DatabaseConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "k9aliases_database_connections",
				Help: "Number of database connections",
			},
		),

		RedisConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "k9aliases_redis_connections",
				Help: "Number of Redis connections",
			},
		),

		MemoryUsage: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "k9aliases_memory_usage_bytes",
				Help: "Memory usage in bytes",
			},
		),

		ErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "k9aliases_errors_total",
				Help: "Total number of errors",
			},
			[]string{"type", "component"},
		),

		PanicsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "k9aliases_panics_total",
				Help: "Total number of panics",
			},
		),

		RateLimitBlocks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "k9aliases_rate_limit_blocks_total",
				Help: "Total number of rate limit blocks",
			},
			[]string{"type"},
		),
	}
}

// RecordHTTPRequest 记录 HTTP 请求指标
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, duration time.Duration, requestSize, responseSize int64) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
	m.HTTPRequestSize.WithLabelValues(method, endpoint).Observe(float64(requestSize))
	m.HTTPResponseSize.WithLabelValues(method, endpoint).Observe(float64(responseSize))
}

// RecordAliasTransition 记录别名状态迁移
func (m *Metrics) RecordAliasTransition(transition string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.AliasTransitions.WithLabelValues(transition).Add(float64(count))
}

// RecordQuotaRejection 记录配额拒绝
func (m *Metrics) RecordQuotaRejection(resource string) {
	if m == nil {
		return
	}
	m.QuotaRejections.WithLabelValues(resource).Inc()
}

// RecordUserRegistered 记录用户注册
func (m *Metrics) RecordUserRegistered() {
	if m == nil {
		return
	}
	m.UsersRegistered.Inc()
}

// RecordLogin 记录登录结果: success / failure / locked
func (m *Metrics) RecordLogin(result string) {
	if m == nil {
		return
	}
	m.LoginsTotal.WithLabelValues(result).Inc()
}

// RecordSessionsRevoked 记录被注销的会话数
func (m *Metrics) RecordSessionsRevoked(count int64) {
	if m == nil || count <= 0 {
		return
	}
	m.SessionsRevoked.Add(float64(count))
}

// RecordSessionsExpired 记录清理的过期会话数
func (m *Metrics) RecordSessionsExpired(count int64) {
	if m == nil || count <= 0 {
		return
	}
	m.SessionsExpired.Add(float64(count))
}

// RecordSessionCache 记录会话缓存命中情况: hit / miss
func (m *Metrics) RecordSessionCache(result string) {
	if m == nil {
		return
	}
	m.SessionCache.WithLabelValues(result).Inc()
}

// UpdateWebsocketClients 更新 websocket 连接数
func (m *Metrics) UpdateWebsocketClients(count int) {
	if m == nil {
		return
	}
	m.WebsocketClients.Set(float64(count))
}

// RecordError 记录错误
func (m *Metrics) RecordError(errorType, component string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType, component).Inc()
}

// RecordPanic 记录 panic
func (m *Metrics) RecordPanic() {
	if m == nil {
		return
	}
	m.PanicsTotal.Inc()
}

// RecordRateLimitBlock 记录限流阻止
func (m *Metrics) RecordRateLimitBlock(limitType string) {
	if m == nil {
		return
	}
	m.RateLimitBlocks.WithLabelValues(limitType).Inc()
}

// UpdateDatabaseConnections 更新数据库连接数
func (m *Metrics) UpdateDatabaseConnections(count int) {
	if m == nil {
		return
	}
	m.DatabaseConnections.Set(float64(count))
}

// UpdateRedisConnections 更新 Redis 连接数
func (m *Metrics) UpdateRedisConnections(count int) {
	if m == nil {
		return
	}
	m.RedisConnections.Set(float64(count))
}

// UpdateSystemMetrics 更新运行时间与内存使用
func (m *Metrics) UpdateSystemMetrics() {
	if m == nil {
		return
	}
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	m.MemoryUsage.Set(float64(stats.Alloc))
	m.SystemUptime.Set(time.Since(m.started).Seconds())
}

// Registry 返回指标注册表
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// HTTPHandler 返回 Prometheus HTTP 处理器
func (m *Metrics) HTTPHandler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
