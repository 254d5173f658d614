// Package metrics はPrometheus形式のメトリクス収集を提供する。
//
// サービスごとに独立したレジストリを持ち、HTTPリクエストの件数・処理時間と
// 各サービス固有のドメインカウンタを /metrics で公開する。
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// namespace は全メトリクス共通の名前空間。
const namespace = "neptube"

// Metrics はサービス単位のメトリクスレジストリ。
type Metrics struct {
	// service はサービス名。サブシステム名として使用する。
	service string
	// registry はこのサービスのコレクタを保持する。
	registry *prometheus.Registry
	// requests はHTTPリクエスト件数。
	requests *prometheus.CounterVec
	// duration はHTTPリクエストの処理時間。
	duration *prometheus.HistogramVec
	// inFlight は処理中のHTTPリクエスト数。
	inFlight prometheus.Gauge
}

// New はサービス用のメトリクスレジストリを生成する。
func New(service string) *Metrics {
	m := &Metrics{
		service:  service,
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: service,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests handled.",
		}, []string{"method", "path", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: service,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		}, []string{"method", "path"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: service,
			Name:      "http_inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),
	}
	m.registry.MustRegister(
		m.requests,
		m.duration,
		m.inFlight,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// NewCounterVec はドメイン固有のカウンタを生成してレジストリに登録する。
func (m *Metrics) NewCounterVec(name, help string, labels ...string) *prometheus.CounterVec {
	c := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: m.service,
		Name:      name,
		Help:      help,
	}, labels)
	m.registry.MustRegister(c)
	return c
}

// NewCounter はラベルを持たないドメイン固有のカウンタを生成してレジストリに登録する。
func (m *Metrics) NewCounter(name, help string) prometheus.Counter {
	c := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: m.service,
		Name:      name,
		Help:      help,
	})
	m.registry.MustRegister(c)
	return c
}

// Middleware はリクエスト件数と処理時間を記録するGinミドルウェアを返す。
// パスラベルにはルート定義（/api/v1/posts/:id など）を使い、カーディナリティを抑える。
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		m.inFlight.Inc()
		defer m.inFlight.Dec()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.requests.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		m.duration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// Handler は /metrics エンドポイントのハンドラを返す。
func (m *Metrics) Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
	return gin.WrapH(h)
}

// Registry はこのサービスのレジストリを返す。
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
