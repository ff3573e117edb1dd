// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ハンドラー・サービス層・ワーカーから利用する。
type MetricsCollector interface {
	JoinAttempt(outcome string)
	RecordHTTPRequest(method string, statusCode int)
	RecordRequestLatency(duration time.Duration)
	RecordNotificationSent(notificationType string)
	RecordFeedImport(result string)
	RecordEventsImported(count int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	joinAttempts      *prometheus.CounterVec
	httpRequests      *prometheus.CounterVec
	requestLatency    prometheus.Histogram
	notificationsSent *prometheus.CounterVec
	feedImports       *prometheus.CounterVec
	eventsImported    prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		joinAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "volunthub_join_attempts_total",
			Help: "参加登録試行の結果別合計数",
		}, []string{"outcome"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "volunthub_http_requests_total",
			Help: "HTTPメソッド・ステータスコード別のリクエスト数",
		}, []string{"method", "status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "volunthub_request_latency_seconds",
			Help:    "HTTPリクエストのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		notificationsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "volunthub_notifications_sent_total",
			Help: "送信された通知の種別別合計数",
		}, []string{"type"}),
		feedImports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "volunthub_feed_imports_total",
			Help: "フィード取込の結果別合計数",
		}, []string{"result"}),
		eventsImported: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "volunthub_events_imported_total",
			Help: "フィードから取り込まれたイベントの合計数",
		}),
	}

	reg.MustRegister(
		c.joinAttempts,
		c.httpRequests,
		c.requestLatency,
		c.notificationsSent,
		c.feedImports,
		c.eventsImported,
	)

	return c
}

// JoinAttempt は参加登録試行の結果を記録する。
func (c *Collector) JoinAttempt(outcome string) {
	c.joinAttempts.WithLabelValues(outcome).Inc()
}

// RecordHTTPRequest はHTTPリクエストの結果を記録する。
func (c *Collector) RecordHTTPRequest(method string, statusCode int) {
	c.httpRequests.WithLabelValues(method, strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はリクエストのレイテンシを記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

// RecordNotificationSent は通知の送信を記録する。
func (c *Collector) RecordNotificationSent(notificationType string) {
	c.notificationsSent.WithLabelValues(notificationType).Inc()
}

// RecordFeedImport はフィード取込の結果（success / failure）を記録する。
func (c *Collector) RecordFeedImport(result string) {
	c.feedImports.WithLabelValues(result).Inc()
}

// RecordEventsImported は取り込まれたイベント数を記録する。
func (c *Collector) RecordEventsImported(count int) {
	c.eventsImported.Add(float64(count))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
