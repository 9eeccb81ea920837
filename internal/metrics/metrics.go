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
// ハンドラーやサービス層から利用する。
type MetricsCollector interface {
	RecordSignInSuccess()
	RecordSignInFailure(reason string)
	RecordSessionCheck(authenticated bool)
	RecordDownload(datasetName string, sizeBytes int64)
	RecordHTTPStatus(statusCode int)
	RecordSignInLatency(duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	signInSuccess prometheus.Counter
	signInFail    *prometheus.CounterVec
	sessionChecks *prometheus.CounterVec
	downloads     *prometheus.CounterVec
	downloadBytes prometheus.Counter
	httpStatus    *prometheus.CounterVec
	signInLatency prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		signInSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "finedata_signin_success_total",
			Help: "Total number of successful Google sign-ins.",
		}),
		signInFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "finedata_signin_fail_total",
			Help: "Total number of failed sign-in attempts by reason.",
		}, []string{"reason"}),
		sessionChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "finedata_session_checks_total",
			Help: "Total number of session checks by result.",
		}, []string{"result"}),
		downloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "finedata_downloads_total",
			Help: "Total number of dataset downloads by dataset.",
		}, []string{"dataset"}),
		downloadBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "finedata_download_bytes_total",
			Help: "Total bytes of dataset payloads served.",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "finedata_http_status_total",
			Help: "Total responses by HTTP status code.",
		}, []string{"status_code"}),
		signInLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "finedata_signin_latency_seconds",
			Help:    "Latency of the sign-in flow in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.signInSuccess,
		c.signInFail,
		c.sessionChecks,
		c.downloads,
		c.downloadBytes,
		c.httpStatus,
		c.signInLatency,
	)

	return c
}

// RecordSignInSuccess はサインイン成功を記録する。
func (c *Collector) RecordSignInSuccess() {
	c.signInSuccess.Inc()
}

// RecordSignInFailure はサインイン失敗を理由付きで記録する。
func (c *Collector) RecordSignInFailure(reason string) {
	c.signInFail.WithLabelValues(reason).Inc()
}

// RecordSessionCheck はセッションチェックの結果を記録する。
func (c *Collector) RecordSessionCheck(authenticated bool) {
	result := "unauthenticated"
	if authenticated {
		result = "authenticated"
	}
	c.sessionChecks.WithLabelValues(result).Inc()
}

// RecordDownload はデータセットダウンロードを記録する。
func (c *Collector) RecordDownload(datasetName string, sizeBytes int64) {
	c.downloads.WithLabelValues(datasetName).Inc()
	c.downloadBytes.Add(float64(sizeBytes))
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordSignInLatency はサインインフローのレイテンシを記録する。
func (c *Collector) RecordSignInLatency(duration time.Duration) {
	c.signInLatency.Observe(duration.Seconds())
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

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)
