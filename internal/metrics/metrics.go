// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector は同期パイプラインのPrometheusメトリクスを収集する。
// sync.MetricsCollectorインターフェースを実装する。
type Collector struct {
	runs         *prometheus.CounterVec
	pagesFetched prometheus.Counter
	fetchLatency prometheus.Histogram
	upserts      *prometheus.CounterVec
	skipped      prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "udemyunich_sync_runs_total",
			Help: "同期ランの合計数（結果ステータス別）",
		}, []string{"status"}),
		pagesFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "udemyunich_sync_pages_fetched_total",
			Help: "取得したページの合計数",
		}),
		fetchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "udemyunich_sync_fetch_latency_seconds",
			Help:    "Udemy APIページ取得のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		upserts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "udemyunich_sync_upserts_total",
			Help: "成功したUPSERT操作の合計数（エンティティ別）",
		}, []string{"entity"}),
		skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "udemyunich_sync_records_skipped_total",
			Help: "キー項目の欠落によりスキップされたレコードの合計数",
		}),
	}

	reg.MustRegister(
		c.runs,
		c.pagesFetched,
		c.fetchLatency,
		c.upserts,
		c.skipped,
	)

	return c
}

// RecordRun は同期ランの完了を結果ステータス付きで記録する。
func (c *Collector) RecordRun(status string) {
	c.runs.WithLabelValues(status).Inc()
}

// RecordPageFetched はページ取得成功を記録する。
func (c *Collector) RecordPageFetched() {
	c.pagesFetched.Inc()
}

// RecordFetchLatency はページ取得のレイテンシを記録する。
func (c *Collector) RecordFetchLatency(duration time.Duration) {
	c.fetchLatency.Observe(duration.Seconds())
}

// RecordUpsert はUPSERT成功をエンティティ別に記録する。
func (c *Collector) RecordUpsert(entity string) {
	c.upserts.WithLabelValues(entity).Inc()
}

// RecordSkipped はレコードのスキップを記録する。
func (c *Collector) RecordSkipped() {
	c.skipped.Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
