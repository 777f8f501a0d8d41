package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	syncpkg "github.com/marcelogomeza/udemyunich/internal/sync"
	"github.com/prometheus/client_golang/prometheus"
)

// TestNewCollector_ReturnsNonNil はCollectorが正常に生成されることを検証する。
func TestNewCollector_ReturnsNonNil(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	if c == nil {
		t.Fatal("expected non-nil Collector")
	}
}

// TestCollector_ImplementsMetricsCollectorInterface はCollectorが
// sync.MetricsCollectorインターフェースを実装することを検証する。
func TestCollector_ImplementsMetricsCollectorInterface(t *testing.T) {
	reg := prometheus.NewRegistry()
	var _ syncpkg.MetricsCollector = NewCollector(reg)
}

// counterValue はラベルなしカウンタの現在値を取り出すヘルパー。
func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range metrics {
		if mf.GetName() == name {
			return mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	t.Fatalf("metric %q not found", name)
	return 0
}

// TestRecordRun_IncrementsCounterWithStatus はランカウンタがステータス別に
// 増加することを検証する。
func TestRecordRun_IncrementsCounterWithStatus(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordRun("succeeded")
	c.RecordRun("succeeded")
	c.RecordRun("failed")

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	found := false
	for _, mf := range metrics {
		if mf.GetName() == "udemyunich_sync_runs_total" {
			found = true
			if len(mf.GetMetric()) != 2 {
				t.Fatalf("expected 2 label combinations, got %d", len(mf.GetMetric()))
			}
			for _, m := range mf.GetMetric() {
				label := m.GetLabel()[0].GetValue()
				val := m.GetCounter().GetValue()
				switch label {
				case "succeeded":
					if val != 2 {
						t.Errorf("runs_total{status=succeeded} = %v, want 2", val)
					}
				case "failed":
					if val != 1 {
						t.Errorf("runs_total{status=failed} = %v, want 1", val)
					}
				default:
					t.Errorf("unexpected label value: %s", label)
				}
			}
		}
	}
	if !found {
		t.Error("udemyunich_sync_runs_total metric not found")
	}
}

// TestRecordPageFetched_IncrementsCounter はページ取得カウンタが増加することを検証する。
func TestRecordPageFetched_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordPageFetched()
	c.RecordPageFetched()

	if val := counterValue(t, reg, "udemyunich_sync_pages_fetched_total"); val != 2 {
		t.Errorf("pages_fetched_total = %v, want 2", val)
	}
}

// TestRecordSkipped_IncrementsCounter はスキップカウンタが増加することを検証する。
func TestRecordSkipped_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordSkipped()
	c.RecordSkipped()
	c.RecordSkipped()

	if val := counterValue(t, reg, "udemyunich_sync_records_skipped_total"); val != 3 {
		t.Errorf("records_skipped_total = %v, want 3", val)
	}
}

// TestRecordFetchLatency_ObservesHistogram はレイテンシヒストグラムに
// 値が記録されることを検証する。
func TestRecordFetchLatency_ObservesHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordFetchLatency(100 * time.Millisecond)
	c.RecordFetchLatency(2 * time.Second)

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	found := false
	for _, mf := range metrics {
		if mf.GetName() == "udemyunich_sync_fetch_latency_seconds" {
			found = true
			h := mf.GetMetric()[0].GetHistogram()
			if h.GetSampleCount() != 2 {
				t.Errorf("sample_count = %d, want 2", h.GetSampleCount())
			}
			// 合計は0.1 + 2.0 = 2.1秒
			if h.GetSampleSum() < 2.0 || h.GetSampleSum() > 2.2 {
				t.Errorf("sample_sum = %v, want ~2.1", h.GetSampleSum())
			}
		}
	}
	if !found {
		t.Error("udemyunich_sync_fetch_latency_seconds metric not found")
	}
}

// TestRecordUpsert_IncrementsCounterWithEntity はUPSERTカウンタが
// エンティティ別に増加することを検証する。
func TestRecordUpsert_IncrementsCounterWithEntity(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordUpsert("path")
	c.RecordUpsert("user")
	c.RecordUpsert("user")
	c.RecordUpsert("membership")

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	for _, mf := range metrics {
		if mf.GetName() == "udemyunich_sync_upserts_total" {
			if len(mf.GetMetric()) != 3 {
				t.Fatalf("expected 3 label combinations, got %d", len(mf.GetMetric()))
			}
			return
		}
	}
	t.Error("udemyunich_sync_upserts_total metric not found")
}

// TestMetricsHandler_ReturnsPrometheusFormat は/metricsエンドポイントが
// Prometheus形式で返すことを検証する。
func TestMetricsHandler_ReturnsPrometheusFormat(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordRun("succeeded")
	c.RecordPageFetched()
	c.RecordFetchLatency(500 * time.Millisecond)
	c.RecordUpsert("path")
	c.RecordSkipped()

	handler := Handler(reg)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	body, _ := io.ReadAll(resp.Body)
	bodyStr := string(body)

	expectedMetrics := []string{
		"udemyunich_sync_runs_total",
		"udemyunich_sync_pages_fetched_total",
		"udemyunich_sync_fetch_latency_seconds",
		"udemyunich_sync_upserts_total",
		"udemyunich_sync_records_skipped_total",
	}

	for _, metric := range expectedMetrics {
		if !strings.Contains(bodyStr, metric) {
			t.Errorf("response body does not contain %q", metric)
		}
	}
}
