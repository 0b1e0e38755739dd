package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "spotapi_requests_total",
		Help: "Total number of API requests by route",
	}, []string{"route"})
	RequestDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "spotapi_request_duration_ms",
		Help:    "Request duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000},
	})
	KVOpsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "spotapi_kv_ops_total",
		Help: "Key-value operations by driver, op and result",
	}, []string{"driver", "op", "result"})
	KVDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "spotapi_kv_duration_ms",
		Help:    "Key-value operation duration in milliseconds",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 20, 50, 100, 500},
	}, []string{"driver", "op"})
	OverrideWritesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "spotapi_override_writes_total",
		Help: "Override merge writes by result",
	}, []string{"result"})
	OverrideConflictsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "spotapi_override_conflicts_total",
		Help: "Override writes that exhausted compare-and-put retries",
	})
	SavedTogglesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "spotapi_saved_toggles_total",
		Help: "Saved-set toggles by resulting state",
	}, []string{"state"})
	LocateTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "spotapi_locate_total",
		Help: "Visitor location lookups by source",
	}, []string{"source"})
)

func init() {
	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(RequestDurationMs)
	prometheus.MustRegister(KVOpsTotal)
	prometheus.MustRegister(KVDurationMs)
	prometheus.MustRegister(OverrideWritesTotal)
	prometheus.MustRegister(OverrideConflictsTotal)
	prometheus.MustRegister(SavedTogglesTotal)
	prometheus.MustRegister(LocateTotal)
}

// 文档注释：返回 Prometheus 指标监听器，在主入口挂载到 /metrics
func Handler() http.Handler { return promhttp.Handler() }
