package metrics

import "github.com/prometheus/client_golang/prometheus"

// Retrieval pipeline Prometheus metrics.
var (
	QueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "portfolio",
			Name:      "queries_total",
			Help:      "Queries by routed type and retrieval usage",
		},
		[]string{"query_type", "used_retrieval"},
	)

	StageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "portfolio",
			Name:      "pipeline_stage_duration_seconds",
			Help:      "Per-stage retrieval pipeline duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		},
		[]string{"stage"}, // route, rewrite, fuse, rerank, assemble
	)

	RetrievedCandidates = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "portfolio",
			Name:      "retrieved_candidates",
			Help:      "Number of candidates returned by hybrid search",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
	)

	LexicalIndexRebuilds = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "portfolio",
			Name:      "lexical_index_rebuilds_total",
			Help:      "Total lexical index rebuilds",
		},
	)

	LexicalIndexSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "portfolio",
			Name:      "lexical_index_chunks",
			Help:      "Number of chunks in the lexical index",
		},
	)
)

var pipelineMetricsRegistered bool

// RegisterPipelineMetrics registers retrieval pipeline metrics. Must be called once from main.
func RegisterPipelineMetrics() {
	if pipelineMetricsRegistered {
		return
	}
	prometheus.MustRegister(QueriesTotal)
	prometheus.MustRegister(StageDuration)
	prometheus.MustRegister(RetrievedCandidates)
	prometheus.MustRegister(LexicalIndexRebuilds)
	prometheus.MustRegister(LexicalIndexSize)
	pipelineMetricsRegistered = true
}
