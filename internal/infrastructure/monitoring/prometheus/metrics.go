package prometheus

import (
	"time"
)

// RankingMetrics holds all engine metrics.
type RankingMetrics struct {
	// Graph Layer
	GraphNodesTotal     GaugeVec
	GraphEdgesTotal     GaugeVec
	GraphMutationsTotal CounterVec

	// Recompute Layer
	RecomputeTotal      CounterVec
	RecomputeDuration   HistogramVec
	AlgorithmIterations GaugeVec
	ConvergenceWarnings CounterVec
	SnapshotAge         GaugeVec

	// Query Layer
	QueriesTotal  CounterVec
	QueryDuration HistogramVec
	ChainHops     HistogramVec

	// Ingest Layer
	IngestEventsTotal CounterVec
	IngestBatchSize   HistogramVec
	EnrichmentTotal   CounterVec

	// Publish Hooks
	PublishHookDuration HistogramVec
	PublishHookErrors   CounterVec

	// System Health
	HealthCheckStatus GaugeVec
	ErrorsTotal       CounterVec
}

// Default Buckets
var (
	DefaultComputeDurationBuckets = []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60}
	DefaultQueryDurationBuckets   = []float64{.0005, .001, .005, .01, .05, .1, .5, 1}
	DefaultChainHopBuckets        = []float64{0, 1, 2, 3, 4, 5, 6, 8, 10}
	DefaultBatchSizeBuckets       = []float64{1, 10, 50, 100, 500, 1000, 5000}
	DefaultHookDurationBuckets    = []float64{.005, .01, .05, .1, .5, 1, 5, 15}
)

// NewRankingMetrics registers all metrics and returns the RankingMetrics struct.
func NewRankingMetrics(collector MetricsCollector) *RankingMetrics {
	m := &RankingMetrics{}

	// Graph
	m.GraphNodesTotal = collector.RegisterGauge("graph_nodes_total", "Graph nodes total", "node_type")
	m.GraphEdgesTotal = collector.RegisterGauge("graph_edges_total", "Graph edges total")
	m.GraphMutationsTotal = collector.RegisterCounter("graph_mutations_total", "Graph mutations applied or rejected", "op", "result")

	// Recompute
	m.RecomputeTotal = collector.RegisterCounter("recompute_total", "Recomputation passes", "result")
	m.RecomputeDuration = collector.RegisterHistogram("recompute_duration_seconds", "Recomputation stage duration", DefaultComputeDurationBuckets, "stage")
	m.AlgorithmIterations = collector.RegisterGauge("algorithm_iterations", "Iterations used by the last pass", "algorithm")
	m.ConvergenceWarnings = collector.RegisterCounter("convergence_warnings_total", "Passes that hit the iteration cap before converging", "algorithm")
	m.SnapshotAge = collector.RegisterGauge("snapshot_age_seconds", "Age of the published score snapshot")

	// Queries
	m.QueriesTotal = collector.RegisterCounter("queries_total", "Engine queries", "query", "result")
	m.QueryDuration = collector.RegisterHistogram("query_duration_seconds", "Engine query duration", DefaultQueryDurationBuckets, "query")
	m.ChainHops = collector.RegisterHistogram("chain_hops", "Hop count of found precedent chains", DefaultChainHopBuckets)

	// Ingest
	m.IngestEventsTotal = collector.RegisterCounter("ingest_events_total", "Citation events processed", "source", "result")
	m.IngestBatchSize = collector.RegisterHistogram("ingest_batch_size", "Citation events per applied batch", DefaultBatchSizeBuckets, "source")
	m.EnrichmentTotal = collector.RegisterCounter("enrichment_total", "Stub node enrichment attempts", "result")

	// Publish hooks
	m.PublishHookDuration = collector.RegisterHistogram("publish_hook_duration_seconds", "Post-publish hook duration", DefaultHookDurationBuckets, "hook")
	m.PublishHookErrors = collector.RegisterCounter("publish_hook_errors_total", "Post-publish hook failures", "hook")

	// System Health
	m.HealthCheckStatus = collector.RegisterGauge("health_check_status", "Health check status (1=up, 0=down)", "component")
	m.ErrorsTotal = collector.RegisterCounter("errors_total", "Total errors", "component", "code")

	return m
}

// Helpers

// RecordQuery observes one engine query with its duration and outcome.
func RecordQuery(metrics *RankingMetrics, query string, duration time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.QueriesTotal.WithLabelValues(query, result).Inc()
	metrics.QueryDuration.WithLabelValues(query).Observe(duration.Seconds())
}

// RecordIngestEvent counts one citation event by source and outcome.
func RecordIngestEvent(metrics *RankingMetrics, source string, applied bool) {
	result := "applied"
	if !applied {
		result = "rejected"
	}
	metrics.IngestEventsTotal.WithLabelValues(source, result).Inc()
}

// RecordRecompute observes a full recomputation pass.
func RecordRecompute(metrics *RankingMetrics, result string, duration time.Duration) {
	metrics.RecomputeTotal.WithLabelValues(result).Inc()
	metrics.RecomputeDuration.WithLabelValues("total").Observe(duration.Seconds())
}

// RecordPublishHook observes a post-publish hook invocation.
func RecordPublishHook(metrics *RankingMetrics, hook string, duration time.Duration, err error) {
	metrics.PublishHookDuration.WithLabelValues(hook).Observe(duration.Seconds())
	if err != nil {
		metrics.PublishHookErrors.WithLabelValues(hook).Inc()
	}
}

// RecordError counts one classified error for a component.
func RecordError(metrics *RankingMetrics, component, code string) {
	metrics.ErrorsTotal.WithLabelValues(component, code).Inc()
}
