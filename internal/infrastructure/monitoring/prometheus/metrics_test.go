package prometheus

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRankingMetrics(t *testing.T) (*RankingMetrics, MetricsCollector) {
	c := newTestCollector(t)
	m := NewRankingMetrics(c)
	return m, c
}

func TestNewRankingMetrics_AllMetricsRegistered(t *testing.T) {
	m, _ := newTestRankingMetrics(t)
	require.NotNil(t, m)

	assert.NotNil(t, m.GraphNodesTotal)
	assert.NotNil(t, m.GraphEdgesTotal)
	assert.NotNil(t, m.GraphMutationsTotal)
	assert.NotNil(t, m.RecomputeTotal)
	assert.NotNil(t, m.RecomputeDuration)
	assert.NotNil(t, m.AlgorithmIterations)
	assert.NotNil(t, m.ConvergenceWarnings)
	assert.NotNil(t, m.SnapshotAge)
	assert.NotNil(t, m.QueriesTotal)
	assert.NotNil(t, m.QueryDuration)
	assert.NotNil(t, m.ChainHops)
	assert.NotNil(t, m.IngestEventsTotal)
	assert.NotNil(t, m.IngestBatchSize)
	assert.NotNil(t, m.EnrichmentTotal)
	assert.NotNil(t, m.PublishHookDuration)
	assert.NotNil(t, m.PublishHookErrors)
	assert.NotNil(t, m.HealthCheckStatus)
	assert.NotNil(t, m.ErrorsTotal)
}

func TestRecordQuery_Success(t *testing.T) {
	m, c := newTestRankingMetrics(t)

	RecordQuery(m, "topk", 2*time.Millisecond, nil)

	output := scrapeMetrics(t, c)
	assert.Contains(t, output, `test_unit_queries_total{query="topk",result="ok"} 1`)
	assert.Contains(t, output, `test_unit_query_duration_seconds_count{query="topk"} 1`)
}

func TestRecordQuery_Error(t *testing.T) {
	m, c := newTestRankingMetrics(t)

	RecordQuery(m, "score", time.Millisecond, errors.New("no snapshot"))

	output := scrapeMetrics(t, c)
	assert.Contains(t, output, `test_unit_queries_total{query="score",result="error"} 1`)
}

func TestRecordIngestEvent_AppliedAndRejected(t *testing.T) {
	m, c := newTestRankingMetrics(t)

	RecordIngestEvent(m, "kafka", true)
	RecordIngestEvent(m, "kafka", true)
	RecordIngestEvent(m, "spool", false)

	output := scrapeMetrics(t, c)
	assert.Contains(t, output, `test_unit_ingest_events_total{result="applied",source="kafka"} 2`)
	assert.Contains(t, output, `test_unit_ingest_events_total{result="rejected",source="spool"} 1`)
}

func TestRecordRecompute_Published(t *testing.T) {
	m, c := newTestRankingMetrics(t)

	RecordRecompute(m, "published", 150*time.Millisecond)

	output := scrapeMetrics(t, c)
	assert.Contains(t, output, `test_unit_recompute_total{result="published"} 1`)
	assert.Contains(t, output, `test_unit_recompute_duration_seconds_count{stage="total"} 1`)
}

func TestRecordPublishHook_ErrorIncrementsCounter(t *testing.T) {
	m, c := newTestRankingMetrics(t)

	RecordPublishHook(m, "redis", 5*time.Millisecond, nil)
	RecordPublishHook(m, "neo4j", 5*time.Millisecond, errors.New("write failed"))

	output := scrapeMetrics(t, c)
	assert.Contains(t, output, `test_unit_publish_hook_duration_seconds_count{hook="redis"} 1`)
	assert.Contains(t, output, `test_unit_publish_hook_errors_total{hook="neo4j"} 1`)
	assert.NotContains(t, output, `test_unit_publish_hook_errors_total{hook="redis"}`)
}

func TestRecordError_CountsByComponentAndCode(t *testing.T) {
	m, c := newTestRankingMetrics(t)

	RecordError(m, "ingest", "ING_001")
	RecordError(m, "ingest", "ING_001")

	output := scrapeMetrics(t, c)
	assert.Contains(t, output, `test_unit_errors_total{code="ING_001",component="ingest"} 2`)
}

func TestConvergenceWarnings_PerAlgorithm(t *testing.T) {
	m, c := newTestRankingMetrics(t)

	m.ConvergenceWarnings.WithLabelValues("pagerank").Inc()

	output := scrapeMetrics(t, c)
	assert.Contains(t, output, `test_unit_convergence_warnings_total{algorithm="pagerank"} 1`)
}

func TestSnapshotAge_Gauge(t *testing.T) {
	m, c := newTestRankingMetrics(t)

	m.SnapshotAge.WithLabelValues().Set(42.5)

	output := scrapeMetrics(t, c)
	assert.Contains(t, output, "test_unit_snapshot_age_seconds 42.5")
}
