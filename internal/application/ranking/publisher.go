package ranking

import (
	"context"
	"time"

	scoring "github.com/turtacn/CiteRank-Engine/internal/domain/ranking"
	"github.com/turtacn/CiteRank-Engine/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CiteRank-Engine/internal/infrastructure/monitoring/prometheus"
)

// SnapshotCache stores published snapshots for cheap external reads; the
// Redis score cache implements it.
type SnapshotCache interface {
	Publish(ctx context.Context, snap *scoring.ScoreSnapshot) error
}

// ScoreWriter persists per-case scores alongside the durable graph; the
// Neo4j case-graph repository implements it.
type ScoreWriter interface {
	WriteScores(ctx context.Context, snap *scoring.ScoreSnapshot) error
}

// SnapshotAnnouncer broadcasts that a new ranking version is live; the
// Kafka producer implements it.
type SnapshotAnnouncer interface {
	NotifySnapshotPublished(ctx context.Context, snap *scoring.ScoreSnapshot) error
}

// Publisher decorates the service's Recompute with post-publish fan-out: the
// fresh snapshot goes to the score cache, back onto the durable graph, and
// out on the announcement topic.  Hook failures are logged and counted,
// never propagated — the in-memory snapshot is already serving queries, and
// the next pass republishes everything.  Any hook may be nil.
type Publisher struct {
	svc     *Service
	cache   SnapshotCache
	scores  ScoreWriter
	feed    SnapshotAnnouncer
	logger  logging.Logger
	metrics *prometheus.RankingMetrics
}

var _ Recomputer = (*Publisher)(nil)

// NewPublisher wires the fan-out around a ranking service.
func NewPublisher(svc *Service, cache SnapshotCache, scores ScoreWriter, feed SnapshotAnnouncer, logger logging.Logger, metrics *prometheus.RankingMetrics) *Publisher {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if metrics == nil {
		metrics = prometheus.NewRankingMetrics(prometheus.NewNopCollector())
	}
	return &Publisher{
		svc:     svc,
		cache:   cache,
		scores:  scores,
		feed:    feed,
		logger:  logger,
		metrics: metrics,
	}
}

// Recompute runs one scoring pass and fans the published snapshot out.
func (p *Publisher) Recompute(ctx context.Context) (string, error) {
	version, err := p.svc.Recompute(ctx)
	if err != nil {
		return "", err
	}
	snap := p.svc.Published()

	if p.cache != nil {
		p.runHook(ctx, "score_cache", snap, p.cache.Publish)
	}
	if p.scores != nil {
		p.runHook(ctx, "graph_scores", snap, p.scores.WriteScores)
	}
	if p.feed != nil {
		p.runHook(ctx, "announce", snap, p.feed.NotifySnapshotPublished)
	}
	return version, nil
}

func (p *Publisher) runHook(ctx context.Context, name string, snap *scoring.ScoreSnapshot, fn func(context.Context, *scoring.ScoreSnapshot) error) {
	start := time.Now()
	err := fn(ctx, snap)
	prometheus.RecordPublishHook(p.metrics, name, time.Since(start), err)
	if err != nil {
		p.logger.Warn("snapshot publish hook failed",
			logging.String("hook", name),
			logging.String("version", snap.Version),
			logging.Err(err))
		return
	}
	p.logger.Debug("snapshot publish hook finished",
		logging.String("hook", name),
		logging.String("version", snap.Version))
}
