// Package ranking orchestrates the citation-graph score calculators.  The
// Service owns the recompute pass — one immutable graph snapshot in, three
// concurrently computed signals, one fused ScoreSnapshot atomically published
// out — and answers ranking queries from the published result.  Chain and
// statistics queries are served from the store's current graph snapshot so
// they reflect the latest ingested citations even between recomputations.
package ranking

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/turtacn/CiteRank-Engine/internal/config"
	"github.com/turtacn/CiteRank-Engine/internal/domain/caselaw"
	"github.com/turtacn/CiteRank-Engine/internal/domain/graph"
	"github.com/turtacn/CiteRank-Engine/internal/domain/precedent"
	scoring "github.com/turtacn/CiteRank-Engine/internal/domain/ranking"
	"github.com/turtacn/CiteRank-Engine/internal/domain/stats"
	"github.com/turtacn/CiteRank-Engine/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CiteRank-Engine/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/CiteRank-Engine/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Service
// ─────────────────────────────────────────────────────────────────────────────

// Service computes and serves citation-graph rankings.  All methods are safe
// for concurrent use: queries read the published snapshot through an atomic
// pointer and never block a recomputation in flight.
type Service struct {
	store   *graph.Store
	cfg     config.RankingConfig
	logger  logging.Logger
	metrics *prometheus.RankingMetrics

	// recomputeMu serializes recompute passes.  Queries do not take it.
	recomputeMu sync.Mutex
	published   atomic.Pointer[scoring.ScoreSnapshot]

	now func() time.Time
}

// NewService wires a ranking service over the given graph store.  A nil
// logger or metrics bundle is replaced with a no-op implementation so tests
// and embedded uses need no observability scaffolding.
func NewService(store *graph.Store, cfg config.RankingConfig, logger logging.Logger, metrics *prometheus.RankingMetrics) *Service {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if metrics == nil {
		metrics = prometheus.NewRankingMetrics(prometheus.NewNopCollector())
	}
	return &Service{
		store:   store,
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}
}

func (s *Service) pageRankOptions() scoring.PageRankOptions {
	return scoring.PageRankOptions{
		Damping:          s.cfg.Damping,
		Tolerance:        s.cfg.Tolerance,
		MaxIterations:    s.cfg.MaxIterations,
		StrengthWeighted: s.cfg.StrengthWeighted,
	}
}

func (s *Service) hitsOptions() scoring.HITSOptions {
	return scoring.HITSOptions{
		Tolerance:     s.cfg.Tolerance,
		MaxIterations: s.cfg.MaxIterations,
	}
}

func (s *Service) temporalOptions(asOf time.Time) scoring.TemporalOptions {
	return scoring.TemporalOptions{
		HalfLifeYears:       s.cfg.HalfLifeYears,
		VelocityWindowYears: s.cfg.VelocityWindowYears,
		AsOf:                asOf,
	}
}

func (s *Service) fusionWeights() scoring.FusionWeights {
	return scoring.FusionWeights{
		PageRank:  s.cfg.Weights.PageRank,
		Authority: s.cfg.Weights.Authority,
		Temporal:  s.cfg.Weights.Temporal,
		Citations: s.cfg.Weights.Citations,
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Recompute pass
// ─────────────────────────────────────────────────────────────────────────────

// Recompute runs a full scoring pass and publishes the result, returning the
// new snapshot's version token.  The three signal calculators run
// concurrently over the same immutable graph snapshot; the first failure
// (including context cancellation) aborts the whole pass and leaves the
// previously published snapshot in place.  Concurrent callers are serialized.
//
// Hitting the iteration cap is not a failure: the pass completes with the
// scores of the final iteration, logs a warning, and bumps the convergence
// counter.
func (s *Service) Recompute(ctx context.Context) (string, error) {
	s.recomputeMu.Lock()
	defer s.recomputeMu.Unlock()

	start := s.now()
	snap := s.store.Snapshot()

	var (
		pr       *scoring.PageRankResult
		hits     *scoring.HITSResult
		temporal *scoring.TemporalResult
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer s.observeStage("pagerank", s.now())
		res, err := scoring.ComputePageRank(gctx, snap, s.pageRankOptions())
		if err != nil {
			return err
		}
		pr = res
		return nil
	})
	g.Go(func() error {
		defer s.observeStage("hits", s.now())
		res, err := scoring.ComputeHITS(gctx, snap, s.hitsOptions())
		if err != nil {
			return err
		}
		hits = res
		return nil
	})
	g.Go(func() error {
		defer s.observeStage("temporal", s.now())
		res, err := scoring.ComputeTemporal(gctx, snap, s.temporalOptions(start))
		if err != nil {
			return err
		}
		temporal = res
		return nil
	})
	if err := g.Wait(); err != nil {
		prometheus.RecordRecompute(s.metrics, "aborted", s.now().Sub(start))
		prometheus.RecordError(s.metrics, "ranking", string(errors.GetCode(err)))
		s.logger.Warn("recomputation aborted, previous snapshot stays published",
			logging.Int64("generation", int64(snap.Generation())),
			logging.Err(err))
		return "", errors.Wrap(err, errors.ErrCodeRecomputeAborted, "recomputation aborted")
	}

	bundle, err := scoring.BuildScoreSnapshot(snap, pr, hits, temporal, s.fusionWeights(), start)
	if err != nil {
		prometheus.RecordRecompute(s.metrics, "aborted", s.now().Sub(start))
		prometheus.RecordError(s.metrics, "ranking", string(errors.GetCode(err)))
		return "", errors.Wrap(err, errors.ErrCodeRecomputeAborted, "score fusion failed")
	}
	s.published.Store(bundle)

	s.warnOnCap("pagerank", pr.Converged, pr.Iterations, pr.Delta)
	s.warnOnCap("hits", hits.Converged, hits.Iterations, hits.Delta)
	s.metrics.AlgorithmIterations.WithLabelValues("pagerank").Set(float64(pr.Iterations))
	s.metrics.AlgorithmIterations.WithLabelValues("hits").Set(float64(hits.Iterations))
	s.metrics.SnapshotAge.WithLabelValues().Set(0)
	prometheus.RecordRecompute(s.metrics, "ok", s.now().Sub(start))

	s.logger.Info("score snapshot published",
		logging.String("version", bundle.Version),
		logging.Int64("generation", int64(bundle.Generation)),
		logging.Int("cases", bundle.Len()),
		logging.Int("pagerank_iterations", pr.Iterations),
		logging.Int("hits_iterations", hits.Iterations),
		logging.Duration("took", s.now().Sub(start)))
	return bundle.Version, nil
}

func (s *Service) observeStage(stage string, start time.Time) {
	s.metrics.RecomputeDuration.WithLabelValues(stage).Observe(s.now().Sub(start).Seconds())
}

func (s *Service) warnOnCap(algorithm string, converged bool, iterations int, delta float64) {
	if converged {
		return
	}
	s.metrics.ConvergenceWarnings.WithLabelValues(algorithm).Inc()
	s.logger.Warn("iteration cap hit before convergence",
		logging.String("algorithm", algorithm),
		logging.Int("iterations", iterations),
		logging.Float64("delta", delta))
}

// ─────────────────────────────────────────────────────────────────────────────
// Queries
// ─────────────────────────────────────────────────────────────────────────────

// Published returns the currently published score snapshot, or nil when no
// recompute pass has completed yet.  Publish hooks use it to export the full
// result set; query callers should prefer the typed accessors below.
func (s *Service) Published() *scoring.ScoreSnapshot {
	return s.published.Load()
}

// Version returns the version token of the published snapshot, or the empty
// string when nothing has been published yet.
func (s *Service) Version() string {
	if snap := s.published.Load(); snap != nil {
		return snap.Version
	}
	return ""
}

// GetScore returns the full score entry for one case from the published
// snapshot.  It fails with ErrCodeNoSnapshot before the first recompute and
// with ErrCodeCaseNotFound when the case was absent from the scored graph —
// including cases ingested after the snapshot was computed.
func (s *Service) GetScore(id caselaw.CaseID) (entry scoring.ScoreEntry, err error) {
	defer s.observeQuery("get_score", s.now(), &err)
	snap := s.published.Load()
	if snap == nil {
		return scoring.ScoreEntry{}, errors.New(errors.ErrCodeNoSnapshot, "no score snapshot published yet")
	}
	entry, ok := snap.Entry(id)
	if !ok {
		return scoring.ScoreEntry{}, errors.CaseNotFound(string(id))
	}
	return entry, nil
}

// TopK returns the best-ranked cases matching the filter, at most n of them.
// A nil filter matches everything.  Ranks are positions in the full ordering,
// so a filtered listing keeps the global rank numbers of the cases it
// contains.
func (s *Service) TopK(n int, filter *scoring.Filter) (ranked []scoring.RankedCase, err error) {
	defer s.observeQuery("top_k", s.now(), &err)
	snap := s.published.Load()
	if snap == nil {
		return nil, errors.New(errors.ErrCodeNoSnapshot, "no score snapshot published yet")
	}
	return snap.TopK(n, filter), nil
}

// FindChain searches the store's current graph for a shortest citation chain
// from one case to another.  A maxHops of zero or less falls back to the
// configured default budget; an unreachable target is reported in the result,
// not as an error.
func (s *Service) FindChain(from, to caselaw.CaseID, maxHops int) (chain precedent.Chain, err error) {
	defer s.observeQuery("find_chain", s.now(), &err)
	if maxHops <= 0 {
		maxHops = s.cfg.MaxChainHops
	}
	chain, err = precedent.FindChain(s.store.Snapshot(), from, to, maxHops)
	if err != nil {
		return precedent.Chain{}, err
	}
	if chain.Found {
		s.metrics.ChainHops.WithLabelValues().Observe(float64(chain.Hops()))
	}
	return chain, nil
}

// Statistics summarizes the store's current graph.
func (s *Service) Statistics() stats.Summary {
	start := s.now()
	summary := stats.Report(s.store.Snapshot())
	prometheus.RecordQuery(s.metrics, "statistics", s.now().Sub(start), nil)
	return summary
}

func (s *Service) observeQuery(query string, start time.Time, err *error) {
	prometheus.RecordQuery(s.metrics, query, s.now().Sub(start), *err)
}
