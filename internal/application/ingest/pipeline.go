package ingest

import (
	"context"

	"github.com/turtacn/CiteRank-Engine/internal/domain/caselaw"
	"github.com/turtacn/CiteRank-Engine/internal/domain/graph"
	"github.com/turtacn/CiteRank-Engine/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CiteRank-Engine/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/CiteRank-Engine/pkg/errors"
)

// Notifier learns that events changed the graph.  The debounced recompute
// scheduler is the production implementation.
type Notifier interface {
	Notify()
}

// MetadataSource hands out authoritative case metadata for stub enrichment;
// the case-metadata warehouse implements it.
type MetadataSource interface {
	FindMetadataByIDs(ctx context.Context, ids []caselaw.CaseID) (map[caselaw.CaseID]*caselaw.Case, error)
}

// MetadataSink persists metadata carried by events so enrichment and sibling
// services can read it back later.  A nil sink skips persistence.
type MetadataSink interface {
	UpsertMetadata(ctx context.Context, cases []*caselaw.Case) error
}

// GraphMirror receives applied graph mutations for durable replication; the
// Neo4j case-graph repository implements it.  A nil mirror skips replication.
type GraphMirror interface {
	BatchEnsureCaseNodes(ctx context.Context, cases []*caselaw.Case) error
	BatchCreateCitations(ctx context.Context, edges []graph.Edge) error
}

// BatchResult reports what one batch did to the graph.
type BatchResult struct {
	Applied  int
	Rejected int
}

// Pipeline applies citation-extraction events to the graph store.  One
// pipeline serves every feed transport; Apply is safe for concurrent use
// because the store serializes mutation.
type Pipeline struct {
	store    *graph.Store
	notifier Notifier
	sink     MetadataSink
	mirror   GraphMirror
	logger   logging.Logger
	metrics  *prometheus.RankingMetrics
}

// NewPipeline wires a pipeline over the store.  The notifier is poked after
// every batch that changed the graph; sink, mirror, logger, and metrics may
// be nil.
func NewPipeline(store *graph.Store, notifier Notifier, sink MetadataSink, mirror GraphMirror, logger logging.Logger, metrics *prometheus.RankingMetrics) *Pipeline {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if metrics == nil {
		metrics = prometheus.NewRankingMetrics(prometheus.NewNopCollector())
	}
	return &Pipeline{
		store:    store,
		notifier: notifier,
		sink:     sink,
		mirror:   mirror,
		logger:   logger,
		metrics:  metrics,
	}
}

// Apply runs a batch of events against the store.  Invalid events are
// rejected, counted, and logged without failing the batch — a poison event
// must never wedge the feed.  The error return is reserved for cancellation,
// which still reports how far the batch got.  The source label tells the
// metrics which transport delivered the batch.
func (p *Pipeline) Apply(ctx context.Context, source string, events ...*CitationEvent) (BatchResult, error) {
	var res BatchResult
	var carried []*caselaw.Case
	var applied []graph.Edge
	for _, e := range events {
		if err := ctx.Err(); err != nil {
			p.finishBatch(ctx, source, res, carried, applied)
			return res, errors.Cancelled(err)
		}
		eventCases, edge, err := p.applyOne(e)
		if err != nil {
			res.Rejected++
			prometheus.RecordIngestEvent(p.metrics, source, false)
			p.logger.Warn("citation event rejected",
				logging.String("citing", string(e.CitingCaseID)),
				logging.String("cited", string(e.CitedCaseID)),
				logging.Err(err))
			continue
		}
		res.Applied++
		prometheus.RecordIngestEvent(p.metrics, source, true)
		carried = append(carried, eventCases...)
		applied = append(applied, edge)
	}
	p.finishBatch(ctx, source, res, carried, applied)
	return res, nil
}

// ApplyRaw decodes one JSON-encoded event and applies it.  An undecodable
// payload is rejected and counted like an invalid event — a poison message
// must never wedge the feed — so the error return is reserved for
// cancellation, as with Apply.
func (p *Pipeline) ApplyRaw(ctx context.Context, source string, data []byte) (BatchResult, error) {
	e, err := DecodeEvent(data)
	if err != nil {
		prometheus.RecordIngestEvent(p.metrics, source, false)
		p.logger.Warn("undecodable citation event",
			logging.String("source", source),
			logging.Err(err))
		return BatchResult{Rejected: 1}, nil
	}
	return p.Apply(ctx, source, e)
}

// applyOne validates and applies a single event, returning the metadata it
// carried for warehouse persistence and the edge as stored, for mirroring.
func (p *Pipeline) applyOne(e *CitationEvent) ([]*caselaw.Case, graph.Edge, error) {
	if err := e.Validate(); err != nil {
		return nil, graph.Edge{}, err
	}
	citing, citingCarried, err := p.endpoint(e.CitingCaseID, e.CitingMetadata)
	if err != nil {
		return nil, graph.Edge{}, err
	}
	cited, citedCarried, err := p.endpoint(e.CitedCaseID, e.CitedMetadata)
	if err != nil {
		return nil, graph.Edge{}, err
	}
	strength := caselaw.ClassifyAuthority(citing, cited)
	if err := p.store.UpsertEdge(e.CitingCaseID, e.CitedCaseID, strength, 0); err != nil {
		return nil, graph.Edge{}, err
	}
	carried := make([]*caselaw.Case, 0, 2)
	if citingCarried != nil {
		carried = append(carried, citingCarried)
	}
	if citedCarried != nil {
		carried = append(carried, citedCarried)
	}
	edge := graph.Edge{
		From:     e.CitingCaseID,
		To:       e.CitedCaseID,
		Strength: strength,
		Weight:   graph.DefaultEdgeWeight,
	}
	return carried, edge, nil
}

// endpoint resolves one side of a citation.  It returns the node view used
// for authority classification — fresh event metadata when present, the
// stored node otherwise, a stub for a brand-new case — plus the metadata to
// carry to the warehouse, nil when the event brought none.
func (p *Pipeline) endpoint(id caselaw.CaseID, m *CaseMetadata) (*caselaw.Case, *caselaw.Case, error) {
	if m == nil {
		if existing, err := p.store.Node(id); err == nil {
			return existing, nil, nil
		}
		return caselaw.NewStub(id), nil, nil
	}
	c, err := m.Case(id)
	if err != nil {
		return nil, nil, err
	}
	if err := p.store.UpsertNode(c); err != nil {
		return nil, nil, err
	}
	return c, c, nil
}

// finishBatch records batch-level outcomes: graph gauges, batch size, the
// warehouse and mirror writes, and the recompute nudge.  Warehouse and mirror
// failures are logged and counted, never propagated — the in-memory graph is
// already correct, and the mirror re-converges on the next applied batch.
func (p *Pipeline) finishBatch(ctx context.Context, source string, res BatchResult, carried []*caselaw.Case, applied []graph.Edge) {
	if res.Applied == 0 {
		return
	}
	p.updateGraphGauges()
	p.metrics.IngestBatchSize.WithLabelValues(source).Observe(float64(res.Applied))

	if p.sink != nil && len(carried) > 0 {
		if err := p.sink.UpsertMetadata(ctx, carried); err != nil {
			prometheus.RecordError(p.metrics, "ingest", string(errors.GetCode(err)))
			p.logger.Warn("metadata warehouse write failed",
				logging.Int("cases", len(carried)),
				logging.Err(err))
		}
	}
	p.mirrorBatch(ctx, carried, applied)
	if p.notifier != nil {
		p.notifier.Notify()
	}
}

// mirrorBatch replicates an applied batch to the durable graph.  Nodes go
// first so the citation merge finds enriched endpoints instead of creating
// stubs it would have to upgrade later.
func (p *Pipeline) mirrorBatch(ctx context.Context, cases []*caselaw.Case, edges []graph.Edge) {
	if p.mirror == nil {
		return
	}
	if len(cases) > 0 {
		if err := p.mirror.BatchEnsureCaseNodes(ctx, cases); err != nil {
			prometheus.RecordError(p.metrics, "mirror", string(errors.GetCode(err)))
			p.logger.Warn("graph mirror node write failed",
				logging.Int("cases", len(cases)),
				logging.Err(err))
		}
	}
	if len(edges) > 0 {
		if err := p.mirror.BatchCreateCitations(ctx, edges); err != nil {
			prometheus.RecordError(p.metrics, "mirror", string(errors.GetCode(err)))
			p.logger.Warn("graph mirror citation write failed",
				logging.Int("citations", len(edges)),
				logging.Err(err))
		}
	}
}

func (p *Pipeline) updateGraphGauges() {
	stubs := len(p.store.StubIDs())
	p.metrics.GraphNodesTotal.WithLabelValues("case").Set(float64(p.store.NodeCount() - stubs))
	p.metrics.GraphNodesTotal.WithLabelValues("stub").Set(float64(stubs))
	p.metrics.GraphEdgesTotal.WithLabelValues().Set(float64(p.store.EdgeCount()))
}

// ─────────────────────────────────────────────────────────────────────────────
// Stub enrichment
// ─────────────────────────────────────────────────────────────────────────────

// EnrichStubs upgrades stub nodes with metadata from the warehouse, at most
// batchSize of them per call (zero or less means all).  Incident citations
// whose strength was unknown are reclassified with the new metadata.  Returns
// the number of nodes enriched; IDs the warehouse does not know stay stubs
// until a later pass.
func (p *Pipeline) EnrichStubs(ctx context.Context, source MetadataSource, batchSize int) (int, error) {
	ids := p.store.StubIDs()
	if len(ids) == 0 {
		return 0, nil
	}
	if batchSize > 0 && len(ids) > batchSize {
		ids = ids[:batchSize]
	}

	found, err := source.FindMetadataByIDs(ctx, ids)
	if err != nil {
		return 0, errors.Wrap(err, errors.CodeUnknown, "stub enrichment lookup failed")
	}

	var enriched []*caselaw.Case
	for _, id := range ids {
		c, ok := found[id]
		if !ok {
			p.metrics.EnrichmentTotal.WithLabelValues("missing").Inc()
			continue
		}
		if err := p.store.UpsertNode(c); err != nil {
			p.metrics.EnrichmentTotal.WithLabelValues("rejected").Inc()
			p.logger.Warn("enrichment metadata rejected",
				logging.String("case", string(id)),
				logging.Err(err))
			continue
		}
		p.metrics.EnrichmentTotal.WithLabelValues("enriched").Inc()
		enriched = append(enriched, c)
	}
	if len(enriched) == 0 {
		return 0, nil
	}

	reclassified := p.reclassifyUnknown()
	p.updateGraphGauges()
	p.mirrorBatch(ctx, enriched, reclassified)
	if p.notifier != nil {
		p.notifier.Notify()
	}
	p.logger.Info("stub nodes enriched",
		logging.Int("enriched", len(enriched)),
		logging.Int("remaining_stubs", len(p.store.StubIDs())))
	return len(enriched), nil
}

// reclassifyUnknown revisits edges still classified unknown; enrichment may
// have supplied the court metadata their classification was waiting for.  It
// returns the edges it changed so the mirror can replicate them.
func (p *Pipeline) reclassifyUnknown() []graph.Edge {
	var changed []graph.Edge
	snap := p.store.Snapshot()
	for _, id := range snap.IDs() {
		for _, e := range snap.Out(id) {
			if e.Strength != caselaw.StrengthUnknown {
				continue
			}
			citing, ok := snap.Node(e.From)
			if !ok {
				continue
			}
			cited, ok := snap.Node(e.To)
			if !ok {
				continue
			}
			strength := caselaw.ClassifyAuthority(citing, cited)
			if strength == caselaw.StrengthUnknown {
				continue
			}
			if err := p.store.UpsertEdge(e.From, e.To, strength, e.Weight); err != nil {
				p.logger.Warn("citation reclassification failed",
					logging.String("citing", string(e.From)),
					logging.String("cited", string(e.To)),
					logging.Err(err))
				continue
			}
			changed = append(changed, graph.Edge{From: e.From, To: e.To, Strength: strength, Weight: e.Weight})
		}
	}
	return changed
}
