// Package repositories persists the citation graph and its scores to Neo4j.
package repositories

import (
	"context"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/turtacn/CiteRank-Engine/internal/domain/caselaw"
	"github.com/turtacn/CiteRank-Engine/internal/domain/graph"
	scoring "github.com/turtacn/CiteRank-Engine/internal/domain/ranking"
	driver "github.com/turtacn/CiteRank-Engine/internal/infrastructure/database/neo4j"
	"github.com/turtacn/CiteRank-Engine/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CiteRank-Engine/pkg/errors"
)

// writeBatchSize caps the rows sent per UNWIND statement so one huge snapshot
// cannot produce an unbounded transaction.
const writeBatchSize = 500

// CaseGraphRepo mirrors the in-memory citation graph into Neo4j and writes
// published scores back onto the case nodes.  The store remains the compute
// source; this repository is durability and interchange only.
type CaseGraphRepo struct {
	exec   driver.Executor
	logger logging.Logger
}

// NewCaseGraphRepo builds a repository over any Executor.
func NewCaseGraphRepo(exec driver.Executor, logger logging.Logger) *CaseGraphRepo {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &CaseGraphRepo{exec: exec, logger: logger}
}

// EnsureSchema creates the uniqueness constraint the MERGE statements rely on.
func (r *CaseGraphRepo) EnsureSchema(ctx context.Context) error {
	_, err := r.exec.ExecuteWrite(ctx, func(tx driver.Transaction) (any, error) {
		_, err := tx.Run(ctx,
			"CREATE CONSTRAINT case_id IF NOT EXISTS FOR (c:Case) REQUIRE c.id IS UNIQUE", nil)
		return nil, err
	})
	return err
}

// ─────────────────────────────────────────────────────────────────────────────
// Write path — mirroring applied batches
// ─────────────────────────────────────────────────────────────────────────────

// BatchEnsureCaseNodes merges case nodes, upgrading metadata in place.  A
// stub row never downgrades an enriched node.
func (r *CaseGraphRepo) BatchEnsureCaseNodes(ctx context.Context, cases []*caselaw.Case) error {
	if len(cases) == 0 {
		return nil
	}
	query := `
		UNWIND $batch AS row
		MERGE (c:Case {id: row.id})
		ON CREATE SET c.court_level = row.court_level,
		              c.jurisdiction = row.jurisdiction,
		              c.decided_at = row.decided_at,
		              c.stub = row.stub,
		              c.created_at = datetime()
		ON MATCH SET  c.court_level = CASE WHEN row.stub THEN c.court_level ELSE row.court_level END,
		              c.jurisdiction = CASE WHEN row.stub THEN c.jurisdiction ELSE row.jurisdiction END,
		              c.decided_at = CASE WHEN row.stub THEN c.decided_at ELSE row.decided_at END,
		              c.stub = c.stub AND row.stub
	`
	for _, chunk := range chunkCases(cases, writeBatchSize) {
		batch := make([]map[string]any, 0, len(chunk))
		for _, c := range chunk {
			row := map[string]any{
				"id":           string(c.ID),
				"court_level":  c.CourtLevel.String(),
				"jurisdiction": c.Jurisdiction,
				"decided_at":   nil,
				"stub":         c.Stub,
			}
			if c.DecidedAt != nil {
				row["decided_at"] = c.DecidedAt.UTC().Format(time.RFC3339)
			}
			batch = append(batch, row)
		}
		_, err := r.exec.ExecuteWrite(ctx, func(tx driver.Transaction) (any, error) {
			_, err := tx.Run(ctx, query, map[string]any{"batch": batch})
			return nil, err
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// BatchCreateCitations merges CITES relationships, updating strength and
// weight on the existing pair instead of creating parallel edges.  Unknown
// endpoints are merged as stub nodes, matching the store's auto-stub path.
func (r *CaseGraphRepo) BatchCreateCitations(ctx context.Context, edges []graph.Edge) error {
	if len(edges) == 0 {
		return nil
	}
	query := `
		UNWIND $batch AS row
		MERGE (a:Case {id: row.from})
		ON CREATE SET a.stub = true, a.court_level = 'unknown', a.created_at = datetime()
		MERGE (b:Case {id: row.to})
		ON CREATE SET b.stub = true, b.court_level = 'unknown', b.created_at = datetime()
		MERGE (a)-[r:CITES]->(b)
		SET r.strength = row.strength, r.weight = row.weight
	`
	for _, chunk := range chunkEdges(edges, writeBatchSize) {
		batch := make([]map[string]any, 0, len(chunk))
		for _, e := range chunk {
			batch = append(batch, map[string]any{
				"from":     string(e.From),
				"to":       string(e.To),
				"strength": e.Strength.String(),
				"weight":   e.Weight,
			})
		}
		_, err := r.exec.ExecuteWrite(ctx, func(tx driver.Transaction) (any, error) {
			_, err := tx.Run(ctx, query, map[string]any{"batch": batch})
			return nil, err
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// WriteScores stamps the published snapshot onto the case nodes so sibling
// services can read rankings straight off the graph.
func (r *CaseGraphRepo) WriteScores(ctx context.Context, snap *scoring.ScoreSnapshot) error {
	if snap == nil || snap.Len() == 0 {
		return nil
	}
	query := `
		UNWIND $batch AS row
		MATCH (c:Case {id: row.id})
		SET c.pagerank = row.pagerank,
		    c.authority = row.authority,
		    c.composite = row.composite,
		    c.rank = row.rank,
		    c.score_version = $version
	`
	for _, chunk := range chunkRanked(snap.Ranked, writeBatchSize) {
		batch := make([]map[string]any, 0, len(chunk))
		for _, rc := range chunk {
			entry, ok := snap.Entry(rc.ID)
			if !ok {
				continue
			}
			batch = append(batch, map[string]any{
				"id":        string(rc.ID),
				"pagerank":  entry.PageRank,
				"authority": entry.Authority,
				"composite": entry.Composite,
				"rank":      rc.Rank,
			})
		}
		_, err := r.exec.ExecuteWrite(ctx, func(tx driver.Transaction) (any, error) {
			_, err := tx.Run(ctx, query, map[string]any{
				"batch":   batch,
				"version": snap.Version,
			})
			return nil, err
		})
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeScoreWriteFailed, "score writeback failed")
		}
	}
	r.logger.Debug("scores written to neo4j",
		logging.String("version", snap.Version),
		logging.Int("cases", snap.Len()))
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Read path — warm start
// ─────────────────────────────────────────────────────────────────────────────

// LoadGraph streams every case and citation into the store, returning the
// node and edge counts loaded.  Used once at worker start to rebuild the
// in-memory graph from the durable copy.
func (r *CaseGraphRepo) LoadGraph(ctx context.Context, store *graph.Store) (int, int, error) {
	nodes := 0
	_, err := r.exec.ExecuteRead(ctx, func(tx driver.Transaction) (any, error) {
		res, err := tx.Run(ctx,
			"MATCH (c:Case) RETURN c.id, c.court_level, c.jurisdiction, c.decided_at, c.stub", nil)
		if err != nil {
			return nil, err
		}
		return nil, driver.ForEachRecord(ctx, res, func(rec *neo4j.Record) error {
			c, err := caseFromRecord(rec)
			if err != nil {
				return err
			}
			if err := store.UpsertNode(c); err != nil {
				return err
			}
			nodes++
			return nil
		})
	})
	if err != nil {
		return 0, 0, errors.Wrap(err, errors.ErrCodeGraphLoadFailed, "case node load failed")
	}

	edges := 0
	_, err = r.exec.ExecuteRead(ctx, func(tx driver.Transaction) (any, error) {
		res, err := tx.Run(ctx,
			"MATCH (a:Case)-[r:CITES]->(b:Case) RETURN a.id, b.id, r.strength, r.weight", nil)
		if err != nil {
			return nil, err
		}
		return nil, driver.ForEachRecord(ctx, res, func(rec *neo4j.Record) error {
			from, to, strength, weight, err := citationFromRecord(rec)
			if err != nil {
				return err
			}
			if err := store.UpsertEdge(from, to, strength, weight); err != nil {
				return err
			}
			edges++
			return nil
		})
	})
	if err != nil {
		return 0, 0, errors.Wrap(err, errors.ErrCodeGraphLoadFailed, "citation load failed")
	}

	r.logger.Info("citation graph loaded from neo4j",
		logging.Int("nodes", nodes),
		logging.Int("edges", edges))
	return nodes, edges, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Record mapping
// ─────────────────────────────────────────────────────────────────────────────

func caseFromRecord(rec *neo4j.Record) (*caselaw.Case, error) {
	if len(rec.Values) < 5 {
		return nil, errors.New(errors.ErrCodeGraphLoadFailed, "case record is missing columns")
	}
	id := stringValue(rec.Values[0])
	level, err := caselaw.ParseCourtLevel(stringValue(rec.Values[1]))
	if err != nil {
		return nil, err
	}
	c := &caselaw.Case{
		ID:           caselaw.CaseID(id),
		CourtLevel:   level,
		Jurisdiction: stringValue(rec.Values[2]),
		Stub:         boolValue(rec.Values[4]),
	}
	if raw := stringValue(rec.Values[3]); raw != "" {
		decided, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeCaseInvalidMetadata, "malformed decided_at on case "+id)
		}
		c.DecidedAt = &decided
	}
	return c, nil
}

func citationFromRecord(rec *neo4j.Record) (caselaw.CaseID, caselaw.CaseID, caselaw.AuthorityStrength, float64, error) {
	if len(rec.Values) < 4 {
		return "", "", caselaw.StrengthUnknown, 0,
			errors.New(errors.ErrCodeGraphLoadFailed, "citation record is missing columns")
	}
	strength, err := caselaw.ParseAuthorityStrength(stringValue(rec.Values[2]))
	if err != nil {
		return "", "", caselaw.StrengthUnknown, 0, err
	}
	return caselaw.CaseID(stringValue(rec.Values[0])),
		caselaw.CaseID(stringValue(rec.Values[1])),
		strength,
		floatValue(rec.Values[3]),
		nil
}

func stringValue(v any) string {
	s, _ := v.(string)
	return s
}

func boolValue(v any) bool {
	b, _ := v.(bool)
	return b
}

func floatValue(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case int64:
		return float64(x)
	}
	return 0
}

func chunkCases(items []*caselaw.Case, size int) [][]*caselaw.Case {
	var chunks [][]*caselaw.Case
	for len(items) > size {
		chunks = append(chunks, items[:size])
		items = items[size:]
	}
	return append(chunks, items)
}

func chunkEdges(items []graph.Edge, size int) [][]graph.Edge {
	var chunks [][]graph.Edge
	for len(items) > size {
		chunks = append(chunks, items[:size])
		items = items[size:]
	}
	return append(chunks, items)
}

func chunkRanked(items []scoring.RankedCase, size int) [][]scoring.RankedCase {
	var chunks [][]scoring.RankedCase
	for len(items) > size {
		chunks = append(chunks, items[:size])
		items = items[size:]
	}
	return append(chunks, items)
}
