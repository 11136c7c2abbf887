// Package repositories provides the PostgreSQL-backed case-metadata
// warehouse.  The warehouse stores court metadata only — never citation
// topology — and serves two callers: the ingest pipeline persisting
// metadata it carried in on events, and stub enrichment looking metadata
// back up.
package repositories

import (
	"context"
	"time"

	"github.com/turtacn/CiteRank-Engine/internal/domain/caselaw"
	"github.com/turtacn/CiteRank-Engine/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CiteRank-Engine/pkg/errors"
)

// CaseMetadataRepo reads and writes the cases table.  Every method uses
// parameterised queries exclusively.
type CaseMetadataRepo struct {
	db     Querier
	logger logging.Logger
}

// NewCaseMetadataRepo constructs a ready-to-use CaseMetadataRepo.
func NewCaseMetadataRepo(db Querier, logger logging.Logger) *CaseMetadataRepo {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &CaseMetadataRepo{db: db, logger: logger}
}

// FindMetadataByIDs returns the known metadata for the requested cases,
// keyed by id.  Requested cases with no warehouse row are simply absent from
// the result.  A row whose court level no longer parses is skipped with a
// warning — one corrupt row must not wedge enrichment.
func (r *CaseMetadataRepo) FindMetadataByIDs(ctx context.Context, ids []caselaw.CaseID) (map[caselaw.CaseID]*caselaw.Case, error) {
	found := make(map[caselaw.CaseID]*caselaw.Case, len(ids))
	if len(ids) == 0 {
		return found, nil
	}

	idStrings := make([]string, 0, len(ids))
	for _, id := range ids {
		idStrings = append(idStrings, string(id))
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, court_level, jurisdiction, decided_at
		FROM cases
		WHERE id = ANY($1)`, idStrings)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "metadata lookup failed")
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id           string
			courtLevel   string
			jurisdiction string
			decidedAt    *time.Time
		)
		if err := rows.Scan(&id, &courtLevel, &jurisdiction, &decidedAt); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "metadata row scan failed")
		}

		level, err := caselaw.ParseCourtLevel(courtLevel)
		if err != nil {
			r.logger.Warn("skipping case with unparseable court level",
				logging.String("case_id", id),
				logging.String("court_level", courtLevel))
			continue
		}

		found[caselaw.CaseID(id)] = &caselaw.Case{
			ID:           caselaw.CaseID(id),
			CourtLevel:   level,
			Jurisdiction: jurisdiction,
			DecidedAt:    decidedAt,
		}
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "metadata result stream failed")
	}
	return found, nil
}

// UpsertMetadata writes court metadata for the given cases, updating rows
// in place on conflict.  Stub cases carry no metadata and are skipped.
func (r *CaseMetadataRepo) UpsertMetadata(ctx context.Context, cases []*caselaw.Case) error {
	written := 0
	for _, c := range cases {
		if c == nil || c.Stub {
			continue
		}
		_, err := r.db.Exec(ctx, `
			INSERT INTO cases (id, court_level, jurisdiction, decided_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO UPDATE SET
				court_level  = EXCLUDED.court_level,
				jurisdiction = EXCLUDED.jurisdiction,
				decided_at   = EXCLUDED.decided_at,
				updated_at   = NOW()`,
			string(c.ID), c.CourtLevel.String(), c.Jurisdiction, c.DecidedAt)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeDatabaseError, "metadata upsert failed for case "+string(c.ID))
		}
		written++
	}
	if written > 0 {
		r.logger.Debug("case metadata persisted", logging.Int("cases", written))
	}
	return nil
}
