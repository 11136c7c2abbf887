package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/CiteRank-Engine/internal/domain/caselaw"
	"github.com/turtacn/CiteRank-Engine/pkg/errors"
)

// execution captures one statement sent through the fake Querier.
type execution struct {
	sql  string
	args []any
}

type fakeQuerier struct {
	queries  []execution
	execs    []execution
	rows     *fakeRows
	queryErr error
	execErr  error
}

func (f *fakeQuerier) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	f.queries = append(f.queries, execution{sql: sql, args: args})
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	if f.rows == nil {
		return &fakeRows{}, nil
	}
	return f.rows, nil
}

func (f *fakeQuerier) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.execs = append(f.execs, execution{sql: sql, args: args})
	return pgconn.CommandTag{}, f.execErr
}

// fakeRows replays canned (id, court_level, jurisdiction, decided_at) rows.
type fakeRows struct {
	rows      [][]any
	pos       int
	streamErr error
}

func (r *fakeRows) Next() bool {
	if r.pos >= len(r.rows) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	row := r.rows[r.pos-1]
	for i, d := range dest {
		switch p := d.(type) {
		case *string:
			*p = row[i].(string)
		case **time.Time:
			if row[i] == nil {
				*p = nil
			} else {
				ts := row[i].(time.Time)
				*p = &ts
			}
		}
	}
	return nil
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return r.streamErr }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) Values() ([]any, error)                       { return nil, nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

// ─────────────────────────────────────────────────────────────────────────────
// FindMetadataByIDs
// ─────────────────────────────────────────────────────────────────────────────

func TestFindMetadataByIDs(t *testing.T) {
	decided := time.Date(1803, 2, 24, 0, 0, 0, 0, time.UTC)
	db := &fakeQuerier{rows: &fakeRows{rows: [][]any{
		{"marbury-v-madison", "supreme", "US", decided},
		{"unreported-case", "trial", "US-NY", nil},
	}}}
	repo := NewCaseMetadataRepo(db, nil)

	found, err := repo.FindMetadataByIDs(context.Background(), []caselaw.CaseID{
		"marbury-v-madison", "unreported-case", "never-warehoused",
	})

	require.NoError(t, err)
	require.Len(t, found, 2)

	marbury := found["marbury-v-madison"]
	require.NotNil(t, marbury)
	assert.Equal(t, caselaw.CourtSupreme, marbury.CourtLevel)
	assert.Equal(t, "US", marbury.Jurisdiction)
	require.NotNil(t, marbury.DecidedAt)
	assert.Equal(t, 1803, marbury.DecidedAt.Year())
	assert.False(t, marbury.Stub)

	unreported := found["unreported-case"]
	require.NotNil(t, unreported)
	assert.Nil(t, unreported.DecidedAt)

	assert.NotContains(t, found, caselaw.CaseID("never-warehoused"))

	require.Len(t, db.queries, 1)
	require.Len(t, db.queries[0].args, 1)
	assert.ElementsMatch(t,
		[]string{"marbury-v-madison", "unreported-case", "never-warehoused"},
		db.queries[0].args[0])
}

func TestFindMetadataByIDs_EmptyInputSkipsTheQuery(t *testing.T) {
	db := &fakeQuerier{}
	repo := NewCaseMetadataRepo(db, nil)

	found, err := repo.FindMetadataByIDs(context.Background(), nil)

	require.NoError(t, err)
	assert.Empty(t, found)
	assert.Empty(t, db.queries)
}

func TestFindMetadataByIDs_SkipsUnparseableRow(t *testing.T) {
	db := &fakeQuerier{rows: &fakeRows{rows: [][]any{
		{"good-case", "appellate", "US", nil},
		{"corrupt-case", "tribunal", "US", nil},
	}}}
	repo := NewCaseMetadataRepo(db, nil)

	found, err := repo.FindMetadataByIDs(context.Background(), []caselaw.CaseID{"good-case", "corrupt-case"})

	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Contains(t, found, caselaw.CaseID("good-case"))
}

func TestFindMetadataByIDs_QueryFailure(t *testing.T) {
	db := &fakeQuerier{queryErr: errors.New(errors.ErrCodeTimeout, "statement timeout")}
	repo := NewCaseMetadataRepo(db, nil)

	_, err := repo.FindMetadataByIDs(context.Background(), []caselaw.CaseID{"any"})

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeDatabaseError))
	assert.True(t, errors.IsCode(err, errors.ErrCodeTimeout))
}

func TestFindMetadataByIDs_StreamFailure(t *testing.T) {
	db := &fakeQuerier{rows: &fakeRows{
		rows:      [][]any{{"partial-case", "trial", "US", nil}},
		streamErr: errors.New(errors.ErrCodeDatabaseError, "connection reset"),
	}}
	repo := NewCaseMetadataRepo(db, nil)

	_, err := repo.FindMetadataByIDs(context.Background(), []caselaw.CaseID{"partial-case"})

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeDatabaseError))
}

// ─────────────────────────────────────────────────────────────────────────────
// UpsertMetadata
// ─────────────────────────────────────────────────────────────────────────────

func TestUpsertMetadata(t *testing.T) {
	decided := time.Date(1954, 5, 17, 0, 0, 0, 0, time.UTC)
	db := &fakeQuerier{}
	repo := NewCaseMetadataRepo(db, nil)

	err := repo.UpsertMetadata(context.Background(), []*caselaw.Case{
		{ID: "brown-v-board", CourtLevel: caselaw.CourtSupreme, Jurisdiction: "US", DecidedAt: &decided},
		{ID: "undated-case", CourtLevel: caselaw.CourtTrial, Jurisdiction: "US-KS"},
		caselaw.NewStub("stub-case"),
		nil,
	})

	require.NoError(t, err)
	require.Len(t, db.execs, 2)

	first := db.execs[0]
	assert.Contains(t, first.sql, "ON CONFLICT (id) DO UPDATE")
	require.Len(t, first.args, 4)
	assert.Equal(t, "brown-v-board", first.args[0])
	assert.Equal(t, "supreme", first.args[1])
	assert.Equal(t, "US", first.args[2])
	assert.Equal(t, &decided, first.args[3])

	second := db.execs[1]
	assert.Equal(t, "undated-case", second.args[0])
	assert.Nil(t, second.args[3])
}

func TestUpsertMetadata_NothingToPersist(t *testing.T) {
	db := &fakeQuerier{}
	repo := NewCaseMetadataRepo(db, nil)

	require.NoError(t, repo.UpsertMetadata(context.Background(), nil))
	require.NoError(t, repo.UpsertMetadata(context.Background(), []*caselaw.Case{caselaw.NewStub("only-stub")}))
	assert.Empty(t, db.execs)
}

func TestUpsertMetadata_ExecFailure(t *testing.T) {
	db := &fakeQuerier{execErr: errors.New(errors.ErrCodeDatabaseError, "relation missing")}
	repo := NewCaseMetadataRepo(db, nil)

	err := repo.UpsertMetadata(context.Background(), []*caselaw.Case{
		{ID: "some-case", CourtLevel: caselaw.CourtTrial, Jurisdiction: "US"},
	})

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeDatabaseError))
	assert.Contains(t, err.Error(), "some-case")
}
