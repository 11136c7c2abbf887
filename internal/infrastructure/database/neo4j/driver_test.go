package neo4j

import (
	"context"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/CiteRank-Engine/pkg/errors"
)

// fakeResult replays canned records and surfaces a terminal error, the way a
// streamed Bolt result does.
type fakeResult struct {
	records []*neo4j.Record
	pos     int
	err     error
}

func (r *fakeResult) Next(ctx context.Context) bool {
	if ctx.Err() != nil || r.pos >= len(r.records) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeResult) Record() *neo4j.Record { return r.records[r.pos-1] }
func (r *fakeResult) Err() error            { return r.err }
func (r *fakeResult) Consume(ctx context.Context) (neo4j.ResultSummary, error) {
	return nil, r.err
}

func record(values ...any) *neo4j.Record {
	return &neo4j.Record{Values: values}
}

func TestCollectRecords(t *testing.T) {
	res := &fakeResult{records: []*neo4j.Record{
		record("brown-v-board"),
		record("plessy-v-ferguson"),
	}}

	ids, err := CollectRecords(context.Background(), res, func(rec *neo4j.Record) (string, error) {
		return rec.Values[0].(string), nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"brown-v-board", "plessy-v-ferguson"}, ids)
}

func TestCollectRecords_MapperErrorStopsIteration(t *testing.T) {
	res := &fakeResult{records: []*neo4j.Record{
		record("ok"),
		record("bad"),
		record("never-reached"),
	}}

	seen := 0
	_, err := CollectRecords(context.Background(), res, func(rec *neo4j.Record) (string, error) {
		seen++
		if rec.Values[0] == "bad" {
			return "", errors.New(errors.ErrCodeGraphLoadFailed, "bad record")
		}
		return rec.Values[0].(string), nil
	})

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeGraphLoadFailed))
	assert.Equal(t, 2, seen)
}

func TestCollectRecords_SurfacesStreamError(t *testing.T) {
	streamErr := errors.New(errors.ErrCodeDatabaseError, "connection reset")
	res := &fakeResult{err: streamErr}

	_, err := CollectRecords(context.Background(), res, func(rec *neo4j.Record) (string, error) {
		return "", nil
	})

	assert.ErrorIs(t, err, streamErr)
}

func TestForEachRecord(t *testing.T) {
	res := &fakeResult{records: []*neo4j.Record{
		record("a"), record("b"), record("c"),
	}}

	var visited []string
	err := ForEachRecord(context.Background(), res, func(rec *neo4j.Record) error {
		visited = append(visited, rec.Values[0].(string))
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, visited)
}

func TestForEachRecord_CancelledContextStopsStreaming(t *testing.T) {
	res := &fakeResult{records: []*neo4j.Record{record("a"), record("b")}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := ForEachRecord(ctx, res, func(rec *neo4j.Record) error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Zero(t, calls)
}
