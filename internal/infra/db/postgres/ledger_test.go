package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carshare/internal/domain/availability"
	"carshare/internal/domain/shared/daterange"
)

type execCall struct {
	sql  string
	args []any
}

type fakeDB struct {
	calls []execCall
	err   error
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.calls = append(f.calls, execCall{sql: sql, args: args})
	return pgconn.CommandTag{}, f.err
}

func (f *fakeDB) Ping(context.Context) error { return f.err }

func testRange() daterange.DateRange {
	start := time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)
	return daterange.DateRange{Start: start, End: start.AddDate(0, 0, 3)}
}

func TestHoldPassesHalfOpenRange(t *testing.T) {
	db := &fakeDB{}
	ledger := NewLedger(db)
	dr := testRange()

	require.NoError(t, ledger.Hold(context.Background(), "car-1", "bk-1", dr))
	require.Len(t, db.calls, 1)
	assert.Equal(t, holdSQL, db.calls[0].sql)
	assert.Equal(t, []any{"bk-1", "car-1", dr.Start, dr.End}, db.calls[0].args)
}

func TestHoldMapsExclusionViolationToConflict(t *testing.T) {
	db := &fakeDB{err: &pgconn.PgError{Code: "23P01", Message: "conflicting key value violates exclusion constraint"}}
	err := NewLedger(db).Hold(context.Background(), "car-1", "bk-2", testRange())
	assert.ErrorIs(t, err, availability.ErrConflict)
}

func TestHoldKeepsOtherErrors(t *testing.T) {
	db := &fakeDB{err: &pgconn.PgError{Code: "40001"}}
	err := NewLedger(db).Hold(context.Background(), "car-1", "bk-2", testRange())
	require.Error(t, err)
	assert.False(t, errors.Is(err, availability.ErrConflict))
}

func TestRelease(t *testing.T) {
	db := &fakeDB{}
	require.NoError(t, NewLedger(db).Release(context.Background(), "bk-1"))
	assert.Equal(t, []execCall{{sql: releaseSQL, args: []any{"bk-1"}}}, db.calls)

	db.err = errors.New("connection reset")
	assert.Error(t, NewLedger(db).Release(context.Background(), "bk-1"))
}
