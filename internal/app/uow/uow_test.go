package uow

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carshare/internal/domain/availability"
	"carshare/internal/domain/booking"
	"carshare/internal/domain/cars"
)

type unit struct {
	AbortHooks
	CommitHooks
	commitErr          error
	commits, rollbacks int
}

func (u *unit) Cars() cars.Repository              { return nil }
func (u *unit) Calendars() availability.Repository { return nil }
func (u *unit) Bookings() booking.Repository       { return nil }

func (u *unit) Commit(ctx context.Context) error {
	u.commits++
	if u.commitErr != nil {
		u.DropCommit()
		u.RunAbort(ctx)
		return u.commitErr
	}
	u.Discard()
	u.RunCommit(ctx)
	return nil
}

func (u *unit) Rollback(ctx context.Context) error {
	u.rollbacks++
	u.DropCommit()
	u.RunAbort(ctx)
	return nil
}

type factory struct{ next *unit }

func (f factory) Begin(context.Context, TxOptions) (UnitOfWork, error) { return f.next, nil }

func TestAcquireReusesUnitFromContext(t *testing.T) {
	outer := &unit{}
	ctx := ContextWithUnitOfWork(context.Background(), outer)

	got, _, managed, err := Acquire(ctx, factory{next: &unit{}}, TxOptions{})
	require.NoError(t, err)
	assert.False(t, managed)
	assert.Same(t, outer, got)

	_, _, _, err = Acquire(context.Background(), nil, TxOptions{})
	assert.ErrorIs(t, err, ErrUnitOfWorkMissing)
}

func TestFinishCommitsOrRollsBack(t *testing.T) {
	u := &unit{}
	var err error
	Finish(context.Background(), u, true, &err)
	assert.Equal(t, 1, u.commits)

	u = &unit{}
	err = errors.New("handler failed")
	Finish(context.Background(), u, true, &err)
	assert.Equal(t, 0, u.commits)
	assert.Equal(t, 1, u.rollbacks)

	u = &unit{}
	err = nil
	Finish(context.Background(), u, false, &err)
	assert.Zero(t, u.commits+u.rollbacks, "unmanaged units are left to their owner")
}

func TestAbortHooksRunOnFailedCommit(t *testing.T) {
	u := &unit{commitErr: errors.New("conflict")}
	var order []string
	require.True(t, OnAbort(u, func(context.Context) { order = append(order, "first") }))
	OnAbort(u, func(context.Context) { order = append(order, "second") })

	var err error
	Finish(context.Background(), u, true, &err)
	require.Error(t, err)
	assert.Equal(t, []string{"second", "first"}, order)

	ok := &unit{}
	called := false
	OnAbort(ok, func(context.Context) { called = true })
	err = nil
	Finish(context.Background(), ok, true, &err)
	require.NoError(t, err)
	assert.False(t, called)
}

func TestCommitHooksRunOnlyAfterCommit(t *testing.T) {
	u := &unit{}
	var order []string
	require.True(t, AfterCommit(u, func(context.Context) { order = append(order, "first") }))
	AfterCommit(u, func(context.Context) { order = append(order, "second") })
	assert.Empty(t, order)

	var err error
	Finish(context.Background(), u, true, &err)
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, order)

	failed := &unit{commitErr: errors.New("conflict")}
	called := false
	AfterCommit(failed, func(context.Context) { called = true })
	err = nil
	Finish(context.Background(), failed, true, &err)
	require.Error(t, err)
	assert.False(t, called)

	rolled := &unit{}
	AfterCommit(rolled, func(context.Context) { called = true })
	err = errors.New("handler failed")
	Finish(context.Background(), rolled, true, &err)
	assert.False(t, called)
}
