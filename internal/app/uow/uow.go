package uow

import (
	"context"

	"github.com/cockroachdb/errors"

	"carshare/internal/domain/availability"
	"carshare/internal/domain/booking"
	"carshare/internal/domain/cars"
)

var ErrUnitOfWorkMissing = errors.New("uow: unit of work missing from context")

// UnitOfWork coordinates repositories inside a transaction boundary.
type UnitOfWork interface {
	Cars() cars.Repository
	Calendars() availability.Repository
	Bookings() booking.Repository

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// UoWFactory starts unit of work instances.
type UoWFactory interface {
	Begin(ctx context.Context, opts TxOptions) (UnitOfWork, error)
}

type TxOptions struct {
	ReadOnly bool
}

// Compensator is implemented by units that can run callbacks when their
// changes are discarded, either by Rollback or by a failed Commit. It lets
// handlers undo side effects made outside the unit.
type Compensator interface {
	OnAbort(fn func(ctx context.Context))
}

// OnAbort registers fn on unit when supported and reports whether it did.
func OnAbort(unit UnitOfWork, fn func(ctx context.Context)) bool {
	c, ok := unit.(Compensator)
	if ok {
		c.OnAbort(fn)
	}
	return ok
}

// Committer is implemented by units that can run callbacks once their changes
// are durable.
type Committer interface {
	OnCommit(fn func(ctx context.Context))
}

// AfterCommit registers fn on unit when supported and reports whether it did.
func AfterCommit(unit UnitOfWork, fn func(ctx context.Context)) bool {
	c, ok := unit.(Committer)
	if ok {
		c.OnCommit(fn)
	}
	return ok
}

type ctxKey struct{}

func ContextWithUnitOfWork(ctx context.Context, unit UnitOfWork) context.Context {
	return context.WithValue(ctx, ctxKey{}, unit)
}

func FromContext(ctx context.Context) (UnitOfWork, bool) {
	unit, ok := ctx.Value(ctxKey{}).(UnitOfWork)
	return unit, ok
}

// contextInjector is implemented by units that carry driver state (a Mongo
// session) in the context.
type contextInjector interface {
	InjectContext(context.Context) context.Context
}

// Start begins a unit and returns the context downstream repositories must use.
func Start(ctx context.Context, factory UoWFactory, opts TxOptions) (UnitOfWork, context.Context, error) {
	if factory == nil {
		return nil, ctx, ErrUnitOfWorkMissing
	}
	unit, err := factory.Begin(ctx, opts)
	if err != nil {
		return nil, ctx, errors.Wrap(err, "begin unit of work")
	}
	execCtx := ctx
	if injector, ok := unit.(contextInjector); ok {
		execCtx = injector.InjectContext(ctx)
	}
	return unit, ContextWithUnitOfWork(execCtx, unit), nil
}

// Acquire returns the unit already present in ctx, or starts one. managed
// reports whether the caller owns the unit and must pass it to Finish.
func Acquire(ctx context.Context, factory UoWFactory, opts TxOptions) (unit UnitOfWork, execCtx context.Context, managed bool, err error) {
	if existing, ok := FromContext(ctx); ok {
		return existing, ctx, false, nil
	}
	unit, execCtx, err = Start(ctx, factory, opts)
	if err != nil {
		return nil, ctx, false, err
	}
	return unit, execCtx, true, nil
}

// Finish commits a managed unit when *errp is nil and rolls it back otherwise.
// A commit failure is reported through errp.
func Finish(ctx context.Context, unit UnitOfWork, managed bool, errp *error) {
	if !managed || unit == nil {
		return
	}
	if *errp != nil {
		_ = unit.Rollback(ctx)
		return
	}
	if err := unit.Commit(ctx); err != nil {
		*errp = err
	}
}

// BeginReadOnly reuses the unit in ctx or starts a read-only one. release is
// never nil and rolls back a unit started here.
func BeginReadOnly(ctx context.Context, factory UoWFactory) (UnitOfWork, context.Context, func(), error) {
	unit, execCtx, managed, err := Acquire(ctx, factory, TxOptions{ReadOnly: true})
	if err != nil {
		return nil, ctx, func() {}, err
	}
	if !managed {
		return unit, execCtx, func() {}, nil
	}
	return unit, execCtx, func() { _ = unit.Rollback(execCtx) }, nil
}
