package mongo

import (
	"context"

	"github.com/cockroachdb/errors"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"

	"carshare/internal/app/uow"
	"carshare/internal/domain/availability"
	"carshare/internal/domain/booking"
	"carshare/internal/domain/cars"
)

var ErrUnitOfWorkNotConfigured = errors.New("mongo: unit of work factory missing database")

// Factory wires Mongo transactions into the generic UnitOfWork interface.
type Factory struct {
	DB *mongo.Database

	CarsRepo      cars.Repository
	CalendarsRepo availability.Repository
	BookingsRepo  booking.Repository
}

// NewFactory builds the repositories over db.
func NewFactory(db *mongo.Database) Factory {
	return Factory{
		DB:            db,
		CarsRepo:      NewCarRepository(db),
		CalendarsRepo: NewCalendarRepository(db),
		BookingsRepo:  NewBookingRepository(db),
	}
}

// Begin starts a MongoDB session/transaction.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.DB == nil {
		return nil, ErrUnitOfWorkNotConfigured
	}
	session, err := f.DB.Client().StartSession()
	if err != nil {
		return nil, errors.Wrap(err, "start session")
	}
	txnOpts := options.Transaction().SetWriteConcern(f.DB.WriteConcern())
	if opts.ReadOnly {
		txnOpts = txnOpts.SetReadConcern(readconcern.Snapshot())
	} else {
		txnOpts = txnOpts.SetReadConcern(f.DB.ReadConcern())
	}
	if err := session.StartTransaction(txnOpts); err != nil {
		session.EndSession(ctx)
		return nil, errors.Wrap(err, "start transaction")
	}
	return &Unit{
		session:   session,
		cars:      f.CarsRepo,
		calendars: f.CalendarsRepo,
		bookings:  f.BookingsRepo,
	}, nil
}

type Unit struct {
	uow.AbortHooks
	uow.CommitHooks

	session mongo.Session

	cars      cars.Repository
	calendars availability.Repository
	bookings  booking.Repository
}

func (u *Unit) Cars() cars.Repository              { return u.cars }
func (u *Unit) Calendars() availability.Repository { return u.calendars }
func (u *Unit) Bookings() booking.Repository       { return u.bookings }

func (u *Unit) Commit(ctx context.Context) error {
	defer u.session.EndSession(ctx)
	if err := u.session.CommitTransaction(ctx); err != nil {
		u.DropCommit()
		u.RunAbort(ctx)
		return errors.Wrap(err, "commit transaction")
	}
	u.Discard()
	u.RunCommit(ctx)
	return nil
}

func (u *Unit) Rollback(ctx context.Context) error {
	defer u.session.EndSession(ctx)
	defer u.RunAbort(ctx)
	u.DropCommit()
	return u.session.AbortTransaction(ctx)
}

// InjectContext ensures Mongo session is available in context for downstream repos.
func (u *Unit) InjectContext(ctx context.Context) context.Context {
	return mongo.NewSessionContext(ctx, u.session)
}

var (
	_ uow.Compensator = (*Unit)(nil)
	_ uow.Committer   = (*Unit)(nil)
)
