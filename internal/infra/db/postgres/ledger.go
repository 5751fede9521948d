package postgres

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"carshare/internal/app/policies"
	"carshare/internal/domain/availability"
	"carshare/internal/domain/booking"
	"carshare/internal/domain/cars"
	"carshare/internal/domain/shared/daterange"
)

const pgErrCodeExclusionViolation = "23P01"

// Schema lets Postgres reject overlapping holds of one car on its own.
const Schema = `
CREATE EXTENSION IF NOT EXISTS btree_gist;
CREATE TABLE IF NOT EXISTS car_reservation_holds (
	booking_id TEXT PRIMARY KEY,
	car_id     TEXT NOT NULL,
	period     TSTZRANGE NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	EXCLUDE USING gist (car_id WITH =, period WITH &&)
);`

const (
	holdSQL = `INSERT INTO car_reservation_holds (booking_id, car_id, period)
VALUES ($1, $2, tstzrange($3, $4, '[)'))
ON CONFLICT (booking_id) DO NOTHING`
	releaseSQL = `DELETE FROM car_reservation_holds WHERE booking_id = $1`
)

// DB is the subset of *pgxpool.Pool the ledger uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Ping(ctx context.Context) error
}

// Ledger is a ReservationLedger over a table with an exclusion constraint.
// Holds are written outside the unit of work; callers compensate on abort.
type Ledger struct {
	db DB
}

func NewLedger(db DB) *Ledger {
	return &Ledger{db: db}
}

// Connect opens a pool and applies Schema.
func Connect(ctx context.Context, dsn string, maxConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, errors.Wrap(err, "parse postgres dsn")
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	cfg.MaxConnLifetime = time.Hour
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "open postgres pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "ping postgres")
	}
	if _, err := pool.Exec(ctx, Schema); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "apply ledger schema")
	}
	return pool, nil
}

// Hold is idempotent per booking.
func (l *Ledger) Hold(ctx context.Context, carID cars.CarID, bookingID booking.BookingID, r daterange.DateRange) error {
	_, err := l.db.Exec(ctx, holdSQL, string(bookingID), string(carID), r.Start, r.End)
	if err != nil {
		if isExclusionViolation(err) {
			return errors.Wrapf(availability.ErrConflict, "car %s", carID)
		}
		return errors.Wrapf(err, "hold %s", bookingID)
	}
	return nil
}

func (l *Ledger) Release(ctx context.Context, bookingID booking.BookingID) error {
	if _, err := l.db.Exec(ctx, releaseSQL, string(bookingID)); err != nil {
		return errors.Wrapf(err, "release %s", bookingID)
	}
	return nil
}

func (l *Ledger) Ping(ctx context.Context) error {
	return l.db.Ping(ctx)
}

func isExclusionViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgErrCodeExclusionViolation
}

var _ policies.ReservationLedger = (*Ledger)(nil)
