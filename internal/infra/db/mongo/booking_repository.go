package mongo

import (
	"context"

	"github.com/cockroachdb/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"carshare/internal/domain/booking"
	"carshare/internal/domain/cars"
)

type BookingRepository struct {
	col *mongo.Collection
}

func NewBookingRepository(db *mongo.Database) *BookingRepository {
	return &BookingRepository{col: db.Collection(bookingsCollection)}
}

func (r *BookingRepository) ByID(ctx context.Context, id booking.BookingID) (*booking.Booking, error) {
	var doc bookingDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, errors.Wrapf(booking.ErrNotFound, "booking %s", id)
		}
		return nil, errors.Wrapf(err, "load booking %s", id)
	}
	return doc.toAggregate(), nil
}

func (r *BookingRepository) Save(ctx context.Context, b *booking.Booking) error {
	doc := newBookingDocument(b)
	filter := bson.M{"_id": doc.ID, "version": b.Version}
	doc.Version = b.Version + 1
	res, err := r.col.UpdateOne(ctx, filter, bson.M{"$set": doc}, options.Update().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return booking.ErrConcurrentUpdate
		}
		return errors.Wrapf(err, "save booking %s", b.ID)
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return booking.ErrConcurrentUpdate
	}
	b.Version = doc.Version
	return nil
}

func (r *BookingRepository) List(ctx context.Context, filter booking.Filter) ([]*booking.Booking, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}})
	cur, err := r.col.Find(ctx, bookingFilter(filter), opts)
	if err != nil {
		return nil, errors.Wrap(err, "list bookings")
	}
	var docs []bookingDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "decode bookings")
	}
	out := make([]*booking.Booking, 0, len(docs))
	for _, doc := range docs {
		out = append(out, doc.toAggregate())
	}
	return out, nil
}

func bookingFilter(f booking.Filter) bson.M {
	filter := bson.M{}
	if f.RenterID != "" {
		filter["renter_id"] = f.RenterID
	}
	if f.OwnerID != "" {
		filter["owner_id"] = string(f.OwnerID)
	}
	if f.CarID != "" {
		filter["car_id"] = string(f.CarID)
	}
	if len(f.States) > 0 {
		states := make(bson.A, 0, len(f.States))
		for _, s := range f.States {
			states = append(states, string(s))
		}
		filter["state"] = bson.M{"$in": states}
	}
	if !f.CreatedBefore.IsZero() {
		filter["created_at"] = bson.M{"$lt": f.CreatedBefore.UnixMilli()}
	}
	return filter
}

type policyDocument struct {
	PolicyID               string `bson:"policy_id"`
	FreeCancellationUntil  int64  `bson:"free_cancellation_until"`
	PreStartPenaltyPercent int    `bson:"pre_start_penalty_percent"`
	LatePenaltyPercent     int    `bson:"late_penalty_percent"`
}

type bookingDocument struct {
	ID         string         `bson:"_id"`
	CarID      string         `bson:"car_id"`
	OwnerID    string         `bson:"owner_id"`
	RenterID   string         `bson:"renter_id"`
	RenterTier string         `bson:"renter_tier,omitempty"`
	Range      rangeDocument  `bson:"range"`
	Price      quoteDocument  `bson:"price"`
	State      string         `bson:"state"`
	Policy     policyDocument `bson:"policy"`
	Note       string         `bson:"note,omitempty"`
	CreatedAt  int64          `bson:"created_at"`
	UpdatedAt  int64          `bson:"updated_at"`
	Version    int64          `bson:"version"`
}

func newBookingDocument(b *booking.Booking) bookingDocument {
	return bookingDocument{
		ID:         string(b.ID),
		CarID:      string(b.CarID),
		OwnerID:    string(b.OwnerID),
		RenterID:   b.RenterID,
		RenterTier: b.RenterTier,
		Range:      newRangeDocument(b.Range),
		Price:      newQuoteDocument(b.Price),
		State:      string(b.State),
		Policy: policyDocument{
			PolicyID:               b.Policy.PolicyID,
			FreeCancellationUntil:  timeToTimestamp(b.Policy.FreeCancellationUntil),
			PreStartPenaltyPercent: b.Policy.PreStartPenaltyPercent,
			LatePenaltyPercent:     b.Policy.LatePenaltyPercent,
		},
		Note:      b.Note,
		CreatedAt: timeToTimestamp(b.CreatedAt),
		UpdatedAt: timeToTimestamp(b.UpdatedAt),
		Version:   b.Version,
	}
}

func (d bookingDocument) toAggregate() *booking.Booking {
	return &booking.Booking{
		ID:         booking.BookingID(d.ID),
		CarID:      cars.CarID(d.CarID),
		OwnerID:    cars.OwnerID(d.OwnerID),
		RenterID:   d.RenterID,
		RenterTier: d.RenterTier,
		Range:      d.Range.toRange(),
		Price:      d.Price.toQuote(),
		State:      booking.State(d.State),
		Policy: booking.CancellationPolicySnapshot{
			PolicyID:               d.Policy.PolicyID,
			FreeCancellationUntil:  timestampToTime(d.Policy.FreeCancellationUntil),
			PreStartPenaltyPercent: d.Policy.PreStartPenaltyPercent,
			LatePenaltyPercent:     d.Policy.LatePenaltyPercent,
		},
		Note:      d.Note,
		CreatedAt: timestampToTime(d.CreatedAt),
		UpdatedAt: timestampToTime(d.UpdatedAt),
		Version:   d.Version,
	}
}

var _ booking.Repository = (*BookingRepository)(nil)
