package mongo

import (
	"context"

	"github.com/cockroachdb/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"carshare/internal/domain/availability"
	"carshare/internal/domain/cars"
)

// CalendarRepository stores one document per car. The version filter on
// Save is what serializes two renters racing for the same car.
type CalendarRepository struct {
	col *mongo.Collection
}

func NewCalendarRepository(db *mongo.Database) *CalendarRepository {
	return &CalendarRepository{col: db.Collection(calendarsCollection)}
}

func (r *CalendarRepository) Calendar(ctx context.Context, id cars.CarID) (*availability.Calendar, error) {
	var doc calendarDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return availability.NewCalendar(id), nil
		}
		return nil, errors.Wrapf(err, "load calendar %s", id)
	}
	return doc.toAggregate(), nil
}

func (r *CalendarRepository) Save(ctx context.Context, calendar *availability.Calendar) error {
	doc := newCalendarDocument(calendar)
	filter := bson.M{"_id": doc.CarID, "version": calendar.Version}
	doc.Version = calendar.Version + 1
	res, err := r.col.UpdateOne(ctx, filter, bson.M{"$set": doc}, options.Update().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return availability.ErrConcurrentUpdate
		}
		return errors.Wrapf(err, "save calendar %s", calendar.CarID)
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return availability.ErrConcurrentUpdate
	}
	calendar.Version = doc.Version
	return nil
}

type blockDocument struct {
	Range     rangeDocument `bson:"range"`
	Reason    string        `bson:"reason"`
	Reference string        `bson:"reference"`
	CreatedAt int64         `bson:"created_at"`
}

type calendarDocument struct {
	CarID   string          `bson:"_id"`
	Blocks  []blockDocument `bson:"blocks"`
	Version int64           `bson:"version"`
}

func newCalendarDocument(c *availability.Calendar) calendarDocument {
	blocks := make([]blockDocument, 0, len(c.Blocks))
	for _, b := range c.Blocks {
		blocks = append(blocks, blockDocument{
			Range:     newRangeDocument(b.Range),
			Reason:    string(b.Reason),
			Reference: b.Reference,
			CreatedAt: timeToTimestamp(b.CreatedAt),
		})
	}
	return calendarDocument{CarID: string(c.CarID), Blocks: blocks, Version: c.Version}
}

func (d calendarDocument) toAggregate() *availability.Calendar {
	c := availability.NewCalendar(cars.CarID(d.CarID))
	c.Version = d.Version
	for _, b := range d.Blocks {
		c.Blocks = append(c.Blocks, availability.Block{
			Range:     b.Range.toRange(),
			Reason:    availability.BlockReason(b.Reason),
			Reference: b.Reference,
			CreatedAt: timestampToTime(b.CreatedAt),
		})
	}
	return c
}

var _ availability.Repository = (*CalendarRepository)(nil)
