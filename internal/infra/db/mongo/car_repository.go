package mongo

import (
	"context"

	"github.com/cockroachdb/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"carshare/internal/domain/cars"
)

type CarRepository struct {
	col *mongo.Collection
}

func NewCarRepository(db *mongo.Database) *CarRepository {
	return &CarRepository{col: db.Collection(carsCollection)}
}

func (r *CarRepository) ByID(ctx context.Context, id cars.CarID) (*cars.Car, error) {
	var doc carDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, errors.Wrapf(cars.ErrNotFound, "car %s", id)
		}
		return nil, errors.Wrapf(err, "load car %s", id)
	}
	return doc.toAggregate(), nil
}

func (r *CarRepository) Save(ctx context.Context, car *cars.Car) error {
	doc := newCarDocument(car)
	filter := bson.M{"_id": doc.ID, "version": car.Version}
	doc.Version = car.Version + 1
	res, err := r.col.UpdateOne(ctx, filter, bson.M{"$set": doc}, options.Update().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return cars.ErrConcurrentUpdate
		}
		return errors.Wrapf(err, "save car %s", car.ID)
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return cars.ErrConcurrentUpdate
	}
	car.Version = doc.Version
	return nil
}

// Search pushes the indexable criteria to Mongo and leaves location
// matching, ordering and paging to cars.Search so both stores agree.
func (r *CarRepository) Search(ctx context.Context, params cars.SearchParams) (cars.SearchResult, error) {
	params = params.Normalized()
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := r.col.Find(ctx, searchFilter(params), opts)
	if err != nil {
		return cars.SearchResult{}, errors.Wrap(err, "search cars")
	}
	var docs []carDocument
	if err := cur.All(ctx, &docs); err != nil {
		return cars.SearchResult{}, errors.Wrap(err, "decode cars")
	}
	candidates := make([]*cars.Car, 0, len(docs))
	for _, doc := range docs {
		candidates = append(candidates, doc.toAggregate())
	}
	return cars.Search(candidates, params), nil
}

func searchFilter(p cars.SearchParams) bson.M {
	filter := bson.M{}
	if len(p.States) > 0 {
		states := make(bson.A, 0, len(p.States))
		for _, s := range p.States {
			states = append(states, string(s))
		}
		filter["state"] = bson.M{"$in": states}
	}
	if p.Owner != "" {
		filter["owner_id"] = string(p.Owner)
	}
	if p.Fuel != "" {
		filter["fuel"] = string(p.Fuel)
	}
	if p.Transmission != "" {
		filter["transmission"] = string(p.Transmission)
	}
	if p.MinSeats > 0 {
		filter["seats"] = bson.M{"$gte": p.MinSeats}
	}
	price := bson.M{}
	if p.MinPrice > 0 {
		price["$gte"] = p.MinPrice
	}
	if p.MaxPrice > 0 {
		price["$lte"] = p.MaxPrice
	}
	if len(price) > 0 {
		filter["price.amount"] = price
	}
	return filter
}

type locationDocument struct {
	Address string  `bson:"address,omitempty"`
	City    string  `bson:"city"`
	Region  string  `bson:"region,omitempty"`
	Country string  `bson:"country"`
	Lat     float64 `bson:"lat,omitempty"`
	Lon     float64 `bson:"lon,omitempty"`
}

type carDocument struct {
	ID           string           `bson:"_id"`
	OwnerID      string           `bson:"owner_id"`
	Make         string           `bson:"make"`
	Model        string           `bson:"model"`
	Year         int              `bson:"year"`
	Description  string           `bson:"description,omitempty"`
	Location     locationDocument `bson:"location"`
	Fuel         string           `bson:"fuel"`
	Transmission string           `bson:"transmission"`
	Seats        int              `bson:"seats"`
	Price        moneyDocument    `bson:"price"`
	Insurance    *moneyDocument   `bson:"insurance,omitempty"`
	Policy       string           `bson:"cancellation_policy,omitempty"`
	Features     []string         `bson:"features"`
	Rating       float64          `bson:"rating"`
	ReviewsCount int              `bson:"reviews_count"`
	Photos       []string         `bson:"photos"`
	State        string           `bson:"state"`
	CreatedAt    int64            `bson:"created_at"`
	UpdatedAt    int64            `bson:"updated_at"`
	Version      int64            `bson:"version"`
}

func newCarDocument(c *cars.Car) carDocument {
	doc := carDocument{
		ID:      string(c.ID),
		OwnerID: string(c.Owner),
		Make:    c.Make,
		Model:   c.Model,
		Year:    c.Year,
		Location: locationDocument{
			Address: c.Location.Address,
			City:    c.Location.City,
			Region:  c.Location.Region,
			Country: c.Location.Country,
			Lat:     c.Location.Lat,
			Lon:     c.Location.Lon,
		},
		Description:  c.Description,
		Fuel:         string(c.Fuel),
		Transmission: string(c.Transmission),
		Seats:        c.Seats,
		Price:        newMoneyDocument(c.PricePerDay),
		Policy:       c.CancellationPolicyID,
		Features:     append([]string{}, c.Features...),
		Rating:       c.Rating,
		ReviewsCount: c.ReviewsCount,
		Photos:       append([]string{}, c.Photos...),
		State:        string(c.State),
		CreatedAt:    timeToTimestamp(c.CreatedAt),
		UpdatedAt:    timeToTimestamp(c.UpdatedAt),
		Version:      c.Version,
	}
	if c.Insurance != nil {
		ins := newMoneyDocument(*c.Insurance)
		doc.Insurance = &ins
	}
	return doc
}

func (d carDocument) toAggregate() *cars.Car {
	c := &cars.Car{
		ID:    cars.CarID(d.ID),
		Owner: cars.OwnerID(d.OwnerID),
		Make:  d.Make,
		Model: d.Model,
		Year:  d.Year,
		Location: cars.Location{
			Address: d.Location.Address,
			City:    d.Location.City,
			Region:  d.Location.Region,
			Country: d.Location.Country,
			Lat:     d.Location.Lat,
			Lon:     d.Location.Lon,
		},
		Description:          d.Description,
		Fuel:                 cars.FuelType(d.Fuel),
		Transmission:         cars.Transmission(d.Transmission),
		Seats:                d.Seats,
		PricePerDay:          d.Price.toMoney(),
		CancellationPolicyID: d.Policy,
		Features:             append([]string{}, d.Features...),
		Rating:               d.Rating,
		ReviewsCount:         d.ReviewsCount,
		Photos:               append([]string{}, d.Photos...),
		State:                cars.State(d.State),
		CreatedAt:            timestampToTime(d.CreatedAt),
		UpdatedAt:            timestampToTime(d.UpdatedAt),
		Version:              d.Version,
	}
	if d.Insurance != nil {
		ins := d.Insurance.toMoney()
		c.Insurance = &ins
	}
	return c
}

var _ cars.Repository = (*CarRepository)(nil)
