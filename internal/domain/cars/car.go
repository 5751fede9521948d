package cars

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"carshare/internal/domain/shared/events"
	"carshare/internal/domain/shared/money"
)

var (
	ErrNotFound            = errors.New("cars: not found")
	ErrNameRequired        = errors.New("cars: make and model are required")
	ErrPriceRequired       = errors.New("cars: price per day must be positive")
	ErrInsuranceNegative   = errors.New("cars: insurance must not be negative")
	ErrInvalidSeats        = errors.New("cars: seats must be between 1 and 9")
	ErrInvalidYear         = errors.New("cars: year is out of range")
	ErrInvalidFuel         = errors.New("cars: unknown fuel type")
	ErrInvalidTransmission = errors.New("cars: unknown transmission")
	ErrLocationRequired    = errors.New("cars: city and country are required to publish")
	ErrInvalidState        = errors.New("cars: invalid state transition")
	ErrConcurrentUpdate    = errors.New("cars: concurrent update")
)

type CarID string
type OwnerID string

type State string

const (
	StateDraft     State = "DRAFT"
	StateActive    State = "ACTIVE"
	StateSuspended State = "SUSPENDED"
)

type FuelType string

const (
	FuelPetrol   FuelType = "petrol"
	FuelDiesel   FuelType = "diesel"
	FuelHybrid   FuelType = "hybrid"
	FuelElectric FuelType = "electric"
)

func ParseFuel(raw string) (FuelType, error) {
	switch f := FuelType(strings.ToLower(strings.TrimSpace(raw))); f {
	case FuelPetrol, FuelDiesel, FuelHybrid, FuelElectric:
		return f, nil
	case "gasoline", "gas":
		return FuelPetrol, nil
	}
	return "", errors.Wrapf(ErrInvalidFuel, "%q", raw)
}

type Transmission string

const (
	TransmissionAutomatic Transmission = "automatic"
	TransmissionManual    Transmission = "manual"
)

func ParseTransmission(raw string) (Transmission, error) {
	switch t := Transmission(strings.ToLower(strings.TrimSpace(raw))); t {
	case TransmissionAutomatic, TransmissionManual:
		return t, nil
	case "auto":
		return TransmissionAutomatic, nil
	}
	return "", errors.Wrapf(ErrInvalidTransmission, "%q", raw)
}

type Location struct {
	Address string
	City    string
	Region  string
	Country string
	Lat     float64
	Lon     float64
}

func (l Location) Valid() bool {
	return strings.TrimSpace(l.City) != "" && strings.TrimSpace(l.Country) != ""
}

// Car is a vehicle listed by an owner.
type Car struct {
	ID           CarID
	Owner        OwnerID
	Make         string
	Model        string
	Year         int
	Description  string
	Location     Location
	Fuel         FuelType
	Transmission Transmission
	Seats        int
	PricePerDay  money.Money
	// Insurance is a flat per-booking amount; nil means the rate applies.
	Insurance            *money.Money
	CancellationPolicyID string
	Features             []string
	Rating               float64
	ReviewsCount         int
	Photos               []string
	State                State
	Version              int64
	CreatedAt            time.Time
	UpdatedAt            time.Time
	events.EventRecorder
}

func (c *Car) Name() string {
	return strings.TrimSpace(c.Make + " " + c.Model)
}

func (c *Car) ThumbnailURL() string {
	if len(c.Photos) == 0 {
		return ""
	}
	return c.Photos[0]
}

func (c *Car) Bookable() bool {
	return c.State == StateActive
}

type Repository interface {
	ByID(ctx context.Context, id CarID) (*Car, error)
	Save(ctx context.Context, car *Car) error
	Search(ctx context.Context, params SearchParams) (SearchResult, error)
}

// Details are the owner-editable attributes of a car.
type Details struct {
	Make                 string
	Model                string
	Year                 int
	Description          string
	Location             Location
	Fuel                 FuelType
	Transmission         Transmission
	Seats                int
	PricePerDay          money.Money
	Insurance            *money.Money
	CancellationPolicyID string
	Features             []string
}

func (d Details) validate(now time.Time) error {
	if strings.TrimSpace(d.Make) == "" || strings.TrimSpace(d.Model) == "" {
		return ErrNameRequired
	}
	if d.PricePerDay.Amount <= 0 || d.PricePerDay.Currency == "" {
		return ErrPriceRequired
	}
	if d.Insurance != nil && d.Insurance.IsNegative() {
		return ErrInsuranceNegative
	}
	if d.Seats < 1 || d.Seats > 9 {
		return ErrInvalidSeats
	}
	if d.Year != 0 && (d.Year < 1950 || d.Year > now.Year()+1) {
		return ErrInvalidYear
	}
	if _, err := ParseFuel(string(d.Fuel)); err != nil {
		return err
	}
	if _, err := ParseTransmission(string(d.Transmission)); err != nil {
		return err
	}
	return nil
}

type CreateParams struct {
	ID      CarID
	Owner   OwnerID
	Details Details
	Rating  float64
	Reviews int
	Photos  []string
	Now     time.Time
}

func NewCar(params CreateParams) (*Car, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, errors.New("cars: id is required")
	}
	if strings.TrimSpace(string(params.Owner)) == "" {
		return nil, errors.New("cars: owner is required")
	}
	if err := params.Details.validate(params.Now); err != nil {
		return nil, err
	}
	now := params.Now.UTC()
	car := &Car{
		ID:           params.ID,
		Owner:        params.Owner,
		Rating:       params.Rating,
		ReviewsCount: params.Reviews,
		Photos:       slices.Clone(params.Photos),
		State:        StateDraft,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	car.apply(params.Details)
	car.Record(CarCreated{CarID: car.ID, OwnerID: car.Owner, At: now})
	return car, nil
}

func (c *Car) apply(d Details) {
	fuel, _ := ParseFuel(string(d.Fuel))
	transmission, _ := ParseTransmission(string(d.Transmission))
	c.Make = strings.TrimSpace(d.Make)
	c.Model = strings.TrimSpace(d.Model)
	c.Year = d.Year
	c.Description = strings.TrimSpace(d.Description)
	c.Location = d.Location
	c.Fuel = fuel
	c.Transmission = transmission
	c.Seats = d.Seats
	c.PricePerDay = d.PricePerDay
	c.Insurance = nil
	if d.Insurance != nil {
		flat := *d.Insurance
		c.Insurance = &flat
	}
	c.CancellationPolicyID = strings.TrimSpace(d.CancellationPolicyID)
	c.Features = slices.Clone(d.Features)
}

// Update replaces the editable attributes. Existing bookings keep their own
// price snapshot, so a price change only affects future quotes.
func (c *Car) Update(d Details, now time.Time) error {
	if c.State == StateSuspended {
		return ErrInvalidState
	}
	if err := d.validate(now); err != nil {
		return err
	}
	previous := c.PricePerDay
	c.apply(d)
	c.UpdatedAt = now.UTC()
	c.Record(CarUpdated{CarID: c.ID, At: c.UpdatedAt})
	if previous != c.PricePerDay {
		c.Record(CarPriceChanged{CarID: c.ID, From: previous, To: c.PricePerDay, At: c.UpdatedAt})
	}
	return nil
}

func (c *Car) Publish(now time.Time) error {
	switch c.State {
	case StateActive:
		return nil
	case StateSuspended:
		return ErrInvalidState
	}
	if !c.Location.Valid() {
		return ErrLocationRequired
	}
	if c.PricePerDay.Amount <= 0 {
		return ErrPriceRequired
	}
	c.State = StateActive
	c.UpdatedAt = now.UTC()
	c.Record(CarPublished{CarID: c.ID, OwnerID: c.Owner, At: c.UpdatedAt})
	return nil
}

func (c *Car) Unpublish(now time.Time) error {
	if c.State != StateActive {
		return ErrInvalidState
	}
	c.State = StateDraft
	c.UpdatedAt = now.UTC()
	c.Record(CarUnpublished{CarID: c.ID, At: c.UpdatedAt})
	return nil
}

func (c *Car) Suspend(reason string, now time.Time) error {
	if c.State == StateSuspended {
		return ErrInvalidState
	}
	c.State = StateSuspended
	c.UpdatedAt = now.UTC()
	c.Record(CarSuspended{CarID: c.ID, Reason: strings.TrimSpace(reason), At: c.UpdatedAt})
	return nil
}

func (c *Car) AddPhoto(url string, now time.Time) {
	c.Photos = append(c.Photos, url)
	c.UpdatedAt = now.UTC()
	c.Record(CarPhotoAdded{CarID: c.ID, URL: url, At: c.UpdatedAt})
}
