package cars

import (
	"time"

	"carshare/internal/domain/shared/money"
)

type CarCreated struct {
	CarID   CarID
	OwnerID OwnerID
	At      time.Time
}

func (e CarCreated) EventName() string     { return "car.created" }
func (e CarCreated) AggregateID() string   { return string(e.CarID) }
func (e CarCreated) OccurredAt() time.Time { return e.At }

type CarPublished struct {
	CarID   CarID
	OwnerID OwnerID
	At      time.Time
}

func (e CarPublished) EventName() string     { return "car.published" }
func (e CarPublished) AggregateID() string   { return string(e.CarID) }
func (e CarPublished) OccurredAt() time.Time { return e.At }

type CarUnpublished struct {
	CarID CarID
	At    time.Time
}

func (e CarUnpublished) EventName() string     { return "car.unpublished" }
func (e CarUnpublished) AggregateID() string   { return string(e.CarID) }
func (e CarUnpublished) OccurredAt() time.Time { return e.At }

type CarSuspended struct {
	CarID  CarID
	Reason string
	At     time.Time
}

func (e CarSuspended) EventName() string     { return "car.suspended" }
func (e CarSuspended) AggregateID() string   { return string(e.CarID) }
func (e CarSuspended) OccurredAt() time.Time { return e.At }

type CarUpdated struct {
	CarID CarID
	At    time.Time
}

func (e CarUpdated) EventName() string     { return "car.updated" }
func (e CarUpdated) AggregateID() string   { return string(e.CarID) }
func (e CarUpdated) OccurredAt() time.Time { return e.At }

type CarPriceChanged struct {
	CarID CarID
	From  money.Money
	To    money.Money
	At    time.Time
}

func (e CarPriceChanged) EventName() string     { return "car.price_changed" }
func (e CarPriceChanged) AggregateID() string   { return string(e.CarID) }
func (e CarPriceChanged) OccurredAt() time.Time { return e.At }

type CarPhotoAdded struct {
	CarID CarID
	URL   string
	At    time.Time
}

func (e CarPhotoAdded) EventName() string     { return "car.photo_added" }
func (e CarPhotoAdded) AggregateID() string   { return string(e.CarID) }
func (e CarPhotoAdded) OccurredAt() time.Time { return e.At }
