package dto

import (
	"time"

	"carshare/internal/domain/booking"
	"carshare/internal/domain/cars"
)

type BookingCarSnapshot struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	City         string `json:"city"`
	Country      string `json:"country"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
}

type Booking struct {
	ID                 string             `json:"id"`
	Car                BookingCarSnapshot `json:"car"`
	OwnerID            string             `json:"owner_id"`
	RenterID           string             `json:"renter_id"`
	StartDate          time.Time          `json:"start_date"`
	EndDate            time.Time          `json:"end_date"`
	Status             string             `json:"status"`
	Price              Quote              `json:"price"`
	CancellationPolicy string             `json:"cancellation_policy"`
	Note               string             `json:"note,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

type BookingCollection struct {
	Items []Booking `json:"items"`
}

type Cancellation struct {
	BookingID string `json:"booking_id"`
	Status    string `json:"status"`
	Refund    Amount `json:"refund"`
	Penalty   Amount `json:"penalty"`
	Currency  string `json:"currency"`
}

// MapBooking renders b; car may be nil when it was removed from the catalog.
func MapBooking(b *booking.Booking, car *cars.Car) Booking {
	snapshot := BookingCarSnapshot{ID: string(b.CarID)}
	if car != nil {
		snapshot.Name = car.Name()
		snapshot.City = car.Location.City
		snapshot.Country = car.Location.Country
		snapshot.ThumbnailURL = car.ThumbnailURL()
	}
	return Booking{
		ID:                 string(b.ID),
		Car:                snapshot,
		OwnerID:            string(b.OwnerID),
		RenterID:           b.RenterID,
		StartDate:          b.Range.Start,
		EndDate:            b.Range.End,
		Status:             string(b.State),
		Price:              MapQuote(b.Price, b.State.Active()),
		CancellationPolicy: b.Policy.PolicyID,
		Note:               b.Note,
		CreatedAt:          b.CreatedAt,
		UpdatedAt:          b.UpdatedAt,
	}
}
