package mongo

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"

	"carshare/internal/domain/availability"
	"carshare/internal/domain/booking"
	"carshare/internal/domain/cars"
	"carshare/internal/domain/pricing"
	"carshare/internal/domain/shared/daterange"
	"carshare/internal/domain/shared/events"
	"carshare/internal/domain/shared/money"
)

var ignoreRecorder = cmpopts.IgnoreTypes(events.EventRecorder{})

func TestSearchFilter(t *testing.T) {
	params := cars.SearchParams{
		States:   []cars.State{cars.StateActive},
		Fuel:     cars.FuelHybrid,
		MinSeats: 5,
		MinPrice: 3000,
		MaxPrice: 8000,
		Location: "Lisbon",
	}.Normalized()

	want := bson.M{
		"state":        bson.M{"$in": bson.A{"ACTIVE"}},
		"fuel":         "hybrid",
		"seats":        bson.M{"$gte": 5},
		"price.amount": bson.M{"$gte": int64(3000), "$lte": int64(8000)},
	}
	if diff := cmp.Diff(want, searchFilter(params)); diff != "" {
		t.Fatalf("filter mismatch (-want +got):\n%s", diff)
	}
	assert.Empty(t, searchFilter(cars.SearchParams{}))
}

func TestBookingFilter(t *testing.T) {
	cutoff := time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)
	got := bookingFilter(booking.Filter{
		OwnerID:       "owner-1",
		States:        []booking.State{booking.StatePending},
		CreatedBefore: cutoff,
	})
	want := bson.M{
		"owner_id":   "owner-1",
		"state":      bson.M{"$in": bson.A{"PENDING"}},
		"created_at": bson.M{"$lt": cutoff.UnixMilli()},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("filter mismatch (-want +got):\n%s", diff)
	}
}

func TestDocumentsKeepAggregateState(t *testing.T) {
	now := time.Date(2025, 10, 1, 9, 30, 0, 0, time.UTC)
	insurance := money.Must(2500, "EUR")
	car := &cars.Car{
		ID:                   "car-1",
		Owner:                "owner-1",
		Make:                 "Toyota",
		Model:                "Prius",
		Year:                 2021,
		Location:             cars.Location{City: "Lisbon", Country: "PT", Lat: 38.7},
		Fuel:                 cars.FuelHybrid,
		Transmission:         cars.TransmissionAutomatic,
		Seats:                5,
		PricePerDay:          money.Must(4500, "EUR"),
		Insurance:            &insurance,
		CancellationPolicyID: "moderate",
		Features:             []string{"ac"},
		Photos:               []string{},
		State:                cars.StateActive,
		Version:              3,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if diff := cmp.Diff(car, newCarDocument(car).toAggregate(), ignoreRecorder); diff != "" {
		t.Errorf("car mismatch (-want +got):\n%s", diff)
	}

	dr := daterange.DateRange{Start: now.AddDate(0, 0, 10), End: now.AddDate(0, 0, 13)}
	cal := availability.NewCalendar("car-1")
	cal.Version = 2
	cal.Blocks = []availability.Block{{Range: dr, Reason: availability.ReasonOwnerBlock, Reference: "service", CreatedAt: now}}
	if diff := cmp.Diff(cal, newCalendarDocument(cal).toAggregate(), ignoreRecorder); diff != "" {
		t.Errorf("calendar mismatch (-want +got):\n%s", diff)
	}

	b := &booking.Booking{
		ID:       "bk-1",
		CarID:    "car-1",
		OwnerID:  "owner-1",
		RenterID: "renter-1",
		Range:    dr,
		Price: pricing.Quote{
			CarID:          "car-1",
			Range:          dr,
			TotalDays:      3,
			PricePerDay:    money.Must(4500, "EUR"),
			Subtotal:       money.Must(13500, "EUR"),
			ServiceFee:     money.Must(1350, "EUR"),
			Insurance:      insurance,
			Total:          money.Must(17350, "EUR"),
			ServiceFeeRate: 1000,
			FlatInsurance:  true,
		},
		State:     booking.StateConfirmed,
		Policy:    booking.PolicyFor(booking.PolicyModerate, dr.Start),
		CreatedAt: now,
		UpdatedAt: now,
		Version:   1,
	}
	if diff := cmp.Diff(b, newBookingDocument(b).toAggregate(), ignoreRecorder); diff != "" {
		t.Errorf("booking mismatch (-want +got):\n%s", diff)
	}
}

func TestZeroTimestampsStayZero(t *testing.T) {
	assert.Zero(t, timeToTimestamp(time.Time{}))
	assert.True(t, timestampToTime(0).IsZero())
}
