package dto

import (
	"time"

	"carshare/internal/domain/cars"
)

type Location struct {
	Address string  `json:"address,omitempty"`
	City    string  `json:"city"`
	Region  string  `json:"region,omitempty"`
	Country string  `json:"country"`
	Lat     float64 `json:"lat,omitempty"`
	Lon     float64 `json:"lon,omitempty"`
}

type CarSummary struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Year         int      `json:"year,omitempty"`
	Location     Location `json:"location"`
	Fuel         string   `json:"fuel"`
	Transmission string   `json:"transmission"`
	Seats        int      `json:"seats"`
	PricePerDay  Amount   `json:"price_per_day"`
	Currency     string   `json:"currency"`
	Rating       float64  `json:"rating"`
	ThumbnailURL string   `json:"thumbnail_url,omitempty"`
}

type Car struct {
	CarSummary
	OwnerID            string    `json:"owner_id"`
	Make               string    `json:"make"`
	Model              string    `json:"model"`
	Description        string    `json:"description,omitempty"`
	Insurance          *Amount   `json:"insurance,omitempty"`
	CancellationPolicy string    `json:"cancellation_policy,omitempty"`
	Features           []string  `json:"features"`
	Photos             []string  `json:"photos"`
	ReviewsCount       int       `json:"reviews_count"`
	State              string    `json:"state"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

type CarCatalog struct {
	Items  []CarSummary `json:"items"`
	Total  int          `json:"total"`
	Limit  int          `json:"limit"`
	Offset int          `json:"offset"`
}

func MapLocation(l cars.Location) Location {
	return Location{Address: l.Address, City: l.City, Region: l.Region, Country: l.Country, Lat: l.Lat, Lon: l.Lon}
}

func MapCarSummary(c *cars.Car) CarSummary {
	return CarSummary{
		ID:           string(c.ID),
		Name:         c.Name(),
		Year:         c.Year,
		Location:     MapLocation(c.Location),
		Fuel:         string(c.Fuel),
		Transmission: string(c.Transmission),
		Seats:        c.Seats,
		PricePerDay:  MapAmount(c.PricePerDay),
		Currency:     c.PricePerDay.Currency,
		Rating:       c.Rating,
		ThumbnailURL: c.ThumbnailURL(),
	}
}

func MapCar(c *cars.Car) Car {
	out := Car{
		CarSummary:         MapCarSummary(c),
		OwnerID:            string(c.Owner),
		Make:               c.Make,
		Model:              c.Model,
		Description:        c.Description,
		CancellationPolicy: c.CancellationPolicyID,
		Features:           append([]string{}, c.Features...),
		Photos:             append([]string{}, c.Photos...),
		ReviewsCount:       c.ReviewsCount,
		State:              string(c.State),
		CreatedAt:          c.CreatedAt,
		UpdatedAt:          c.UpdatedAt,
	}
	if c.Insurance != nil {
		flat := MapAmount(*c.Insurance)
		out.Insurance = &flat
	}
	return out
}

func MapCatalog(result cars.SearchResult, limit, offset int) CarCatalog {
	items := make([]CarSummary, 0, len(result.Items))
	for _, c := range result.Items {
		items = append(items, MapCarSummary(c))
	}
	return CarCatalog{Items: items, Total: result.Total, Limit: limit, Offset: offset}
}
