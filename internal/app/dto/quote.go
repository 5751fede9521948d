package dto

import (
	"time"

	"carshare/internal/domain/pricing"
)

type Quote struct {
	CarID          string    `json:"car_id"`
	StartDate      time.Time `json:"start_date"`
	EndDate        time.Time `json:"end_date"`
	TotalDays      int       `json:"total_days"`
	Currency       string    `json:"currency"`
	PricePerDay    Amount    `json:"price_per_day"`
	Subtotal       Amount    `json:"subtotal"`
	ServiceFee     Amount    `json:"service_fee"`
	Insurance      Amount    `json:"insurance"`
	Total          Amount    `json:"total"`
	ServiceFeeRate float64   `json:"service_fee_rate"`
	InsuranceRate  float64   `json:"insurance_rate"`
	FlatInsurance  bool      `json:"flat_insurance"`
	Available      bool      `json:"available"`
}

func MapQuote(q pricing.Quote, available bool) Quote {
	return Quote{
		CarID:          q.CarID,
		StartDate:      q.Range.Start,
		EndDate:        q.Range.End,
		TotalDays:      q.TotalDays,
		Currency:       q.Total.Currency,
		PricePerDay:    MapAmount(q.PricePerDay),
		Subtotal:       MapAmount(q.Subtotal),
		ServiceFee:     MapAmount(q.ServiceFee),
		Insurance:      MapAmount(q.Insurance),
		Total:          MapAmount(q.Total),
		ServiceFeeRate: q.ServiceFeeRate.Fraction(),
		InsuranceRate:  q.InsuranceRate.Fraction(),
		FlatInsurance:  q.FlatInsurance,
		Available:      available,
	}
}
