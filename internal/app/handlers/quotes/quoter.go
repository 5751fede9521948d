package quotes

import (
	"carshare/internal/app/policies"
	"carshare/internal/domain/cars"
	"carshare/internal/domain/membership"
	"carshare/internal/domain/pricing"
)

// Quoter prices a rental of a specific car for a renter's membership tier.
type Quoter struct {
	Rates policies.RatesPolicy
	Clock policies.Clock
}

// Overrides are caller-supplied rates; nil fields use the tier rates.
type Overrides struct {
	ServiceFeeRate *float64
	InsuranceRate  *float64
}

func (q Quoter) Quote(car *cars.Car, startDate, endDate string, tier membership.Tier, overrides Overrides) (pricing.Quote, error) {
	rates := pricing.DefaultRates
	if q.Rates != nil {
		rates = q.Rates.RatesFor(tier)
	}
	req := pricing.QuoteRequest{
		CarID:          string(car.ID),
		PricePerDay:    car.PricePerDay.Decimal(),
		StartDate:      startDate,
		EndDate:        endDate,
		ServiceFeeRate: overrides.ServiceFeeRate,
		InsuranceRate:  overrides.InsuranceRate,
	}
	if car.Insurance != nil {
		req.Insurance = car.Insurance.Decimal()
	}
	calc := pricing.NewCalculator(rates, car.PricePerDay.Currency)
	return calc.Compute(req, q.Clock.Now())
}
