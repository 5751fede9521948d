package pricing

import (
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"carshare/internal/domain/shared/daterange"
	"carshare/internal/domain/shared/money"
)

const DefaultCurrency = "USD"

// QuoteRequest carries the raw inputs of a quote. Prices and dates stay as
// strings so that parsing failures surface in validation order.
type QuoteRequest struct {
	CarID       string
	PricePerDay string
	StartDate   string
	EndDate     string

	// Optional overrides. Nil falls back to the calculator rates.
	ServiceFeeRate *float64
	InsuranceRate  *float64
	// Insurance is a flat amount used instead of the insurance rate when set.
	Insurance string
}

// Quote is the priced, not yet committed, breakdown of a rental.
type Quote struct {
	CarID          string
	Range          daterange.DateRange
	TotalDays      int
	PricePerDay    money.Money
	Subtotal       money.Money
	ServiceFee     money.Money
	Insurance      money.Money
	Total          money.Money
	ServiceFeeRate Rate
	InsuranceRate  Rate
	FlatInsurance  bool
}

type Calculator struct {
	Rates    Rates
	Currency string
}

func NewCalculator(rates Rates, currency string) Calculator {
	return Calculator{Rates: rates, Currency: currency}
}

// Compute validates req and prices it. now only feeds the past-start check,
// which compares UTC calendar dates.
func (c Calculator) Compute(req QuoteRequest, now time.Time) (Quote, error) {
	currency, err := c.validCurrency()
	if err != nil {
		return Quote{}, err
	}
	start, err := daterange.ParseDate(req.StartDate)
	if err != nil {
		return Quote{}, invalid(KindInvalidDate, "start_date", "start date must be YYYY-MM-DD or RFC 3339")
	}
	end, err := daterange.ParseDate(req.EndDate)
	if err != nil {
		return Quote{}, invalid(KindInvalidDate, "end_date", "end date must be YYYY-MM-DD or RFC 3339")
	}
	if daterange.TruncateDay(start).Before(daterange.TruncateDay(now)) {
		return Quote{}, invalid(KindStartDateInPast, "start_date", "start date is in the past")
	}
	dr, err := daterange.New(start, end)
	if err != nil {
		return Quote{}, invalid(KindInvalidRange, "end_date", "end date must be after start date")
	}

	price, err := money.ParseDecimal(req.PricePerDay, currency)
	if err != nil || price.Amount <= 0 {
		return Quote{}, invalid(KindInvalidRate, "price_per_day", "price per day must be a positive number")
	}
	rates := c.Rates
	if req.ServiceFeeRate != nil {
		r, err := RateFromFraction(*req.ServiceFeeRate)
		if err != nil {
			return Quote{}, invalid(KindInvalidRate, "service_fee_rate", "service fee rate must be between 0 and 1")
		}
		rates.ServiceFee = r
	}
	if req.InsuranceRate != nil {
		r, err := RateFromFraction(*req.InsuranceRate)
		if err != nil {
			return Quote{}, invalid(KindInvalidRate, "insurance_rate", "insurance rate must be between 0 and 1")
		}
		rates.Insurance = r
	}
	if err := rates.Validate(); err != nil {
		return Quote{}, invalid(KindInvalidRate, "rates", err.Error())
	}
	var flat *money.Money
	if strings.TrimSpace(req.Insurance) != "" {
		amount, err := money.ParseDecimal(req.Insurance, currency)
		if err != nil || amount.IsNegative() {
			return Quote{}, invalid(KindInvalidRate, "insurance", "insurance must be a non-negative number")
		}
		flat = &amount
	}

	q, err := Price(price, dr, rates, flat)
	if err != nil {
		return Quote{}, invalid(KindInvalidRate, "price_per_day", "price is too large for the rental period")
	}
	q.CarID = req.CarID
	return q, nil
}

func (c Calculator) currency() string {
	if c.Currency == "" {
		return DefaultCurrency
	}
	return strings.ToUpper(c.Currency)
}

// Validate reports a misconfigured currency. It is not a request error and
// carries no Kind.
func (c Calculator) Validate() error {
	_, err := c.validCurrency()
	return err
}

func (c Calculator) validCurrency() (string, error) {
	currency := c.currency()
	if _, err := money.New(0, currency); err != nil {
		return "", errors.Wrapf(err, "pricing: calculator currency %q", currency)
	}
	return currency, nil
}

// Price composes an already validated quote. total is the exact sum of its
// rounded parts. It fails with money.ErrOverflow when an amount does not fit
// in int64 cents.
func Price(pricePerDay money.Money, dr daterange.DateRange, rates Rates, flatInsurance *money.Money) (Quote, error) {
	days := dr.Days()
	subtotal, err := pricePerDay.Multiply(int64(days))
	if err != nil {
		return Quote{}, err
	}
	serviceFee, err := subtotal.ApplyRate(int64(rates.ServiceFee))
	if err != nil {
		return Quote{}, err
	}
	insurance, err := subtotal.ApplyRate(int64(rates.Insurance))
	if err != nil {
		return Quote{}, err
	}
	if flatInsurance != nil {
		insurance = money.Money{Amount: flatInsurance.Amount, Currency: subtotal.Currency}
		rates.Insurance = 0
	}
	total, err := subtotal.Add(serviceFee)
	if err != nil {
		return Quote{}, err
	}
	if total, err = total.Add(insurance); err != nil {
		return Quote{}, err
	}
	return Quote{
		Range:          dr,
		TotalDays:      days,
		PricePerDay:    pricePerDay,
		Subtotal:       subtotal,
		ServiceFee:     serviceFee,
		Insurance:      insurance,
		Total:          total,
		ServiceFeeRate: rates.ServiceFee,
		InsuranceRate:  rates.Insurance,
		FlatInsurance:  flatInsurance != nil,
	}, nil
}
