package mongo

import (
	"time"

	"carshare/internal/domain/pricing"
	"carshare/internal/domain/shared/daterange"
	"carshare/internal/domain/shared/money"
)

type moneyDocument struct {
	Amount   int64  `bson:"amount"`
	Currency string `bson:"currency"`
}

func newMoneyDocument(m money.Money) moneyDocument {
	return moneyDocument{Amount: m.Amount, Currency: m.Currency}
}

func (d moneyDocument) toMoney() money.Money {
	return money.Money{Amount: d.Amount, Currency: d.Currency}
}

type rangeDocument struct {
	Start int64 `bson:"start"`
	End   int64 `bson:"end"`
}

func newRangeDocument(r daterange.DateRange) rangeDocument {
	return rangeDocument{Start: r.Start.UnixMilli(), End: r.End.UnixMilli()}
}

func (d rangeDocument) toRange() daterange.DateRange {
	return daterange.DateRange{Start: timestampToTime(d.Start), End: timestampToTime(d.End)}
}

type quoteDocument struct {
	CarID          string        `bson:"car_id"`
	Range          rangeDocument `bson:"range"`
	TotalDays      int           `bson:"total_days"`
	PricePerDay    moneyDocument `bson:"price_per_day"`
	Subtotal       moneyDocument `bson:"subtotal"`
	ServiceFee     moneyDocument `bson:"service_fee"`
	Insurance      moneyDocument `bson:"insurance"`
	Total          moneyDocument `bson:"total"`
	ServiceFeeRate int64         `bson:"service_fee_rate_bp"`
	InsuranceRate  int64         `bson:"insurance_rate_bp"`
	FlatInsurance  bool          `bson:"flat_insurance"`
}

func newQuoteDocument(q pricing.Quote) quoteDocument {
	return quoteDocument{
		CarID:          q.CarID,
		Range:          newRangeDocument(q.Range),
		TotalDays:      q.TotalDays,
		PricePerDay:    newMoneyDocument(q.PricePerDay),
		Subtotal:       newMoneyDocument(q.Subtotal),
		ServiceFee:     newMoneyDocument(q.ServiceFee),
		Insurance:      newMoneyDocument(q.Insurance),
		Total:          newMoneyDocument(q.Total),
		ServiceFeeRate: int64(q.ServiceFeeRate),
		InsuranceRate:  int64(q.InsuranceRate),
		FlatInsurance:  q.FlatInsurance,
	}
}

func (d quoteDocument) toQuote() pricing.Quote {
	return pricing.Quote{
		CarID:          d.CarID,
		Range:          d.Range.toRange(),
		TotalDays:      d.TotalDays,
		PricePerDay:    d.PricePerDay.toMoney(),
		Subtotal:       d.Subtotal.toMoney(),
		ServiceFee:     d.ServiceFee.toMoney(),
		Insurance:      d.Insurance.toMoney(),
		Total:          d.Total.toMoney(),
		ServiceFeeRate: pricing.Rate(d.ServiceFeeRate),
		InsuranceRate:  pricing.Rate(d.InsuranceRate),
		FlatInsurance:  d.FlatInsurance,
	}
}

func timestampToTime(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

func timeToTimestamp(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}
