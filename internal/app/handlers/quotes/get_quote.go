package quotes

import (
	"context"
	"log/slog"
	"strings"

	"github.com/cockroachdb/errors"

	"carshare/internal/app/dto"
	"carshare/internal/app/queries"
	"carshare/internal/app/uow"
	"carshare/internal/domain/cars"
	"carshare/internal/domain/membership"
)

const getQuoteKey = "quotes.get"

var ErrCarRequired = errors.New("quotes: car id is required")

// GetQuoteQuery previews the price of renting a car. A taken date range does
// not fail the query; it is reported through Available.
type GetQuoteQuery struct {
	CarID          string
	StartDate      string
	EndDate        string
	RenterTier     string
	ServiceFeeRate *float64
	InsuranceRate  *float64
}

func (GetQuoteQuery) Key() string { return getQuoteKey }

func (q GetQuoteQuery) Validate() error {
	if strings.TrimSpace(q.CarID) == "" {
		return ErrCarRequired
	}
	return nil
}

type GetQuoteHandler struct {
	UoWFactory uow.UoWFactory
	Quoter     Quoter
	Logger     *slog.Logger
}

func (h *GetQuoteHandler) Handle(ctx context.Context, q GetQuoteQuery) (dto.Quote, error) {
	unit, execCtx, release, err := uow.BeginReadOnly(ctx, h.UoWFactory)
	if err != nil {
		return dto.Quote{}, err
	}
	defer release()

	car, err := unit.Cars().ByID(execCtx, cars.CarID(strings.TrimSpace(q.CarID)))
	if err != nil {
		return dto.Quote{}, err
	}
	if !car.Bookable() {
		return dto.Quote{}, cars.ErrNotFound
	}

	quote, err := h.Quoter.Quote(car, q.StartDate, q.EndDate, membership.ParseTier(q.RenterTier), Overrides{
		ServiceFeeRate: q.ServiceFeeRate,
		InsuranceRate:  q.InsuranceRate,
	})
	if err != nil {
		return dto.Quote{}, err
	}

	calendar, err := unit.Calendars().Calendar(execCtx, car.ID)
	if err != nil {
		return dto.Quote{}, err
	}
	available := calendar.CanReserve(quote.Range)
	if !available && h.Logger != nil {
		h.Logger.DebugContext(ctx, "quote overlaps existing booking", "car_id", car.ID, "start", quote.Range.Start, "end", quote.Range.End)
	}
	return dto.MapQuote(quote, available), nil
}

var _ queries.Handler[GetQuoteQuery, dto.Quote] = (*GetQuoteHandler)(nil)
