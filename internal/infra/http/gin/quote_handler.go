package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"carshare/internal/app/dto"
	"carshare/internal/app/handlers/quotes"
	"carshare/internal/app/queries"
)

type QuoteHandler struct {
	Queries queries.Bus
	Logger  *slog.Logger
}

type quoteRequest struct {
	CarID          string   `json:"car_id"`
	StartDate      string   `json:"start_date"`
	EndDate        string   `json:"end_date"`
	ServiceFeeRate *float64 `json:"service_fee_rate"`
	InsuranceRate  *float64 `json:"insurance_rate"`
}

// Preview prices a rental without reserving it. Anonymous callers get the
// default rates.
func (h QuoteHandler) Preview(c *gin.Context) {
	var req quoteRequest
	if err := decodeStrict(c, &req); err != nil {
		writeError(c, h.Logger, err)
		return
	}
	q := quotes.GetQuoteQuery{
		CarID:          req.CarID,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		ServiceFeeRate: req.ServiceFeeRate,
		InsuranceRate:  req.InsuranceRate,
	}
	if p, ok := currentPrincipal(c); ok {
		q.RenterTier = p.Tier
	}
	result, err := queries.Ask[quotes.GetQuoteQuery, dto.Quote](c.Request.Context(), h.Queries, q)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
