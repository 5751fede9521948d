package ginserver

import (
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"carshare/internal/app/commands"
	"carshare/internal/app/dto"
	bookingapp "carshare/internal/app/handlers/booking"
	"carshare/internal/app/queries"
)

const idempotencyHeader = "Idempotency-Key"

// idempotencyKey scopes the client key to the caller so two users cannot
// replay each other's results.
func idempotencyKey(c *gin.Context, userID string) string {
	key := strings.TrimSpace(c.GetHeader(idempotencyHeader))
	if key == "" {
		return ""
	}
	return userID + ":" + key
}

// BookingHandler serves the renter side of bookings.
type BookingHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

// Rates are never taken from the client here; an unknown field such as
// service_fee_rate is rejected.
type createBookingRequest struct {
	CarID     string `json:"car_id"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Note      string `json:"note"`
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

func (h BookingHandler) Create(c *gin.Context) {
	renter, ok := requirePrincipal(c)
	if !ok {
		return
	}
	var req createBookingRequest
	if err := decodeStrict(c, &req); err != nil {
		writeError(c, h.Logger, err)
		return
	}
	cmd := bookingapp.RequestBookingCommand{
		CarID:           req.CarID,
		RenterID:        renter.UserID,
		RenterTier:      renter.Tier,
		StartDate:       req.StartDate,
		EndDate:         req.EndDate,
		Note:            req.Note,
		IdempotencyKeyV: idempotencyKey(c, renter.UserID),
	}
	result, err := commands.Dispatch[bookingapp.RequestBookingCommand, *dto.Booking](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h BookingHandler) Cancel(c *gin.Context) {
	renter, ok := requirePrincipal(c)
	if !ok {
		return
	}
	var req reasonRequest
	if err := decodeOptional(c, &req); err != nil {
		writeError(c, h.Logger, err)
		return
	}
	cmd := bookingapp.CancelBookingCommand{BookingID: c.Param("id"), RenterID: renter.UserID, Reason: req.Reason}
	result, err := commands.Dispatch[bookingapp.CancelBookingCommand, dto.Cancellation](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) Mine(c *gin.Context) {
	renter, ok := requirePrincipal(c)
	if !ok {
		return
	}
	q := bookingapp.ListRenterBookingsQuery{RenterID: renter.UserID, Status: c.Query("status")}
	result, err := queries.Ask[bookingapp.ListRenterBookingsQuery, dto.BookingCollection](c.Request.Context(), h.Queries, q)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
