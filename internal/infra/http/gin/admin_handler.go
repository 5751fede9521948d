package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"carshare/internal/app/commands"
	"carshare/internal/app/dto"
	bookingapp "carshare/internal/app/handlers/booking"
	carsapp "carshare/internal/app/handlers/cars"
	"carshare/internal/app/queries"
)

type AdminHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

func (h AdminHandler) SuspendCar(c *gin.Context) {
	if _, ok := requirePrincipal(c); !ok {
		return
	}
	var req reasonRequest
	if err := decodeOptional(c, &req); err != nil {
		writeError(c, h.Logger, err)
		return
	}
	cmd := carsapp.SuspendCarCommand{CarID: c.Param("id"), Reason: req.Reason}
	send[dto.Car](c, h.Commands, h.Logger, http.StatusOK, cmd)
}

func (h AdminHandler) ListBookings(c *gin.Context) {
	if _, ok := requirePrincipal(c); !ok {
		return
	}
	q := bookingapp.ListAllBookingsQuery{CarID: c.Query("car_id"), Status: c.Query("status")}
	ask[dto.BookingCollection](c, h.Queries, h.Logger, http.StatusOK, q)
}
