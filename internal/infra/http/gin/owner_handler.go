package ginserver

import (
	"log/slog"
	"net/http"

	"github.com/cockroachdb/errors"
	gin "github.com/gin-gonic/gin"

	"carshare/internal/app/commands"
	"carshare/internal/app/dto"
	bookingapp "carshare/internal/app/handlers/booking"
	carsapp "carshare/internal/app/handlers/cars"
	"carshare/internal/app/queries"
)

const photoFormField = "photo"

// OwnerHandler serves /owner routes: the caller's cars, their calendars and
// the bookings made on them.
type OwnerHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type carRequest struct {
	Make               string       `json:"make"`
	Model              string       `json:"model"`
	Year               int          `json:"year"`
	Description        string       `json:"description"`
	Location           dto.Location `json:"location"`
	Fuel               string       `json:"fuel"`
	Transmission       string       `json:"transmission"`
	Seats              int          `json:"seats"`
	PricePerDay        decimal      `json:"price_per_day"`
	Currency           string       `json:"currency"`
	Insurance          decimal      `json:"insurance"`
	CancellationPolicy string       `json:"cancellation_policy"`
	Features           []string     `json:"features"`
}

func (r carRequest) input() carsapp.CarInput {
	return carsapp.CarInput{
		Make:               r.Make,
		Model:              r.Model,
		Year:               r.Year,
		Description:        r.Description,
		Location:           r.Location,
		Fuel:               r.Fuel,
		Transmission:       r.Transmission,
		Seats:              r.Seats,
		PricePerDay:        string(r.PricePerDay),
		Currency:           r.Currency,
		Insurance:          string(r.Insurance),
		CancellationPolicy: r.CancellationPolicy,
		Features:           r.Features,
	}
}

type blockRequest struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Reference string `json:"reference"`
}

func (h OwnerHandler) ListCars(c *gin.Context) {
	owner, ok := requirePrincipal(c)
	if !ok {
		return
	}
	q := carsapp.ListOwnerCarsQuery{OwnerID: owner.UserID}
	var err error
	if q.Limit, err = queryInt(c, "limit"); err != nil {
		writeError(c, h.Logger, err)
		return
	}
	if q.Offset, err = queryInt(c, "offset"); err != nil {
		writeError(c, h.Logger, err)
		return
	}
	result, err := queries.Ask[carsapp.ListOwnerCarsQuery, dto.CarCatalog](c.Request.Context(), h.Queries, q)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h OwnerHandler) CreateCar(c *gin.Context) {
	owner, ok := requirePrincipal(c)
	if !ok {
		return
	}
	var req carRequest
	if err := decodeStrict(c, &req); err != nil {
		writeError(c, h.Logger, err)
		return
	}
	cmd := carsapp.CreateCarCommand{OwnerID: owner.UserID, Input: req.input(), IdempotencyKeyV: idempotencyKey(c, owner.UserID)}
	result, err := commands.Dispatch[carsapp.CreateCarCommand, *dto.Car](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h OwnerHandler) UpdateCar(c *gin.Context) {
	owner, ok := requirePrincipal(c)
	if !ok {
		return
	}
	var req carRequest
	if err := decodeStrict(c, &req); err != nil {
		writeError(c, h.Logger, err)
		return
	}
	cmd := carsapp.UpdateCarCommand{CarID: c.Param("id"), OwnerID: owner.UserID, Input: req.input()}
	send[dto.Car](c, h.Commands, h.Logger, http.StatusOK, cmd)
}

func (h OwnerHandler) PublishCar(c *gin.Context) {
	owner, ok := requirePrincipal(c)
	if !ok {
		return
	}
	cmd := carsapp.PublishCarCommand{CarID: c.Param("id"), OwnerID: owner.UserID}
	send[dto.Car](c, h.Commands, h.Logger, http.StatusOK, cmd)
}

func (h OwnerHandler) UnpublishCar(c *gin.Context) {
	owner, ok := requirePrincipal(c)
	if !ok {
		return
	}
	cmd := carsapp.UnpublishCarCommand{CarID: c.Param("id"), OwnerID: owner.UserID}
	send[dto.Car](c, h.Commands, h.Logger, http.StatusOK, cmd)
}

// UploadPhoto takes a multipart form with the image in the "photo" field.
func (h OwnerHandler) UploadPhoto(c *gin.Context) {
	owner, ok := requirePrincipal(c)
	if !ok {
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, carsapp.MaxPhotoSize+(1<<20))
	header, err := c.FormFile(photoFormField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(c, h.Logger, carsapp.ErrPhotoTooLarge)
			return
		}
		writeError(c, h.Logger, errors.Mark(errors.Wrap(err, "read photo"), carsapp.ErrPhotoRequired))
		return
	}
	file, err := header.Open()
	if err != nil {
		writeError(c, h.Logger, errors.Wrap(err, "open photo"))
		return
	}
	defer file.Close()

	cmd := carsapp.UploadCarPhotoCommand{
		CarID:       c.Param("id"),
		OwnerID:     owner.UserID,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	}
	send[dto.Car](c, h.Commands, h.Logger, http.StatusCreated, cmd)
}

func (h OwnerHandler) BlockDates(c *gin.Context) {
	owner, ok := requirePrincipal(c)
	if !ok {
		return
	}
	var req blockRequest
	if err := decodeStrict(c, &req); err != nil {
		writeError(c, h.Logger, err)
		return
	}
	cmd := carsapp.BlockCalendarCommand{
		CarID:     c.Param("id"),
		OwnerID:   owner.UserID,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Reference: req.Reference,
	}
	send[dto.Calendar](c, h.Commands, h.Logger, http.StatusOK, cmd)
}

func (h OwnerHandler) UnblockDates(c *gin.Context) {
	owner, ok := requirePrincipal(c)
	if !ok {
		return
	}
	cmd := carsapp.UnblockCalendarCommand{CarID: c.Param("id"), OwnerID: owner.UserID, Reference: c.Param("reference")}
	send[dto.Calendar](c, h.Commands, h.Logger, http.StatusOK, cmd)
}

func (h OwnerHandler) ListBookings(c *gin.Context) {
	owner, ok := requirePrincipal(c)
	if !ok {
		return
	}
	q := bookingapp.ListOwnerBookingsQuery{OwnerID: owner.UserID, CarID: c.Query("car_id"), Status: c.Query("status")}
	ask[dto.BookingCollection](c, h.Queries, h.Logger, http.StatusOK, q)
}

func (h OwnerHandler) ConfirmBooking(c *gin.Context) {
	owner, ok := requirePrincipal(c)
	if !ok {
		return
	}
	cmd := bookingapp.ConfirmOwnerBookingCommand{BookingID: c.Param("id"), OwnerID: owner.UserID}
	send[dto.Booking](c, h.Commands, h.Logger, http.StatusOK, cmd)
}

func (h OwnerHandler) DeclineBooking(c *gin.Context) {
	owner, ok := requirePrincipal(c)
	if !ok {
		return
	}
	var req reasonRequest
	if err := decodeOptional(c, &req); err != nil {
		writeError(c, h.Logger, err)
		return
	}
	cmd := bookingapp.DeclineOwnerBookingCommand{BookingID: c.Param("id"), OwnerID: owner.UserID, Reason: req.Reason}
	send[dto.Booking](c, h.Commands, h.Logger, http.StatusOK, cmd)
}

// send dispatches cmd and writes the result with status.
func send[R any, C commands.Command](c *gin.Context, bus commands.Bus, logger *slog.Logger, status int, cmd C) {
	result, err := commands.Dispatch[C, R](c.Request.Context(), bus, cmd)
	if err != nil {
		writeError(c, logger, err)
		return
	}
	c.JSON(status, result)
}

func ask[R any, Q queries.Query](c *gin.Context, bus queries.Bus, logger *slog.Logger, status int, q Q) {
	result, err := queries.Ask[Q, R](c.Request.Context(), bus, q)
	if err != nil {
		writeError(c, logger, err)
		return
	}
	c.JSON(status, result)
}
