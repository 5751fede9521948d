package ginserver

import (
	"log/slog"
	"net/http"

	"github.com/cockroachdb/errors"
	gin "github.com/gin-gonic/gin"

	"carshare/internal/app/auth"
	bookingapp "carshare/internal/app/handlers/booking"
	carsapp "carshare/internal/app/handlers/cars"
	favoritesapp "carshare/internal/app/handlers/favorites"
	"carshare/internal/app/handlers/quotes"
	"carshare/internal/app/middleware"
	"carshare/internal/domain/availability"
	"carshare/internal/domain/booking"
	"carshare/internal/domain/cars"
	"carshare/internal/domain/favorites"
	"carshare/internal/domain/pricing"
	"carshare/internal/domain/shared/daterange"
	"carshare/internal/domain/shared/money"
)

// ErrMalformedRequest covers undecodable bodies and query parameters.
var ErrMalformedRequest = errors.New("http: malformed request")

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

const (
	codeValidation   = "ValidationFailed"
	codeConflict     = "Conflict"
	codeNotFound     = "NotFound"
	codeInternal     = "Internal"
	codeUnauthorized = "Unauthenticated"
	codeForbidden    = "Forbidden"
)

var badRequest = []error{
	ErrMalformedRequest,
	money.ErrInvalidAmount,
	money.ErrInvalidCurrency,
	cars.ErrNameRequired,
	cars.ErrPriceRequired,
	cars.ErrInsuranceNegative,
	cars.ErrInvalidSeats,
	cars.ErrInvalidYear,
	cars.ErrInvalidFuel,
	cars.ErrInvalidTransmission,
	cars.ErrLocationRequired,
	carsapp.ErrCarIDRequired,
	carsapp.ErrPhotoRequired,
	carsapp.ErrPhotoType,
	booking.ErrRenterRequired,
	booking.ErrOwnBooking,
	booking.ErrTotalRequired,
	bookingapp.ErrBookingIDRequired,
	bookingapp.ErrInvalidStatus,
	bookingapp.ErrInvalidTTL,
	quotes.ErrCarRequired,
	favorites.ErrUserRequired,
	favoritesapp.ErrCarIDRequired,
}

var conflicts = []error{
	cars.ErrConcurrentUpdate,
	cars.ErrInvalidState,
	availability.ErrConcurrentUpdate,
	booking.ErrConcurrentUpdate,
	booking.ErrInvalidState,
	carsapp.ErrCarExists,
	middleware.ErrIdempotencyKeyReused,
}

// classify maps an error to its status and code. Codes of quote validation
// failures carry the rejection kind.
func classify(err error) (int, string) {
	if kind, ok := pricing.KindOf(err); ok {
		return http.StatusBadRequest, string(kind)
	}
	switch {
	case errors.Is(err, daterange.ErrInvalidDate):
		return http.StatusBadRequest, string(pricing.KindInvalidDate)
	case errors.Is(err, daterange.ErrInvalidRange):
		return http.StatusBadRequest, string(pricing.KindInvalidRange)
	case errors.Is(err, availability.ErrConflict):
		return http.StatusConflict, "AvailabilityConflict"
	case errors.Is(err, cars.ErrNotFound), errors.Is(err, booking.ErrNotFound), errors.Is(err, availability.ErrRangeNotFound):
		return http.StatusNotFound, codeNotFound
	case errors.Is(err, auth.ErrUnauthenticated):
		return http.StatusUnauthorized, codeUnauthorized
	case errors.Is(err, auth.ErrForbidden):
		return http.StatusForbidden, codeForbidden
	case errors.Is(err, carsapp.ErrPhotoTooLarge):
		return http.StatusRequestEntityTooLarge, codeValidation
	case errors.Is(err, carsapp.ErrStorageNotEnabled):
		return http.StatusServiceUnavailable, "Unavailable"
	}
	for _, target := range badRequest {
		if errors.Is(err, target) {
			return http.StatusBadRequest, codeValidation
		}
	}
	for _, target := range conflicts {
		if errors.Is(err, target) {
			return http.StatusConflict, codeConflict
		}
	}
	return http.StatusInternalServerError, codeInternal
}

// writeError is the only place errors become responses. Internal failures
// are logged and answered without detail.
func writeError(c *gin.Context, logger *slog.Logger, err error) {
	status, code := classify(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		if logger != nil {
			logger.ErrorContext(c.Request.Context(), "request failed",
				slog.String("path", c.FullPath()),
				slog.Int("status", status),
				slog.Any("err", err))
		}
		if status == http.StatusInternalServerError {
			msg = "internal error"
		}
	}
	c.AbortWithStatusJSON(status, errorBody{Error: msg, Code: code})
}
