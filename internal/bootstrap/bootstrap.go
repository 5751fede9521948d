package bootstrap

import (
	"log/slog"

	"github.com/cockroachdb/errors"

	"carshare/internal/app/commands"
	"carshare/internal/app/dto"
	bookingapp "carshare/internal/app/handlers/booking"
	carsapp "carshare/internal/app/handlers/cars"
	favoritesapp "carshare/internal/app/handlers/favorites"
	membershipsapp "carshare/internal/app/handlers/memberships"
	quotesapp "carshare/internal/app/handlers/quotes"
	"carshare/internal/app/middleware"
	"carshare/internal/app/outbox"
	"carshare/internal/app/policies"
	"carshare/internal/app/queries"
	"carshare/internal/app/uow"
	"carshare/internal/domain/favorites"
	"carshare/internal/domain/membership"
	ginserver "carshare/internal/infra/http/gin"
)

// Deps are the adapters the application runs on. Ledger and Photos are
// optional; leave them nil rather than assigning a nil pointer.
type Deps struct {
	UoWFactory  uow.UoWFactory
	Outbox      outbox.Outbox
	Idempotency middleware.IdempotencyStore
	Favorites   favorites.Store
	Ledger      policies.ReservationLedger
	Photos      policies.PhotoStorage
	Memberships membership.Table
	Clock       policies.Clock
	Logger      *slog.Logger
}

// Application holds the buses with their middleware applied and the HTTP
// handlers bound to them.
type Application struct {
	Commands commands.Bus
	Queries  queries.Bus
	Handlers ginserver.Handlers
}

func (d Deps) validate() error {
	switch {
	case d.UoWFactory == nil:
		return errors.New("bootstrap: unit of work factory required")
	case d.Outbox == nil:
		return errors.New("bootstrap: outbox required")
	case d.Idempotency == nil:
		return errors.New("bootstrap: idempotency store required")
	case d.Favorites == nil:
		return errors.New("bootstrap: favorites store required")
	}
	return nil
}

// Build registers every handler and chains the middleware. The command
// pipeline runs logging, authorization, validation, idempotency, outbox
// flush and the transaction, in that order.
func Build(d Deps) (Application, error) {
	if err := d.validate(); err != nil {
		return Application{}, err
	}
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	encoder := outbox.JSONEventEncoder{}
	quoter := quotesapp.Quoter{Rates: d.Memberships, Clock: d.Clock}

	commandBus := commands.NewInMemoryBus()
	queryBus := queries.NewInMemoryBus()

	requestBooking := &bookingapp.RequestBookingHandler{
		UoWFactory: d.UoWFactory,
		Quoter:     quoter,
		Ledger:     d.Ledger,
		Outbox:     d.Outbox,
		Encoder:    encoder,
		Clock:      d.Clock,
		Logger:     logger,
	}
	decisions := &bookingapp.OwnerDecisionHandler{UoWFactory: d.UoWFactory, Ledger: d.Ledger, Outbox: d.Outbox, Encoder: encoder, Clock: d.Clock, Logger: logger}
	cancel := &bookingapp.CancelBookingHandler{UoWFactory: d.UoWFactory, Ledger: d.Ledger, Outbox: d.Outbox, Encoder: encoder, Clock: d.Clock, Logger: logger}
	sweep := &bookingapp.SweepHandler{UoWFactory: d.UoWFactory, Ledger: d.Ledger, Outbox: d.Outbox, Encoder: encoder, Clock: d.Clock, Logger: logger}
	owner := &carsapp.OwnerHandler{UoWFactory: d.UoWFactory, Outbox: d.Outbox, Encoder: encoder, Clock: d.Clock, Logger: logger}
	photos := &carsapp.UploadCarPhotoHandler{UoWFactory: d.UoWFactory, Storage: d.Photos, Outbox: d.Outbox, Encoder: encoder, Clock: d.Clock, Logger: logger}
	suspend := &carsapp.SuspendCarHandler{UoWFactory: d.UoWFactory, Outbox: d.Outbox, Encoder: encoder, Clock: d.Clock, Logger: logger}
	favs := &favoritesapp.Handler{Store: d.Favorites, UoWFactory: d.UoWFactory, Logger: logger}

	commands.Register[bookingapp.RequestBookingCommand, *dto.Booking](commandBus, requestBooking)
	commands.Register[bookingapp.CancelBookingCommand, dto.Cancellation](commandBus, cancel)
	commands.Register[bookingapp.ConfirmOwnerBookingCommand, dto.Booking](commandBus, commands.HandlerFunc[bookingapp.ConfirmOwnerBookingCommand, dto.Booking](decisions.Confirm))
	commands.Register[bookingapp.DeclineOwnerBookingCommand, dto.Booking](commandBus, commands.HandlerFunc[bookingapp.DeclineOwnerBookingCommand, dto.Booking](decisions.Decline))
	commands.Register[bookingapp.ExpirePendingBookingsCommand, bookingapp.SweepResult](commandBus, commands.HandlerFunc[bookingapp.ExpirePendingBookingsCommand, bookingapp.SweepResult](sweep.Expire))
	commands.Register[bookingapp.CompleteFinishedBookingsCommand, bookingapp.SweepResult](commandBus, commands.HandlerFunc[bookingapp.CompleteFinishedBookingsCommand, bookingapp.SweepResult](sweep.Complete))
	commands.Register[carsapp.CreateCarCommand, *dto.Car](commandBus, commands.HandlerFunc[carsapp.CreateCarCommand, *dto.Car](owner.Create))
	commands.Register[carsapp.UpdateCarCommand, dto.Car](commandBus, commands.HandlerFunc[carsapp.UpdateCarCommand, dto.Car](owner.Update))
	commands.Register[carsapp.PublishCarCommand, dto.Car](commandBus, commands.HandlerFunc[carsapp.PublishCarCommand, dto.Car](owner.Publish))
	commands.Register[carsapp.UnpublishCarCommand, dto.Car](commandBus, commands.HandlerFunc[carsapp.UnpublishCarCommand, dto.Car](owner.Unpublish))
	commands.Register[carsapp.BlockCalendarCommand, dto.Calendar](commandBus, commands.HandlerFunc[carsapp.BlockCalendarCommand, dto.Calendar](owner.Block))
	commands.Register[carsapp.UnblockCalendarCommand, dto.Calendar](commandBus, commands.HandlerFunc[carsapp.UnblockCalendarCommand, dto.Calendar](owner.Unblock))
	commands.Register[carsapp.UploadCarPhotoCommand, dto.Car](commandBus, photos)
	commands.Register[carsapp.SuspendCarCommand, dto.Car](commandBus, suspend)
	commands.Register[favoritesapp.AddFavoriteCommand, dto.CarSummary](commandBus, commands.HandlerFunc[favoritesapp.AddFavoriteCommand, dto.CarSummary](favs.Add))
	commands.Register[favoritesapp.RemoveFavoriteCommand, struct{}](commandBus, commands.HandlerFunc[favoritesapp.RemoveFavoriteCommand, struct{}](favs.Remove))

	lists := &bookingapp.ListBookingsHandler{UoWFactory: d.UoWFactory, Logger: logger}
	queries.Register[quotesapp.GetQuoteQuery, dto.Quote](queryBus, &quotesapp.GetQuoteHandler{UoWFactory: d.UoWFactory, Quoter: quoter, Logger: logger})
	queries.Register[carsapp.SearchCatalogQuery, dto.CarCatalog](queryBus, &carsapp.SearchCatalogHandler{UoWFactory: d.UoWFactory, Logger: logger})
	queries.Register[carsapp.GetCarQuery, dto.Car](queryBus, &carsapp.GetCarHandler{UoWFactory: d.UoWFactory})
	queries.Register[carsapp.GetCalendarQuery, dto.Calendar](queryBus, &carsapp.GetCalendarHandler{UoWFactory: d.UoWFactory})
	queries.Register[carsapp.ListOwnerCarsQuery, dto.CarCatalog](queryBus, queries.HandlerFunc[carsapp.ListOwnerCarsQuery, dto.CarCatalog](owner.List))
	queries.Register[bookingapp.ListRenterBookingsQuery, dto.BookingCollection](queryBus, queries.HandlerFunc[bookingapp.ListRenterBookingsQuery, dto.BookingCollection](lists.Renter))
	queries.Register[bookingapp.ListOwnerBookingsQuery, dto.BookingCollection](queryBus, queries.HandlerFunc[bookingapp.ListOwnerBookingsQuery, dto.BookingCollection](lists.Owner))
	queries.Register[bookingapp.ListAllBookingsQuery, dto.BookingCollection](queryBus, queries.HandlerFunc[bookingapp.ListAllBookingsQuery, dto.BookingCollection](lists.All))
	queries.Register[favoritesapp.ListFavoritesQuery, dto.CarCatalog](queryBus, queries.HandlerFunc[favoritesapp.ListFavoritesQuery, dto.CarCatalog](favs.List))
	queries.Register[membershipsapp.ListPlansQuery, dto.MembershipPlans](queryBus, &membershipsapp.Handler{Table: d.Memberships})

	cmdBus := middleware.ChainCommands(
		commandBus,
		middleware.Logging(logger),
		middleware.Authorization(),
		middleware.Validation(),
		middleware.Idempotency(d.Idempotency, nil),
		middleware.OutboxFlush(d.Outbox),
		middleware.Transaction(d.UoWFactory, nil),
	)
	qryBus := middleware.ChainQueries(
		queryBus,
		middleware.QueryAuthorization(),
		middleware.QueryValidation(),
	)

	return Application{
		Commands: cmdBus,
		Queries:  qryBus,
		Handlers: ginserver.Handlers{
			Quotes:    &ginserver.QuoteHandler{Queries: qryBus, Logger: logger},
			Catalog:   &ginserver.CatalogHandler{Queries: qryBus, Logger: logger},
			Bookings:  &ginserver.BookingHandler{Commands: cmdBus, Queries: qryBus, Logger: logger},
			Favorites: &ginserver.FavoritesHandler{Commands: cmdBus, Queries: qryBus, Logger: logger},
			Owner:     &ginserver.OwnerHandler{Commands: cmdBus, Queries: qryBus, Logger: logger},
			Admin:     &ginserver.AdminHandler{Commands: cmdBus, Queries: qryBus, Logger: logger},
		},
	}, nil
}
