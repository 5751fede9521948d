package ginserver

import (
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"carshare/internal/infra/config"
	"carshare/internal/infra/obs"
)

type Handlers struct {
	Quotes         *QuoteHandler
	Catalog        *CatalogHandler
	Bookings       *BookingHandler
	Favorites      *FavoritesHandler
	Owner          *OwnerHandler
	Admin          *AdminHandler
	AuthMiddleware gin.HandlerFunc
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           NewRouter(cfg.CORS, obsMW, health, h),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func NewRouter(corsCfg config.CORSConfig, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.AccessLog())
	router.Use(cors.New(corsConfig(corsCfg)))
	if h.AuthMiddleware != nil {
		router.Use(h.AuthMiddleware)
	}

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	api := router.Group("/api/v1")
	if h.Catalog != nil {
		api.GET("/memberships", h.Catalog.Memberships)
		api.GET("/cars", h.Catalog.Search)
		api.GET("/cars/:id", h.Catalog.Get)
		api.GET("/cars/:id/calendar", h.Catalog.Calendar)
	}
	if h.Quotes != nil {
		api.POST("/quotes", h.Quotes.Preview)
	}
	if h.Bookings != nil {
		api.POST("/bookings", h.Bookings.Create)
		api.POST("/bookings/:id/cancel", h.Bookings.Cancel)
		api.GET("/me/bookings", h.Bookings.Mine)
	}
	if h.Favorites != nil {
		api.GET("/me/favorites", h.Favorites.List)
		api.PUT("/me/favorites/:car_id", h.Favorites.Add)
		api.DELETE("/me/favorites/:car_id", h.Favorites.Remove)
	}
	if h.Owner != nil {
		owner := api.Group("/owner")
		owner.GET("/cars", h.Owner.ListCars)
		owner.POST("/cars", h.Owner.CreateCar)
		owner.PUT("/cars/:id", h.Owner.UpdateCar)
		owner.POST("/cars/:id/publish", h.Owner.PublishCar)
		owner.POST("/cars/:id/unpublish", h.Owner.UnpublishCar)
		owner.POST("/cars/:id/photos", h.Owner.UploadPhoto)
		owner.POST("/cars/:id/blocks", h.Owner.BlockDates)
		owner.DELETE("/cars/:id/blocks/:reference", h.Owner.UnblockDates)
		owner.GET("/bookings", h.Owner.ListBookings)
		owner.POST("/bookings/:id/confirm", h.Owner.ConfirmBooking)
		owner.POST("/bookings/:id/decline", h.Owner.DeclineBooking)
	}
	if h.Admin != nil {
		admin := api.Group("/admin")
		admin.POST("/cars/:id/suspend", h.Admin.SuspendCar)
		admin.GET("/bookings", h.Admin.ListBookings)
	}
	return router
}

func corsConfig(cfg config.CORSConfig) cors.Config {
	out := cors.Config{
		AllowOrigins:  cfg.AllowOrigins,
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", idempotencyHeader},
		ExposeHeaders: []string{"Content-Length", "Content-Type", obs.RequestIDHeader},
		MaxAge:        cfg.MaxAge,
	}
	if len(cfg.AllowOrigins) == 0 || slices.Contains(cfg.AllowOrigins, "*") {
		out.AllowOrigins = nil
		out.AllowAllOrigins = true
	}
	return out
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local", "debug":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
