package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"carshare/internal/app/dto"
	carsapp "carshare/internal/app/handlers/cars"
	"carshare/internal/app/handlers/memberships"
	"carshare/internal/app/queries"
)

// CatalogHandler serves the public read side.
type CatalogHandler struct {
	Queries queries.Bus
	Logger  *slog.Logger
}

func (h CatalogHandler) Search(c *gin.Context) {
	q, err := searchQuery(c)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	result, err := queries.Ask[carsapp.SearchCatalogQuery, dto.CarCatalog](c.Request.Context(), h.Queries, q)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func searchQuery(c *gin.Context) (carsapp.SearchCatalogQuery, error) {
	q := carsapp.SearchCatalogQuery{
		Location:     c.Query("location"),
		Fuel:         c.Query("fuel"),
		Transmission: c.Query("transmission"),
		Sort:         c.Query("sort"),
	}
	var err error
	if q.MinPrice, err = queryCents(c, "min_price"); err != nil {
		return q, err
	}
	if q.MaxPrice, err = queryCents(c, "max_price"); err != nil {
		return q, err
	}
	if q.MinSeats, err = queryInt(c, "min_seats"); err != nil {
		return q, err
	}
	if q.Limit, err = queryInt(c, "limit"); err != nil {
		return q, err
	}
	if q.Offset, err = queryInt(c, "offset"); err != nil {
		return q, err
	}
	return q, nil
}

func (h CatalogHandler) Get(c *gin.Context) {
	q := carsapp.GetCarQuery{CarID: c.Param("id")}
	if p, ok := currentPrincipal(c); ok {
		q.ViewerID = p.UserID
	}
	result, err := queries.Ask[carsapp.GetCarQuery, dto.Car](c.Request.Context(), h.Queries, q)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h CatalogHandler) Calendar(c *gin.Context) {
	q := carsapp.GetCalendarQuery{CarID: c.Param("id"), From: c.Query("from"), To: c.Query("to")}
	result, err := queries.Ask[carsapp.GetCalendarQuery, dto.Calendar](c.Request.Context(), h.Queries, q)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h CatalogHandler) Memberships(c *gin.Context) {
	result, err := queries.Ask[memberships.ListPlansQuery, dto.MembershipPlans](c.Request.Context(), h.Queries, memberships.ListPlansQuery{})
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
