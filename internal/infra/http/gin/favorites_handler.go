package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"carshare/internal/app/commands"
	"carshare/internal/app/dto"
	favoritesapp "carshare/internal/app/handlers/favorites"
	"carshare/internal/app/queries"
)

type FavoritesHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

func (h FavoritesHandler) List(c *gin.Context) {
	user, ok := requirePrincipal(c)
	if !ok {
		return
	}
	result, err := queries.Ask[favoritesapp.ListFavoritesQuery, dto.CarCatalog](c.Request.Context(), h.Queries, favoritesapp.ListFavoritesQuery{UserID: user.UserID})
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h FavoritesHandler) Add(c *gin.Context) {
	user, ok := requirePrincipal(c)
	if !ok {
		return
	}
	cmd := favoritesapp.AddFavoriteCommand{UserID: user.UserID, CarID: c.Param("car_id")}
	result, err := commands.Dispatch[favoritesapp.AddFavoriteCommand, dto.CarSummary](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h FavoritesHandler) Remove(c *gin.Context) {
	user, ok := requirePrincipal(c)
	if !ok {
		return
	}
	cmd := favoritesapp.RemoveFavoriteCommand{UserID: user.UserID, CarID: c.Param("car_id")}
	if _, err := commands.Dispatch[favoritesapp.RemoveFavoriteCommand, struct{}](c.Request.Context(), h.Commands, cmd); err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}
