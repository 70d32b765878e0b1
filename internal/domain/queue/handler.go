package queue

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type Handler struct {
	sim *Simulator
}

func NewHandler(sim *Simulator) *Handler {
	return &Handler{sim: sim}
}

func (h *Handler) RegisterRoutes(api *echo.Group, mw ...echo.MiddlewareFunc) {
	g := api.Group("/queue", mw...)
	g.GET("", h.List)
	g.POST("/reload", h.Reload)
}

func (h *Handler) List(c echo.Context) error {
	entries, err := h.sim.Entries(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, entries)
}

func (h *Handler) Reload(c echo.Context) error {
	entries, err := h.sim.Load(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, entries)
}
