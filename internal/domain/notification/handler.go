package notification

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sanjeevni/portal/pkg/pagination"
)

type Handler struct {
	emitter *Emitter
}

func NewHandler(emitter *Emitter) *Handler {
	return &Handler{emitter: emitter}
}

func (h *Handler) RegisterRoutes(api *echo.Group, mw ...echo.MiddlewareFunc) {
	g := api.Group("/notifications", mw...)
	g.GET("", h.List)
	g.DELETE("", h.Clear)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, err := h.emitter.List(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.Page(items, pg))
}

func (h *Handler) Clear(c echo.Context) error {
	if err := h.emitter.Clear(c.Request().Context()); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
