package bloodbank

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sanjeevni/portal/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group, mw ...echo.MiddlewareFunc) {
	api.GET("/blood/availability", h.Availability)

	g := api.Group("/blood/requests", mw...)
	g.GET("", h.ListRequests)
	g.POST("", h.Submit)
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrMissingFields), errors.Is(err, ErrInvalidBloodType), errors.Is(err, ErrInvalidQuantity):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

func (h *Handler) Availability(c echo.Context) error {
	stock, err := h.svc.Availability(c.QueryParam("type"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, stock)
}

func (h *Handler) ListRequests(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, err := h.svc.List(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.Page(items, pg))
}

func (h *Handler) Submit(c echo.Context) error {
	var in SubmitRequest
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	req, err := h.svc.Submit(c.Request().Context(), in)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"request": req,
		"message": "Blood request submitted successfully! We will contact you shortly.",
	})
}
