package booking

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

// RegisterRoutes mounts the catalog publicly and everything that touches a
// patient's records behind mw.
func (h *Handler) RegisterRoutes(api *echo.Group, mw ...echo.MiddlewareFunc) {
	api.GET("/booking/catalog", h.GetCatalog)
	api.GET("/booking/doctors", h.ListDoctors)

	flows := api.Group("/booking/flows", mw...)
	flows.POST("", h.StartFlow)
	flows.GET("/:id", h.GetFlow)
	flows.PUT("/:id/selection", h.Select)
	flows.POST("/:id/next", h.Next)
	flows.POST("/:id/back", h.Back)
	flows.POST("/:id/confirm", h.Confirm)

	appts := api.Group("/appointments", mw...)
	appts.POST("", h.Book)
	appts.GET("", h.ListAppointments)
}

var validationErrors = []error{
	ErrStepIncomplete, ErrFirstStep, ErrLastStep, ErrIncompleteBooking,
	ErrUnknownDepartment, ErrUnknownSpecialist, ErrInvalidDate, ErrPastDate,
	ErrUnavailableDoctor, ErrUnavailableSlot, ErrSelectionRequired,
}

func httpError(err error) error {
	if errors.Is(err, ErrFlowNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	if errors.Is(err, ErrFlowBusy) {
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	for _, sentinel := range validationErrors {
		if errors.Is(err, sentinel) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

func (h *Handler) GetCatalog(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.Catalog())
}

func (h *Handler) ListDoctors(c echo.Context) error {
	dept := c.QueryParam("department")
	if dept != "" {
		if _, ok := h.svc.Catalog().Department(dept); !ok {
			return echo.NewHTTPError(http.StatusBadRequest, ErrUnknownDepartment.Error())
		}
	}
	level := c.QueryParam("specialist")
	if level != "" && !h.svc.Catalog().HasLevel(level) {
		return echo.NewHTTPError(http.StatusBadRequest, ErrUnknownSpecialist.Error())
	}
	return c.JSON(http.StatusOK, h.svc.Catalog().DoctorsFor(dept, level))
}

func (h *Handler) StartFlow(c echo.Context) error {
	return c.JSON(http.StatusCreated, h.svc.StartFlow(c.Request().Context()))
}

func (h *Handler) GetFlow(c echo.Context) error {
	state, err := h.svc.GetFlow(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, state)
}

type selectRequest struct {
	Value string `json:"value"`
}

func (h *Handler) Select(c echo.Context) error {
	var req selectRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	state, err := h.svc.Select(c.Request().Context(), c.Param("id"), req.Value)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, state)
}

func (h *Handler) Next(c echo.Context) error {
	state, err := h.svc.Next(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, state)
}

func (h *Handler) Back(c echo.Context) error {
	state, err := h.svc.Back(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, state)
}

func (h *Handler) Confirm(c echo.Context) error {
	conf, err := h.svc.Confirm(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, conf)
}

func (h *Handler) Book(c echo.Context) error {
	var sel Selection
	if err := c.Bind(&sel); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	conf, err := h.svc.Book(c.Request().Context(), sel)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, conf)
}

func (h *Handler) ListAppointments(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, err := h.svc.ListAppointments(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.Page(items, pg))
}
