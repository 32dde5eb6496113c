package patient

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/dental/dental/internal/platform/apperr"
	"github.com/dental/dental/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/patients", h.ListPatients)
	api.POST("/patients", h.CreatePatient)
	api.GET("/patients/:id", h.GetPatient)
	api.PUT("/patients/:id", h.UpdatePatient)
}

// ParseID reads a patient uuid from the named path parameter.
func ParseID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, apperr.Invalid("invalid patient id %q", c.Param(name))
	}
	return id, nil
}

func (h *Handler) ListPatients(c echo.Context) error {
	pg := pagination.FromContext(c)
	if c.QueryParam("limit") == "" {
		pg.Limit = DefaultSearchLimit
	}
	items, total, err := h.svc.Find(c.Request().Context(), c.QueryParam("search"), pg.Limit, pg.Offset)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	if items == nil {
		items = []*Patient{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg, c.Request().URL))
}

func (h *Handler) GetPatient(c echo.Context) error {
	id, err := ParseID(c, "id")
	if err != nil {
		return apperr.ToHTTP(err)
	}
	p, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) CreatePatient(c echo.Context) error {
	var p Patient
	if err := c.Bind(&p); err != nil {
		return apperr.ToHTTP(apperr.Invalid("malformed patient body: %v", err))
	}
	p.ID = uuid.Nil
	if err := h.svc.Save(c.Request().Context(), &p); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) UpdatePatient(c echo.Context) error {
	id, err := ParseID(c, "id")
	if err != nil {
		return apperr.ToHTTP(err)
	}
	var p Patient
	if err := c.Bind(&p); err != nil {
		return apperr.ToHTTP(apperr.Invalid("malformed patient body: %v", err))
	}
	p.ID = id
	if err := h.svc.Save(c.Request().Context(), &p); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, p)
}
