package reference

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/dental/dental/internal/platform/apperr"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the read-only catalogues. static is expected to
// carry the ETag middleware.
func (h *Handler) RegisterRoutes(static *echo.Group) {
	static.GET("/conditions", h.ListConditions)
	static.GET("/conditions/:id", h.GetCondition)
	static.GET("/procedures", h.ListProcedures)
	static.GET("/procedures/:id", h.GetProcedure)
}

func (h *Handler) ListConditions(c echo.Context) error {
	conds, err := h.svc.ListConditions(c.Request().Context())
	if err != nil {
		return apperr.ToHTTP(err)
	}
	if conds == nil {
		conds = []*Condition{}
	}
	return c.JSON(http.StatusOK, conds)
}

func (h *Handler) GetCondition(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return apperr.ToHTTP(apperr.Invalid("invalid condition id"))
	}
	cond, err := h.svc.GetCondition(c.Request().Context(), id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, cond)
}

func (h *Handler) ListProcedures(c echo.Context) error {
	procs, err := h.svc.ListProcedures(c.Request().Context())
	if err != nil {
		return apperr.ToHTTP(err)
	}
	if procs == nil {
		procs = []*Procedure{}
	}
	return c.JSON(http.StatusOK, procs)
}

func (h *Handler) GetProcedure(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return apperr.ToHTTP(apperr.Invalid("invalid procedure id"))
	}
	proc, err := h.svc.GetProcedure(c.Request().Context(), id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, proc)
}
