package treatment

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/dental/dental/internal/domain/patient"
	"github.com/dental/dental/internal/platform/apperr"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/patients/:id/treatment-plans", h.ListPlans)
	api.POST("/patients/:id/treatment-plans", h.CreatePlan)
	api.GET("/treatment-plans/:id", h.GetPlan)
	api.PATCH("/treatment-plans/:id/status", h.UpdateStatus)
	api.POST("/treatment-plans/:id/recompute", h.RecomputeTotal)
	api.GET("/treatment-plans/:id/items", h.ListItems)
	api.POST("/treatment-plans/:id/items", h.AddItem)
}

func parsePlanID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, apperr.Invalid("invalid treatment plan id %q", c.Param("id"))
	}
	return id, nil
}

type createPlanBody struct {
	Name  string  `json:"name"`
	Notes *string `json:"notes"`
}

type statusBody struct {
	Status string `json:"status"`
}

type addItemBody struct {
	ToothNumber *int             `json:"tooth_number"`
	ProcedureID int              `json:"procedure_id"`
	Surface     string           `json:"surface"`
	Cost        *decimal.Decimal `json:"cost"`
	Notes       *string          `json:"notes"`
}

func (h *Handler) ListPlans(c echo.Context) error {
	pid, err := patient.ParseID(c, "id")
	if err != nil {
		return apperr.ToHTTP(err)
	}
	plans, err := h.svc.ListPlans(c.Request().Context(), pid)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	if plans == nil {
		plans = []*Plan{}
	}
	return c.JSON(http.StatusOK, plans)
}

func (h *Handler) CreatePlan(c echo.Context) error {
	pid, err := patient.ParseID(c, "id")
	if err != nil {
		return apperr.ToHTTP(err)
	}
	var body createPlanBody
	if err := c.Bind(&body); err != nil {
		return apperr.ToHTTP(apperr.Invalid("malformed treatment plan body: %v", err))
	}
	p, err := h.svc.CreatePlan(c.Request().Context(), CreatePlanRequest{
		PatientID: pid,
		Name:      body.Name,
		Notes:     body.Notes,
	})
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) GetPlan(c echo.Context) error {
	id, err := parsePlanID(c)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	p, err := h.svc.GetPlan(c.Request().Context(), id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) UpdateStatus(c echo.Context) error {
	id, err := parsePlanID(c)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	var body statusBody
	if err := c.Bind(&body); err != nil {
		return apperr.ToHTTP(apperr.Invalid("malformed status body: %v", err))
	}
	p, err := h.svc.UpdateStatus(c.Request().Context(), id, body.Status)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) RecomputeTotal(c echo.Context) error {
	id, err := parsePlanID(c)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	p, err := h.svc.RecomputeTotal(c.Request().Context(), id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) ListItems(c echo.Context) error {
	id, err := parsePlanID(c)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	items, err := h.svc.ListItems(c.Request().Context(), id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	if items == nil {
		items = []*Item{}
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) AddItem(c echo.Context) error {
	id, err := parsePlanID(c)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	var body addItemBody
	if err := c.Bind(&body); err != nil {
		return apperr.ToHTTP(apperr.Invalid("malformed plan item body: %v", err))
	}
	it, err := h.svc.AddItem(c.Request().Context(), AddItemRequest{
		PlanID:      id,
		ToothNumber: body.ToothNumber,
		ProcedureID: body.ProcedureID,
		Surface:     body.Surface,
		Cost:        body.Cost,
		Notes:       body.Notes,
	})
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, it)
}
