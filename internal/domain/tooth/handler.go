package tooth

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/dental/dental/internal/domain/patient"
	"github.com/dental/dental/internal/platform/apperr"
	"github.com/dental/dental/pkg/notation"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the tooth catalogue on static, the group for
// responses that are the same for every patient, and the per-patient
// records on api.
func (h *Handler) RegisterRoutes(api *echo.Group, static *echo.Group) {
	static.GET("/teeth", h.Chart)
	api.GET("/patients/:id/teeth", h.ListRecords)
	api.GET("/patients/:id/teeth/:tooth", h.GetRecord)
	api.PUT("/patients/:id/teeth/:tooth", h.SaveRecord)
	api.GET("/patients/:id/teeth/:tooth/history", h.ListHistory)
}

type saveBody struct {
	ConditionID *int    `json:"condition_id"`
	Surfaces    string  `json:"surfaces"`
	Notes       *string `json:"notes"`
	Actor       string  `json:"actor"`
}

func parseTooth(c echo.Context) (int, error) {
	n, err := strconv.Atoi(c.Param("tooth"))
	if err != nil {
		return 0, apperr.Invalid("invalid tooth number %q", c.Param("tooth"))
	}
	return n, nil
}

// Chart lists the 32 tooth positions labelled in the requested notation.
func (h *Handler) Chart(c echo.Context) error {
	scheme, err := notation.ParseScheme(c.QueryParam("notation"))
	if err != nil {
		return apperr.ToHTTP(apperr.Invalid("%v", err))
	}
	return c.JSON(http.StatusOK, notation.Chart(scheme))
}

func (h *Handler) ListRecords(c echo.Context) error {
	pid, err := patient.ParseID(c, "id")
	if err != nil {
		return apperr.ToHTTP(err)
	}
	recs, err := h.svc.ListCurrent(c.Request().Context(), pid)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	if recs == nil {
		recs = []*ToothRecord{}
	}
	return c.JSON(http.StatusOK, recs)
}

func (h *Handler) GetRecord(c echo.Context) error {
	pid, err := patient.ParseID(c, "id")
	if err != nil {
		return apperr.ToHTTP(err)
	}
	n, err := parseTooth(c)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	rec, err := h.svc.Get(c.Request().Context(), pid, n)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *Handler) SaveRecord(c echo.Context) error {
	pid, err := patient.ParseID(c, "id")
	if err != nil {
		return apperr.ToHTTP(err)
	}
	n, err := parseTooth(c)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	var body saveBody
	if err := c.Bind(&body); err != nil {
		return apperr.ToHTTP(apperr.Invalid("malformed tooth record body: %v", err))
	}
	rec, err := h.svc.Save(c.Request().Context(), SaveRequest{
		PatientID:   pid,
		ToothNumber: n,
		ConditionID: body.ConditionID,
		Surfaces:    body.Surfaces,
		Notes:       body.Notes,
		Actor:       body.Actor,
	})
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *Handler) ListHistory(c echo.Context) error {
	pid, err := patient.ParseID(c, "id")
	if err != nil {
		return apperr.ToHTTP(err)
	}
	n, err := parseTooth(c)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil {
			return apperr.ToHTTP(apperr.Invalid("invalid limit %q", raw))
		}
	}
	entries, err := h.svc.RecentHistory(c.Request().Context(), pid, n, limit)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	if entries == nil {
		entries = []*HistoryEntry{}
	}
	return c.JSON(http.StatusOK, entries)
}
