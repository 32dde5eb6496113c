package treatment

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dental/dental/internal/domain/tooth"
	"github.com/dental/dental/internal/platform/apperr"
)

// Status is the lifecycle state of a treatment plan.
type Status string

const (
	StatusProposed   Status = "proposed"
	StatusAccepted   Status = "accepted"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusDeclined   Status = "declined"
)

var statuses = []Status{StatusProposed, StatusAccepted, StatusInProgress, StatusCompleted, StatusDeclined}

func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range statuses {
		if st == known {
			return st, nil
		}
	}
	return "", apperr.Invalid("unknown plan status %q", s)
}

// Plan groups proposed procedures for one patient. TotalCost always equals the
// sum of its item costs; ItemCount is filled in listings only.
type Plan struct {
	ID        uuid.UUID       `json:"id"`
	PatientID uuid.UUID       `json:"patient_id"`
	Name      string          `json:"name"`
	Status    Status          `json:"status"`
	Notes     *string         `json:"notes"`
	TotalCost decimal.Decimal `json:"total_cost"`
	ItemCount int             `json:"item_count"`
	CreatedAt time.Time       `json:"created_at"`
}

// Item is one line of a plan. ToothNumber and Surface are nil when the
// procedure is not tooth or surface specific.
type Item struct {
	ID          uuid.UUID         `json:"id"`
	PlanID      uuid.UUID         `json:"treatment_plan_id"`
	ToothNumber *int              `json:"tooth_number"`
	ProcedureID int               `json:"procedure_id"`
	Surface     *tooth.SurfaceSet `json:"surface"`
	Cost        decimal.Decimal   `json:"cost"`
	Notes       *string           `json:"notes"`
	CreatedAt   time.Time         `json:"created_at"`

	ProcedureName *string `json:"procedure_name,omitempty"`
	ProcedureCode *string `json:"procedure_code,omitempty"`
}

// CreatePlanRequest is the input of Service.CreatePlan.
type CreatePlanRequest struct {
	PatientID uuid.UUID
	Name      string
	Notes     *string
}

// AddItemRequest is the input of Service.AddItem. Cost is required.
type AddItemRequest struct {
	PlanID      uuid.UUID
	ToothNumber *int
	ProcedureID int
	Surface     string
	Cost        *decimal.Decimal
	Notes       *string
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneStr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func (p *Plan) clone() *Plan {
	cp := *p
	cp.Notes = cloneStr(p.Notes)
	return &cp
}

func (it *Item) clone() *Item {
	cp := *it
	cp.ToothNumber = cloneInt(it.ToothNumber)
	cp.Notes = cloneStr(it.Notes)
	cp.ProcedureName = cloneStr(it.ProcedureName)
	cp.ProcedureCode = cloneStr(it.ProcedureCode)
	if it.Surface != nil {
		s := *it.Surface
		cp.Surface = &s
	}
	return &cp
}
