package tooth

import (
	"time"

	"github.com/google/uuid"
)

// ActionConditionUpdated is the only action the ledger records today.
const ActionConditionUpdated = "condition_updated"

// ToothRecord is the current charted state of one tooth of one patient.
type ToothRecord struct {
	ID          uuid.UUID  `json:"id"`
	PatientID   uuid.UUID  `json:"patient_id"`
	ToothNumber int        `json:"tooth_number"`
	ConditionID *int       `json:"condition_id"`
	Surfaces    SurfaceSet `json:"surfaces"`
	Notes       *string    `json:"notes"`
	RecordedBy  string     `json:"recorded_by"`
	RecordedAt  time.Time  `json:"recorded_at"`

	// Populated from reference data on read.
	ConditionName  *string `json:"condition_name,omitempty"`
	ConditionColor *string `json:"condition_color,omitempty"`
	ConditionCode  *string `json:"condition_code,omitempty"`
}

// HistoryEntry is an immutable ledger row written on every save.
type HistoryEntry struct {
	ID             int64      `json:"id"`
	PatientID      uuid.UUID  `json:"patient_id"`
	ToothNumber    int        `json:"tooth_number"`
	Action         string     `json:"action"`
	NewConditionID *int       `json:"new_condition_id"`
	NewSurfaces    SurfaceSet `json:"new_surfaces"`
	PerformedBy    string     `json:"performed_by"`
	PerformedAt    time.Time  `json:"performed_at"`
}

// SaveRequest carries the full replacement state of one tooth.
type SaveRequest struct {
	PatientID   uuid.UUID
	ToothNumber int
	ConditionID *int
	Surfaces    string
	Notes       *string
	Actor       string
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

func (r *ToothRecord) clone() *ToothRecord {
	cp := *r
	cp.ConditionID = cloneInt(r.ConditionID)
	cp.Notes = cloneStr(r.Notes)
	cp.ConditionName = cloneStr(r.ConditionName)
	cp.ConditionColor = cloneStr(r.ConditionColor)
	cp.ConditionCode = cloneStr(r.ConditionCode)
	return &cp
}

func (h *HistoryEntry) clone() *HistoryEntry {
	cp := *h
	cp.NewConditionID = cloneInt(h.NewConditionID)
	return &cp
}
