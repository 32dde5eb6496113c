package chart

import (
	"context"

	"github.com/google/uuid"

	"github.com/dental/dental/internal/domain/patient"
	"github.com/dental/dental/internal/domain/reference"
	"github.com/dental/dental/internal/domain/tooth"
)

// Backend is everything a session needs from the stores.
type Backend interface {
	GetPatient(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
	ListRecords(ctx context.Context, patientID uuid.UUID) ([]*tooth.ToothRecord, error)
	ListConditions(ctx context.Context) ([]*reference.Condition, error)
	SaveTooth(ctx context.Context, req tooth.SaveRequest) (*tooth.ToothRecord, error)
}

type PatientReader interface {
	Get(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
}

type ToothStore interface {
	ListCurrent(ctx context.Context, patientID uuid.UUID) ([]*tooth.ToothRecord, error)
	Save(ctx context.Context, req tooth.SaveRequest) (*tooth.ToothRecord, error)
}

type ConditionLister interface {
	ListConditions(ctx context.Context) ([]*reference.Condition, error)
}

type serviceBackend struct {
	patients   PatientReader
	teeth      ToothStore
	conditions ConditionLister
}

// NewBackend adapts the domain services to Backend.
func NewBackend(patients PatientReader, teeth ToothStore, conditions ConditionLister) Backend {
	return &serviceBackend{patients: patients, teeth: teeth, conditions: conditions}
}

func (b *serviceBackend) GetPatient(ctx context.Context, id uuid.UUID) (*patient.Patient, error) {
	return b.patients.Get(ctx, id)
}

func (b *serviceBackend) ListRecords(ctx context.Context, patientID uuid.UUID) ([]*tooth.ToothRecord, error) {
	return b.teeth.ListCurrent(ctx, patientID)
}

func (b *serviceBackend) ListConditions(ctx context.Context) ([]*reference.Condition, error) {
	return b.conditions.ListConditions(ctx)
}

func (b *serviceBackend) SaveTooth(ctx context.Context, req tooth.SaveRequest) (*tooth.ToothRecord, error) {
	return b.teeth.Save(ctx, req)
}
