package tooth

import (
	"context"

	"github.com/google/uuid"
)

type RecordRepository interface {
	// ListByPatient returns current records ordered by tooth number.
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*ToothRecord, error)
	Get(ctx context.Context, patientID uuid.UUID, toothNumber int) (*ToothRecord, error)
	// Upsert inserts or wholly replaces the record for (PatientID, ToothNumber)
	// and sets rec.ID to the stored row's id.
	Upsert(ctx context.Context, rec *ToothRecord) error
}

type HistoryRepository interface {
	// Append inserts e and assigns e.ID. Entries are never changed afterwards.
	Append(ctx context.Context, e *HistoryEntry) error
	// Recent returns at most limit entries, newest first, ties broken by id.
	Recent(ctx context.Context, patientID uuid.UUID, toothNumber, limit int) ([]*HistoryEntry, error)
}
