package tooth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dental/dental/internal/platform/apperr"
	"github.com/dental/dental/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

func connFor(ctx context.Context, pool *pgxpool.Pool) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return pool
}

// -- Records --

type recordRepoPG struct{ pool *pgxpool.Pool }

func NewRecordRepoPG(pool *pgxpool.Pool) RecordRepository {
	return &recordRepoPG{pool: pool}
}

const recordCols = `id, patient_id, tooth_number, condition_id, surfaces, notes, recorded_by, recorded_at`

func scanRecord(row pgx.Row) (*ToothRecord, error) {
	var r ToothRecord
	var surfaces string
	err := row.Scan(&r.ID, &r.PatientID, &r.ToothNumber, &r.ConditionID, &surfaces,
		&r.Notes, &r.RecordedBy, &r.RecordedAt)
	if err != nil {
		return nil, err
	}
	if r.Surfaces, err = ParseSurfaces(surfaces); err != nil {
		return nil, fmt.Errorf("tooth record %s: stored surfaces %q: %w", r.ID, surfaces, err)
	}
	return &r, nil
}

func (r *recordRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*ToothRecord, error) {
	rows, err := connFor(ctx, r.pool).Query(ctx,
		`SELECT `+recordCols+` FROM tooth_record WHERE patient_id = $1 ORDER BY tooth_number`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*ToothRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *recordRepoPG) Get(ctx context.Context, patientID uuid.UUID, toothNumber int) (*ToothRecord, error) {
	rec, err := scanRecord(connFor(ctx, r.pool).QueryRow(ctx,
		`SELECT `+recordCols+` FROM tooth_record WHERE patient_id = $1 AND tooth_number = $2`,
		patientID, toothNumber))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("no record for tooth %d", toothNumber)
		}
		return nil, err
	}
	return rec, nil
}

// Upsert is a single INSERT ... ON CONFLICT statement, so two concurrent
// first saves of the same tooth cannot both insert.
func (r *recordRepoPG) Upsert(ctx context.Context, rec *ToothRecord) error {
	return connFor(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO tooth_record (id, patient_id, tooth_number, condition_id, surfaces, notes, recorded_by, recorded_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (patient_id, tooth_number) DO UPDATE SET
			condition_id = EXCLUDED.condition_id,
			surfaces     = EXCLUDED.surfaces,
			notes        = EXCLUDED.notes,
			recorded_by  = EXCLUDED.recorded_by,
			recorded_at  = EXCLUDED.recorded_at
		RETURNING id`,
		uuid.New(), rec.PatientID, rec.ToothNumber, rec.ConditionID, rec.Surfaces.String(),
		rec.Notes, rec.RecordedBy, rec.RecordedAt).Scan(&rec.ID)
}

// -- History --

type historyRepoPG struct{ pool *pgxpool.Pool }

func NewHistoryRepoPG(pool *pgxpool.Pool) HistoryRepository {
	return &historyRepoPG{pool: pool}
}

const historyCols = `id, patient_id, tooth_number, action, new_condition_id, new_surfaces, performed_by, performed_at`

func scanHistory(row pgx.Row) (*HistoryEntry, error) {
	var h HistoryEntry
	var surfaces string
	err := row.Scan(&h.ID, &h.PatientID, &h.ToothNumber, &h.Action, &h.NewConditionID,
		&surfaces, &h.PerformedBy, &h.PerformedAt)
	if err != nil {
		return nil, err
	}
	if h.NewSurfaces, err = ParseSurfaces(surfaces); err != nil {
		return nil, fmt.Errorf("history %d: stored surfaces %q: %w", h.ID, surfaces, err)
	}
	return &h, nil
}

func (r *historyRepoPG) Append(ctx context.Context, e *HistoryEntry) error {
	return connFor(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO tooth_history (patient_id, tooth_number, action, new_condition_id, new_surfaces, performed_by, performed_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING id`,
		e.PatientID, e.ToothNumber, e.Action, e.NewConditionID, e.NewSurfaces.String(),
		e.PerformedBy, e.PerformedAt).Scan(&e.ID)
}

func (r *historyRepoPG) Recent(ctx context.Context, patientID uuid.UUID, toothNumber, limit int) ([]*HistoryEntry, error) {
	rows, err := connFor(ctx, r.pool).Query(ctx, `
		SELECT `+historyCols+` FROM tooth_history
		WHERE patient_id = $1 AND tooth_number = $2
		ORDER BY performed_at DESC, id DESC
		LIMIT $3`, patientID, toothNumber, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*HistoryEntry
	for rows.Next() {
		h, err := scanHistory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
