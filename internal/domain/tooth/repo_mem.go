package tooth

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/hashicorp/go-memdb"

	"github.com/dental/dental/internal/platform/apperr"
	"github.com/dental/dental/internal/platform/memstore"
)

const (
	recordTable  = "tooth_record"
	historyTable = "tooth_history"
)

// Tables lists the memstore tables this package reads and writes.
func Tables() []*memdb.TableSchema {
	return []*memdb.TableSchema{
		memstore.Table(recordTable, "PatientKey"),
		memstore.Table(historyTable, "ToothKey"),
	}
}

type recordRow struct {
	Key        string
	PatientKey string
	Record     ToothRecord
}

type historyRow struct {
	Key      string
	ToothKey string
	Entry    HistoryEntry
}

// toothKey sorts records of one patient by tooth number.
func toothKey(patientID uuid.UUID, toothNumber int) string {
	return fmt.Sprintf("%s/%02d", patientID, toothNumber)
}

// -- Records --

type recordRepoMem struct{ store *memstore.Store }

func NewRecordRepoMem(store *memstore.Store) RecordRepository {
	return &recordRepoMem{store: store}
}

func (r *recordRepoMem) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*ToothRecord, error) {
	it, err := r.store.Read(ctx).Get(recordTable, "PatientKey", patientID.String())
	if err != nil {
		return nil, err
	}
	var out []*ToothRecord
	for _, row := range memstore.Collect[recordRow](it) {
		out = append(out, row.Record.clone())
	}
	return out, nil
}

func (r *recordRepoMem) Get(ctx context.Context, patientID uuid.UUID, toothNumber int) (*ToothRecord, error) {
	obj, err := r.store.Read(ctx).First(recordTable, memstore.IDIndex, toothKey(patientID, toothNumber))
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, apperr.NotFound("no record for tooth %d", toothNumber)
	}
	rec := obj.(recordRow).Record
	return rec.clone(), nil
}

func (r *recordRepoMem) Upsert(ctx context.Context, rec *ToothRecord) error {
	key := toothKey(rec.PatientID, rec.ToothNumber)
	return r.store.Write(ctx, func(txn *memdb.Txn) error {
		obj, err := txn.First(recordTable, memstore.IDIndex, key)
		if err != nil {
			return err
		}
		if obj != nil {
			rec.ID = obj.(recordRow).Record.ID
		} else {
			rec.ID = uuid.New()
		}
		stored := rec.clone()
		stored.ConditionName, stored.ConditionColor, stored.ConditionCode = nil, nil, nil
		return txn.Insert(recordTable, recordRow{Key: key, PatientKey: rec.PatientID.String(), Record: *stored})
	})
}

// -- History --

type historyRepoMem struct{ store *memstore.Store }

func NewHistoryRepoMem(store *memstore.Store) HistoryRepository {
	return &historyRepoMem{store: store}
}

func (r *historyRepoMem) Append(ctx context.Context, e *HistoryEntry) error {
	return r.store.Write(ctx, func(txn *memdb.Txn) error {
		e.ID = r.store.NextSeq()
		return txn.Insert(historyTable, historyRow{
			Key:      fmt.Sprintf("%020d", e.ID),
			ToothKey: toothKey(e.PatientID, e.ToothNumber),
			Entry:    *e.clone(),
		})
	})
}

func (r *historyRepoMem) Recent(ctx context.Context, patientID uuid.UUID, toothNumber, limit int) ([]*HistoryEntry, error) {
	it, err := r.store.Read(ctx).Get(historyTable, "ToothKey", toothKey(patientID, toothNumber))
	if err != nil {
		return nil, err
	}
	var out []*HistoryEntry
	for _, row := range memstore.Collect[historyRow](it) {
		out = append(out, row.Entry.clone())
	}
	SortNewestFirst(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// SortNewestFirst orders entries by PerformedAt descending, then ID
// descending.
func SortNewestFirst(entries []*HistoryEntry) {
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.PerformedAt.Equal(b.PerformedAt) {
			return a.PerformedAt.After(b.PerformedAt)
		}
		return a.ID > b.ID
	})
}
