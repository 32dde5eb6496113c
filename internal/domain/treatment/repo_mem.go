package treatment

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-memdb"
	"github.com/shopspring/decimal"

	"github.com/dental/dental/internal/platform/memstore"
)

const (
	planTable = "treatment_plan"
	itemTable = "treatment_plan_item"
)

// Tables lists the memstore tables this package reads and writes.
func Tables() []*memdb.TableSchema {
	return []*memdb.TableSchema{
		memstore.Table(planTable, "PatientKey"),
		memstore.Table(itemTable, "PlanKey"),
	}
}

type planRow struct {
	Key        string
	PatientKey string
	Plan       Plan
}

type itemRow struct {
	Key     string
	PlanKey string
	Item    Item
}

func getPlan(txn *memdb.Txn, id uuid.UUID) (*planRow, error) {
	obj, err := txn.First(planTable, memstore.IDIndex, id.String())
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, planNotFound(id)
	}
	row := obj.(planRow)
	return &row, nil
}

func countItems(txn *memdb.Txn, planID uuid.UUID) (int, error) {
	it, err := txn.Get(itemTable, "PlanKey", planID.String())
	if err != nil {
		return 0, err
	}
	return len(memstore.Collect[itemRow](it)), nil
}

// -- Plans --

type planRepoMem struct {
	store *memstore.Store
	now   func() time.Time
}

func NewPlanRepoMem(store *memstore.Store) PlanRepository {
	return &planRepoMem{store: store, now: time.Now}
}

func (r *planRepoMem) Create(ctx context.Context, p *Plan) error {
	p.ID = uuid.New()
	p.CreatedAt = r.now().UTC()
	return r.store.Write(ctx, func(txn *memdb.Txn) error {
		return txn.Insert(planTable, planRow{Key: p.ID.String(), PatientKey: p.PatientID.String(), Plan: *p.clone()})
	})
}

func (r *planRepoMem) GetByID(ctx context.Context, id uuid.UUID) (*Plan, error) {
	txn := r.store.Read(ctx)
	row, err := getPlan(txn, id)
	if err != nil {
		return nil, err
	}
	p := row.Plan.clone()
	if p.ItemCount, err = countItems(txn, id); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *planRepoMem) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Plan, error) {
	txn := r.store.Read(ctx)
	it, err := txn.Get(planTable, "PatientKey", patientID.String())
	if err != nil {
		return nil, err
	}
	var out []*Plan
	for _, row := range memstore.Collect[planRow](it) {
		p := row.Plan.clone()
		if p.ItemCount, err = countItems(txn, p.ID); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

// Lock only checks existence: memstore write transactions are already
// exclusive.
func (r *planRepoMem) Lock(ctx context.Context, id uuid.UUID) error {
	_, err := getPlan(r.store.Read(ctx), id)
	return err
}

func (r *planRepoMem) update(ctx context.Context, id uuid.UUID, fn func(p *Plan)) error {
	return r.store.Write(ctx, func(txn *memdb.Txn) error {
		row, err := getPlan(txn, id)
		if err != nil {
			return err
		}
		p := row.Plan.clone()
		fn(p)
		return txn.Insert(planTable, planRow{Key: row.Key, PatientKey: row.PatientKey, Plan: *p})
	})
}

func (r *planRepoMem) SetTotal(ctx context.Context, id uuid.UUID, total decimal.Decimal) error {
	return r.update(ctx, id, func(p *Plan) { p.TotalCost = total })
}

func (r *planRepoMem) SetStatus(ctx context.Context, id uuid.UUID, status Status) error {
	return r.update(ctx, id, func(p *Plan) { p.Status = status })
}

// -- Items --

type itemRepoMem struct {
	store *memstore.Store
	now   func() time.Time
}

func NewItemRepoMem(store *memstore.Store) ItemRepository {
	return &itemRepoMem{store: store, now: time.Now}
}

func (r *itemRepoMem) Insert(ctx context.Context, it *Item) error {
	it.ID = uuid.New()
	it.CreatedAt = r.now().UTC()
	return r.store.Write(ctx, func(txn *memdb.Txn) error {
		if _, err := getPlan(txn, it.PlanID); err != nil {
			return err
		}
		cp := it.clone()
		cp.ProcedureName, cp.ProcedureCode = nil, nil
		key := fmt.Sprintf("%020d", r.store.NextSeq())
		return txn.Insert(itemTable, itemRow{Key: key, PlanKey: it.PlanID.String(), Item: *cp})
	})
}

// ListByPlan returns items in insertion order.
func (r *itemRepoMem) ListByPlan(ctx context.Context, planID uuid.UUID) ([]*Item, error) {
	it, err := r.store.Read(ctx).Get(itemTable, "PlanKey", planID.String())
	if err != nil {
		return nil, err
	}
	var out []*Item
	for _, row := range memstore.Collect[itemRow](it) {
		out = append(out, row.Item.clone())
	}
	return out, nil
}

func (r *itemRepoMem) SumCost(ctx context.Context, planID uuid.UUID) (decimal.Decimal, error) {
	it, err := r.store.Read(ctx).Get(itemTable, "PlanKey", planID.String())
	if err != nil {
		return decimal.Zero, err
	}
	sum := decimal.Zero
	for _, row := range memstore.Collect[itemRow](it) {
		sum = sum.Add(row.Item.Cost)
	}
	return sum, nil
}
