package reference

import (
	"context"
	"fmt"
	"sort"

	"github.com/hashicorp/go-memdb"

	"github.com/dental/dental/internal/platform/apperr"
	"github.com/dental/dental/internal/platform/memstore"
)

const (
	conditionTable = "condition"
	procedureTable = "procedure"
)

// Tables lists the memstore tables this package reads and writes.
func Tables() []*memdb.TableSchema {
	return []*memdb.TableSchema{memstore.Table(conditionTable), memstore.Table(procedureTable)}
}

type conditionRow struct {
	Key       string
	Condition Condition
}

type procedureRow struct {
	Key       string
	Procedure Procedure
}

func refKey(id int) string { return fmt.Sprintf("%010d", id) }

type repoMem struct{ store *memstore.Store }

func NewRepoMem(store *memstore.Store) Repository {
	return &repoMem{store: store}
}

func (r *repoMem) ListConditions(ctx context.Context) ([]*Condition, error) {
	it, err := r.store.Read(ctx).Get(conditionTable, memstore.IDIndex)
	if err != nil {
		return nil, err
	}
	var out []*Condition
	for _, row := range memstore.Collect[conditionRow](it) {
		c := row.Condition
		out = append(out, &c)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *repoMem) ListProcedures(ctx context.Context) ([]*Procedure, error) {
	it, err := r.store.Read(ctx).Get(procedureTable, memstore.IDIndex)
	if err != nil {
		return nil, err
	}
	var out []*Procedure
	for _, row := range memstore.Collect[procedureRow](it) {
		p := row.Procedure
		out = append(out, &p)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (r *repoMem) GetCondition(ctx context.Context, id int) (*Condition, error) {
	obj, err := r.store.Read(ctx).First(conditionTable, memstore.IDIndex, refKey(id))
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, apperr.NotFound("condition %d not found", id)
	}
	c := obj.(conditionRow).Condition
	return &c, nil
}

func (r *repoMem) GetProcedure(ctx context.Context, id int) (*Procedure, error) {
	obj, err := r.store.Read(ctx).First(procedureTable, memstore.IDIndex, refKey(id))
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, apperr.NotFound("procedure %d not found", id)
	}
	p := obj.(procedureRow).Procedure
	return &p, nil
}

func (r *repoMem) UpsertCondition(ctx context.Context, c *Condition) error {
	return r.store.Write(ctx, func(txn *memdb.Txn) error {
		return txn.Insert(conditionTable, conditionRow{Key: refKey(c.ID), Condition: *c})
	})
}

func (r *repoMem) UpsertProcedure(ctx context.Context, p *Procedure) error {
	return r.store.Write(ctx, func(txn *memdb.Txn) error {
		return txn.Insert(procedureTable, procedureRow{Key: refKey(p.ID), Procedure: *p})
	})
}
